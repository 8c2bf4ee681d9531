package mail

import (
	"bytes"
	netmail "net/mail"

	"github.com/jhillyerd/enmime"
	"github.com/rotisserie/eris"
)

// BuildMIME encodes an outbound message as raw RFC 5322 bytes ready for the
// transport.
func BuildMIME(msg Outbound) ([]byte, error) {
	builder := enmime.Builder().
		From(msg.FromName, msg.FromEmail).
		To("", msg.To).
		Subject(msg.Subject).
		Text([]byte(msg.TextBody))

	if msg.HTMLBody != "" {
		builder = builder.HTML([]byte(msg.HTMLBody))
	}
	if msg.MessageID != "" {
		builder = builder.Header("Message-Id", "<"+msg.MessageID+">")
	}
	if msg.ReplyTo != "" {
		builder = builder.ReplyTo("", msg.ReplyTo)
	}
	if len(msg.CC) > 0 {
		builder = builder.CCAddrs(toAddresses(msg.CC))
	}
	if len(msg.BCC) > 0 {
		builder = builder.BCCAddrs(toAddresses(msg.BCC))
	}
	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		builder = builder.AddAttachment(att.Content, contentType, att.Filename)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, eris.Wrap(err, "mail: build mime")
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, eris.Wrap(err, "mail: encode mime")
	}
	return buf.Bytes(), nil
}

func toAddresses(addrs []string) []netmail.Address {
	out := make([]netmail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, netmail.Address{Address: a})
	}
	return out
}
