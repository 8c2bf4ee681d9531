package mail

import (
	"bytes"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/require"
)

func TestBuildMIME(t *testing.T) {
	raw, err := BuildMIME(Outbound{
		MessageID: "abc-123@chandler.local",
		FromName:  "Purchasing Desk",
		FromEmail: "desk@example.test",
		To:        "x@example.test",
		CC:        []string{"cc@example.test"},
		ReplyTo:   "replies@example.test",
		Subject:   "Quotation - INV-2026-015",
		TextBody:  "Please find attached our quotation.",
		HTMLBody:  "<html><body><p>Please find attached our quotation.</p></body></html>",
		Attachments: []Attachment{
			{Filename: "quotation.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Content: []byte("xlsx-bytes")},
			{Filename: "terms.bin", Content: []byte{0x01, 0x02}},
		},
	})
	require.NoError(t, err)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)

	require.Equal(t, "Quotation - INV-2026-015", env.GetHeader("Subject"))
	require.Contains(t, env.GetHeader("From"), "desk@example.test")
	require.Contains(t, env.GetHeader("To"), "x@example.test")
	require.Contains(t, env.GetHeader("Cc"), "cc@example.test")
	require.Contains(t, env.GetHeader("Reply-To"), "replies@example.test")
	require.Equal(t, "<abc-123@chandler.local>", env.GetHeader("Message-Id"))

	require.Contains(t, env.Text, "quotation")
	require.Contains(t, env.HTML, "quotation")
	require.Len(t, env.Attachments, 2)
	require.Equal(t, "quotation.xlsx", env.Attachments[0].FileName)
	require.Equal(t, []byte("xlsx-bytes"), env.Attachments[0].Content)
	// Missing content type falls back to octet-stream.
	require.Equal(t, "application/octet-stream", env.Attachments[1].ContentType)
}
