// Package mail builds outbound quotation messages and abstracts the mailbox
// transports (gmail, imap) behind narrow interfaces.
package mail

import (
	"context"

	"chandler/internal"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Outbound is one fully assembled supplier message ready for transport.
// MessageID is assigned by the dispatcher so replies can be correlated by
// their In-Reply-To header.
type Outbound struct {
	MessageID   string
	FromName    string
	FromEmail   string
	To          string
	CC          []string
	BCC         []string
	ReplyTo     string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers one outbound message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Outbound) (messageID string, err error)
}

// Fetcher pulls inbound messages for the reply monitor.
type Fetcher interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
