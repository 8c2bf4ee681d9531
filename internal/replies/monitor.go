// Package replies watches the mailbox for supplier answers and delivery
// failures after a dispatch. It only annotates: a sent dispatch record is
// terminal and is never transitioned here.
package replies

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"chandler/internal"
	"chandler/internal/config"
	"chandler/internal/mail"
	gmailconnector "chandler/internal/mail/gmail"
	imapconnector "chandler/internal/mail/imap"
	"chandler/internal/storage"
)

type Monitor struct {
	db      *storage.DB
	cfg     config.Config
	fetcher mail.Fetcher
}

func NewMonitor(db *storage.DB, cfg config.Config) (*Monitor, error) {
	fetcher, err := makeFetcher(cfg)
	if err != nil {
		return nil, err
	}
	return &Monitor{db: db, cfg: cfg, fetcher: fetcher}, nil
}

// NewMonitorWithFetcher injects the mailbox transport, used by tests.
func NewMonitorWithFetcher(db *storage.DB, cfg config.Config, fetcher mail.Fetcher) *Monitor {
	return &Monitor{db: db, cfg: cfg, fetcher: fetcher}
}

func makeFetcher(cfg config.Config) (mail.Fetcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ReplyMonitorProvider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported reply monitor provider: %s", cfg.ReplyMonitorProvider)
	}
}

// Run polls the mailbox until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if _, err := m.PollOnce(ctx); err != nil {
			zap.L().Warn("replies: poll cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(m.cfg.ReplyMonitorIntervalSec) * time.Second):
		}
	}
}

// PollOnce fetches unseen messages and stores one reply record per message
// that correlates to a dispatch or looks like a bounce.
func (m *Monitor) PollOnce(_ context.Context) (int, error) {
	messages, err := m.fetcher.FetchInbox(m.cfg.ReplyMonitorLabel, m.cfg.ReplyMonitorFetchMax)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, msg := range messages {
		record := parseReply(msg)

		if record.InReplyTo != "" {
			supplierID, found, err := m.db.SupplierByDispatchMessageID(record.InReplyTo)
			if err != nil {
				return stored, err
			}
			if found {
				record.SupplierID = supplierID
			}
		}
		if record.SupplierID == 0 && !record.IsBounce {
			continue
		}

		if err := m.db.InsertReply(record); err != nil {
			return stored, err
		}
		stored++
		zap.L().Info("replies: recorded",
			zap.Int("supplier_id", record.SupplierID),
			zap.Bool("bounce", record.IsBounce),
			zap.String("subject", record.Subject),
		)
	}

	return stored, nil
}

func parseReply(msg internal.FetchedMailMessage) internal.ReplyRecord {
	record := internal.ReplyRecord{
		MessageID:  msg.MessageID,
		InReplyTo:  strings.Trim(msg.InReplyTo, "<> "),
		Subject:    msg.Subject,
		Sender:     msg.From,
		ReceivedAt: msg.ReceivedAt,
		IsBounce:   looksLikeBounce(msg.From, msg.Subject),
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(msg.Raw))
	if err != nil {
		return record
	}

	if record.InReplyTo == "" {
		record.InReplyTo = strings.Trim(env.GetHeader("In-Reply-To"), "<> ")
	}

	text := strings.TrimSpace(env.Text)
	if text == "" && env.HTML != "" {
		text = htmlToText(env.HTML)
	}
	record.BodyText = truncate(text, 4000)
	return record
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()
	text := doc.Text()
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

func looksLikeBounce(from, subject string) bool {
	lowFrom := strings.ToLower(from)
	lowSubject := strings.ToLower(subject)
	if strings.Contains(lowFrom, "mailer-daemon") || strings.Contains(lowFrom, "postmaster") {
		return true
	}
	for _, marker := range []string{"undeliverable", "delivery status notification", "returned mail", "failure notice"} {
		if strings.Contains(lowSubject, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
