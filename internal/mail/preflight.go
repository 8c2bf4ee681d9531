package mail

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// PreflightAttachments rejects attachments that would fail at the transport
// or arrive unreadable: oversized payloads and PDF files that do not parse.
func PreflightAttachments(attachments []Attachment, maxBytes int64, scanPDF bool) error {
	for _, att := range attachments {
		if maxBytes > 0 && int64(len(att.Content)) > maxBytes {
			return fmt.Errorf("attachment %s exceeds size limit (%d bytes)", att.Filename, maxBytes)
		}
		if scanPDF && strings.HasSuffix(strings.ToLower(att.Filename), ".pdf") {
			if err := checkPDF(att.Content); err != nil {
				return fmt.Errorf("attachment %s: %w", att.Filename, err)
			}
		}
	}
	return nil
}

func checkPDF(content []byte) error {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("unreadable pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return fmt.Errorf("pdf has no pages")
	}
	return nil
}
