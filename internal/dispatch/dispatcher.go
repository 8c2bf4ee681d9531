package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"chandler/internal"
	"chandler/internal/config"
	"chandler/internal/errs"
	"chandler/internal/mail"
	"chandler/internal/pipeline"
	"chandler/internal/quotation"
)

// AuditStore persists dispatch bookkeeping. The sqlite storage layer
// satisfies it; a nil store keeps the dispatcher session-only.
type AuditStore interface {
	InsertDispatch(batchID string, supplierID, position int) error
	UpdateDispatch(batchID string, supplierID int, record internal.DispatchRecord) error
	UpdateOrderItemStatus(itemIDs []int, status internal.ItemStatus) error
}

type entry struct {
	record  internal.DispatchRecord
	builder *quotation.Builder
	extra   []mail.Attachment
	itemIDs []int
}

// Dispatcher sends one supplier's quotation at a time, in the order the
// suppliers were enqueued. A transport failure pauses the queue at that
// supplier until the operator retries or abandons it; it never blocks a
// manual send to a different supplier.
type Dispatcher struct {
	cfg     config.Config
	guard   *Guard
	sender  mail.Sender
	session *pipeline.Session
	audit   AuditStore
	batchID string

	queue []*entry
	byID  map[int]*entry
}

func NewDispatcher(cfg config.Config, guard *Guard, sender mail.Sender, session *pipeline.Session, audit AuditStore) *Dispatcher {
	batchID := ""
	if session != nil {
		batchID = session.BatchID
	}
	return &Dispatcher{
		cfg:     cfg,
		guard:   guard,
		sender:  sender,
		session: session,
		audit:   audit,
		batchID: batchID,
		byID:    map[int]*entry{},
	}
}

// Enqueue seeds one pending record per supplier, preserving the caller's
// order. Suppliers already in the queue are skipped.
func (d *Dispatcher) Enqueue(supplierIDs []int) error {
	for _, id := range supplierIDs {
		if _, ok := d.byID[id]; ok {
			continue
		}
		e := &entry{record: internal.DispatchRecord{SupplierID: id, Status: internal.DispatchPending}}
		d.queue = append(d.queue, e)
		d.byID[id] = e
		if d.audit != nil {
			if err := d.audit.InsertDispatch(d.batchID, id, len(d.queue)-1); err != nil {
				return eris.Wrap(err, "dispatch: persist enqueue")
			}
		}
	}
	return nil
}

// Stage attaches the quotation builder and the covered line item ids to an
// enqueued supplier.
func (d *Dispatcher) Stage(supplierID int, builder *quotation.Builder, itemIDs []int) error {
	e, ok := d.byID[supplierID]
	if !ok {
		return fmt.Errorf("supplier %d is not enqueued", supplierID)
	}
	e.builder = builder
	e.itemIDs = itemIDs
	return nil
}

// AddAttachment registers an operator-supplied extra attachment for one
// supplier's message.
func (d *Dispatcher) AddAttachment(supplierID int, att mail.Attachment) error {
	e, ok := d.byID[supplierID]
	if !ok {
		return fmt.Errorf("supplier %d is not enqueued", supplierID)
	}
	e.extra = append(e.extra, att)
	return nil
}

// Records returns a snapshot of the queue in enqueue order.
func (d *Dispatcher) Records() []internal.DispatchRecord {
	out := make([]internal.DispatchRecord, 0, len(d.queue))
	for _, e := range d.queue {
		out = append(out, e.record)
	}
	return out
}

// SendNext sends the first non-terminal record in queue order. If that
// record is failed, the queue is paused: the operator must retry or abandon
// it, or send to a later supplier explicitly.
func (d *Dispatcher) SendNext(ctx context.Context) (int, error) {
	for _, e := range d.queue {
		switch e.record.Status {
		case internal.DispatchSent, internal.DispatchAbandoned:
			continue
		case internal.DispatchFailed:
			return 0, fmt.Errorf("queue paused: supplier %d failed (%s); retry or abandon it", e.record.SupplierID, e.record.Error)
		default:
			return e.record.SupplierID, d.SendTo(ctx, e.record.SupplierID)
		}
	}
	return 0, fmt.Errorf("no pending suppliers in queue")
}

// SendTo assembles and sends one supplier's quotation. It requires the guard
// to be unlocked and performs no side effects otherwise.
func (d *Dispatcher) SendTo(ctx context.Context, supplierID int) error {
	if err := d.guard.Ensure(); err != nil {
		return err
	}

	e, ok := d.byID[supplierID]
	if !ok {
		return fmt.Errorf("supplier %d is not enqueued", supplierID)
	}
	if e.record.Status != internal.DispatchPending {
		return fmt.Errorf("supplier %d is %s, not pending", supplierID, e.record.Status)
	}
	if e.builder == nil {
		return &errs.ValidationError{Field: "document", Detail: fmt.Sprintf("no quotation staged for supplier %d", supplierID)}
	}
	if err := e.builder.Validate(); err != nil {
		return err
	}

	d.guard.Touch()

	msg, err := d.buildMessage(e)
	if err != nil {
		return err
	}

	providerID, sendErr := d.sender.Send(ctx, msg)
	if sendErr != nil {
		e.record.Status = internal.DispatchFailed
		e.record.Error = sendErr.Error()
		d.persist(e)
		zap.L().Warn("dispatch: send failed",
			zap.Int("supplier_id", supplierID),
			zap.Error(sendErr),
		)
		return &errs.TransportError{SupplierID: supplierID, Err: sendErr}
	}

	// Record the Message-Id we generated, not the provider id: replies
	// reference it through In-Reply-To.
	e.record.Status = internal.DispatchSent
	e.record.Error = ""
	e.record.MessageID = msg.MessageID
	e.record.SentAt = time.Now().UTC().Format(time.RFC3339)
	e.builder = nil
	d.persist(e)

	if d.audit != nil && len(e.itemIDs) > 0 {
		if err := d.audit.UpdateOrderItemStatus(e.itemIDs, internal.ItemCompleted); err != nil {
			zap.L().Warn("dispatch: retire line items", zap.Error(err))
		}
	}

	zap.L().Info("dispatch: quotation sent",
		zap.Int("supplier_id", supplierID),
		zap.String("message_id", msg.MessageID),
		zap.String("provider_id", providerID),
	)

	d.maybeComplete()
	return nil
}

// Retry moves a failed record back to pending. This is the only edge back
// into pending.
func (d *Dispatcher) Retry(supplierID int) error {
	e, ok := d.byID[supplierID]
	if !ok {
		return fmt.Errorf("supplier %d is not enqueued", supplierID)
	}
	if e.record.Status != internal.DispatchFailed {
		return fmt.Errorf("supplier %d is %s; only failed records can be retried", supplierID, e.record.Status)
	}
	e.record.Status = internal.DispatchPending
	e.record.Error = ""
	d.persist(e)
	return nil
}

// Abandon marks a pending or failed record as terminally abandoned.
func (d *Dispatcher) Abandon(supplierID int) error {
	e, ok := d.byID[supplierID]
	if !ok {
		return fmt.Errorf("supplier %d is not enqueued", supplierID)
	}
	if e.record.Status != internal.DispatchPending && e.record.Status != internal.DispatchFailed {
		return fmt.Errorf("supplier %d is %s; cannot abandon", supplierID, e.record.Status)
	}
	e.record.Status = internal.DispatchAbandoned
	e.builder = nil
	d.persist(e)
	d.maybeComplete()
	return nil
}

// Complete reports whether every enqueued supplier reached a terminal state.
func (d *Dispatcher) Complete() bool {
	if len(d.queue) == 0 {
		return false
	}
	for _, e := range d.queue {
		if e.record.Status != internal.DispatchSent && e.record.Status != internal.DispatchAbandoned {
			return false
		}
	}
	return true
}

func (d *Dispatcher) maybeComplete() {
	if !d.Complete() {
		return
	}
	zap.L().Info("dispatch: batch complete", zap.String("batch_id", d.batchID))
	if d.session != nil {
		d.session.Clear()
	}
}

func (d *Dispatcher) persist(e *entry) {
	if d.audit == nil {
		return
	}
	if err := d.audit.UpdateDispatch(d.batchID, e.record.SupplierID, e.record); err != nil {
		zap.L().Warn("dispatch: persist record", zap.Error(err))
	}
}

func (d *Dispatcher) buildMessage(e *entry) (mail.Outbound, error) {
	doc := e.builder.Effective()

	attachments := make([]mail.Attachment, 0, 1+len(e.extra))
	artifact, err := quotation.RenderXLSX(doc)
	if err != nil {
		return mail.Outbound{}, eris.Wrap(err, "dispatch: render quotation")
	}
	attachments = append(attachments, mail.Attachment{
		Filename:    fmt.Sprintf("quotation_%s.xlsx", sanitizeFilename(doc.Order.InvoiceNo)),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     artifact,
	})
	attachments = append(attachments, e.extra...)

	maxBytes := int64(d.cfg.AttachmentMaxMB) * 1024 * 1024
	if err := mail.PreflightAttachments(attachments, maxBytes, d.cfg.PreflightPDFScan); err != nil {
		return mail.Outbound{}, &errs.ValidationError{Field: "attachments", Detail: err.Error()}
	}

	return mail.Outbound{
		MessageID:   fmt.Sprintf("%s@chandler.local", uuid.NewString()),
		FromName:    d.cfg.QuoteSenderName,
		FromEmail:   d.cfg.QuoteSenderEmail,
		To:          doc.Supplier.Email,
		CC:          doc.Supplier.CC,
		ReplyTo:     d.cfg.QuoteReplyTo,
		Subject:     buildSubject(doc),
		TextBody:    buildTextBody(doc),
		HTMLBody:    buildHTMLBody(doc),
		Attachments: attachments,
	}, nil
}

func buildSubject(doc quotation.Document) string {
	parts := []string{"Quotation"}
	if doc.Order.InvoiceNo != "" {
		parts = append(parts, doc.Order.InvoiceNo)
	}
	if doc.Order.ShipName != "" {
		voyage := doc.Order.ShipName
		if doc.Order.VoyageNo != "" {
			voyage += "/" + doc.Order.VoyageNo
		}
		parts = append(parts, voyage)
	}
	return strings.Join(parts, " - ")
}

func buildTextBody(doc quotation.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", doc.Supplier.Name)
	fmt.Fprintf(&b, "Please find attached our quotation request %s", doc.Order.InvoiceNo)
	if doc.Order.ShipName != "" {
		fmt.Fprintf(&b, " for %s", doc.Order.ShipName)
	}
	b.WriteString(".\n\n")
	for _, line := range doc.Lines {
		fmt.Fprintf(&b, "- %s x %s %s @ %s %s\n", line.Name, line.Quantity.String(), line.Unit, line.UnitPrice.Round(currencyPlaces).String(), line.Currency)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nTax: %s\nTotal: %s\n",
		doc.Totals.Subtotal.Round(currencyPlaces).String(),
		doc.Totals.Tax.Round(currencyPlaces).String(),
		doc.Totals.Total.Round(currencyPlaces).String(),
	)
	if doc.Delivery.Port != "" {
		fmt.Fprintf(&b, "\nDelivery: %s %s\n", doc.Delivery.Port, doc.Delivery.Date)
	}
	return b.String()
}

func buildHTMLBody(doc quotation.Document) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>Dear %s,</p><p>Please find attached our quotation request <b>%s</b>.</p>", htmlEscape(doc.Supplier.Name), htmlEscape(doc.Order.InvoiceNo))
	b.WriteString(`<table border="1" cellpadding="4"><tr><th>Code</th><th>Name</th><th>Qty</th><th>Unit</th><th>Unit Price</th><th>Amount</th></tr>`)
	for _, line := range doc.Lines {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			htmlEscape(line.Code), htmlEscape(line.Name), line.Quantity.String(), htmlEscape(line.Unit),
			line.UnitPrice.Round(currencyPlaces).String(), line.Amount.Round(currencyPlaces).String())
	}
	fmt.Fprintf(&b, `</table><p>Subtotal: %s<br>Tax: %s<br>Total: %s</p>`,
		doc.Totals.Subtotal.Round(currencyPlaces).String(),
		doc.Totals.Tax.Round(currencyPlaces).String(),
		doc.Totals.Total.Round(currencyPlaces).String(),
	)
	b.WriteString("</body></html>")
	return b.String()
}

const currencyPlaces = 2

func htmlEscape(s string) string {
	repl := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return repl.Replace(s)
}

func sanitizeFilename(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if out == "" {
		out = "draft"
	}
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}
