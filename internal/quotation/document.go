// Package quotation assembles and edits the per-supplier quotation document.
// Monetary values stay exact decimals throughout; rounding to currency
// precision happens only when a document is rendered.
package quotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chandler/internal"
	"chandler/internal/errs"
	"chandler/internal/util"
)

type SupplierInfo struct {
	Name    string
	Email   string
	CC      []string
	Contact string
}

type OrderInfo struct {
	Date      string
	InvoiceNo string
	VoyageNo  string
	ShipName  string
}

type DeliveryInfo struct {
	Port    string
	Date    string
	Address string
	Notes   string
}

type Line struct {
	Code      string
	Name      string
	AltName   string
	Quantity  decimal.Decimal
	Unit      string
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	Currency  string
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	TaxRate  decimal.Decimal
}

type Document struct {
	Supplier SupplierInfo
	Order    OrderInfo
	Delivery DeliveryInfo
	Lines    []Line
	Totals   Totals
}

// Clone returns an independent deep copy. Decimal values are immutable, so
// copying the line slice is sufficient.
func (d Document) Clone() Document {
	out := d
	out.Supplier.CC = append([]string(nil), d.Supplier.CC...)
	out.Lines = append([]Line(nil), d.Lines...)
	return out
}

// Recompute re-derives every line amount and the three totals in one step,
// so amounts and totals can never be observed disagreeing.
func (d *Document) Recompute() {
	subtotal := decimal.Zero
	for i := range d.Lines {
		d.Lines[i].Amount = d.Lines[i].Quantity.Mul(d.Lines[i].UnitPrice)
		subtotal = subtotal.Add(d.Lines[i].Amount)
	}
	d.Totals.Subtotal = subtotal
	d.Totals.Tax = subtotal.Mul(d.Totals.TaxRate)
	d.Totals.Total = subtotal.Add(d.Totals.Tax)
}

// Equal deep-compares two documents using exact decimal equality.
func (d Document) Equal(other Document) bool {
	if d.Supplier.Name != other.Supplier.Name ||
		d.Supplier.Email != other.Supplier.Email ||
		d.Supplier.Contact != other.Supplier.Contact ||
		strings.Join(d.Supplier.CC, ",") != strings.Join(other.Supplier.CC, ",") {
		return false
	}
	if d.Order != other.Order || d.Delivery != other.Delivery {
		return false
	}
	if !d.Totals.Subtotal.Equal(other.Totals.Subtotal) ||
		!d.Totals.Tax.Equal(other.Totals.Tax) ||
		!d.Totals.Total.Equal(other.Totals.Total) ||
		!d.Totals.TaxRate.Equal(other.Totals.TaxRate) {
		return false
	}
	if len(d.Lines) != len(other.Lines) {
		return false
	}
	for i := range d.Lines {
		a, b := d.Lines[i], other.Lines[i]
		if a.Code != b.Code || a.Name != b.Name || a.AltName != b.AltName ||
			a.Unit != b.Unit || a.Currency != b.Currency {
			return false
		}
		if !a.Quantity.Equal(b.Quantity) || !a.UnitPrice.Equal(b.UnitPrice) || !a.Amount.Equal(b.Amount) {
			return false
		}
	}
	return true
}

// Previewer is the external collaborator that renders a read-only quotation
// preview for a supplier before any edits.
type Previewer interface {
	Preview(ctx context.Context, supplierID int) (Document, error)
}

// BuildFromItems constructs a baseline document for one supplier from the
// line items assigned to it.
func BuildFromItems(supplier internal.SupplierRecord, upload internal.OrderUpload, items []internal.OrderLineItem, taxRate decimal.Decimal, currency string) Document {
	doc := Document{
		Supplier: SupplierInfo{
			Name:  supplier.Name,
			Email: supplier.Email,
			CC:    append([]string(nil), supplier.CC...),
		},
		Order: OrderInfo{
			Date:      upload.ReceivedAt,
			InvoiceNo: upload.InvoiceNo,
			VoyageNo:  upload.VoyageNo,
			ShipName:  upload.ShipName,
		},
		Delivery: DeliveryInfo{
			Port: upload.Port,
		},
		Totals: Totals{TaxRate: taxRate},
	}

	for _, item := range items {
		doc.Lines = append(doc.Lines, Line{
			Code:      item.ProductCode,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			Currency:  currency,
		})
	}

	doc.Recompute()
	return doc
}

// Builder owns the pristine baseline snapshot and the editable working copy
// of one supplier's quotation document.
type Builder struct {
	baseline Document
	working  Document
}

// Open fetches the baseline document from the previewer and takes an
// independent deep copy as the working copy.
func Open(ctx context.Context, supplierID int, previewer Previewer) (*Builder, error) {
	baseline, err := previewer.Preview(ctx, supplierID)
	if err != nil {
		return nil, &errs.NetworkError{Op: "quotation preview", Err: err}
	}
	return NewBuilder(baseline), nil
}

func NewBuilder(baseline Document) *Builder {
	base := baseline.Clone()
	base.Recompute()
	return &Builder{baseline: base, working: base.Clone()}
}

func (b *Builder) Baseline() Document { return b.baseline.Clone() }

func (b *Builder) Working() Document { return b.working.Clone() }

// Modified reports whether the working copy has diverged from the baseline,
// which decides whether downstream generation uses the edited payload or
// regenerates from the original request.
func (b *Builder) Modified() bool {
	return !b.working.Equal(b.baseline)
}

// SetField merges one header field into the working copy only. Sections:
// supplier, order, delivery.
func (b *Builder) SetField(section, field, value string) error {
	section = strings.ToLower(strings.TrimSpace(section))
	field = strings.ToLower(strings.TrimSpace(field))

	switch section {
	case "supplier":
		switch field {
		case "name":
			b.working.Supplier.Name = value
		case "email":
			b.working.Supplier.Email = value
		case "contact":
			b.working.Supplier.Contact = value
		default:
			return &errs.ValidationError{Field: section + "." + field, Detail: "unknown field"}
		}
	case "order":
		switch field {
		case "date":
			b.working.Order.Date = value
		case "invoice_no":
			b.working.Order.InvoiceNo = value
		case "voyage_no":
			b.working.Order.VoyageNo = value
		case "ship_name":
			b.working.Order.ShipName = value
		default:
			return &errs.ValidationError{Field: section + "." + field, Detail: "unknown field"}
		}
	case "delivery":
		switch field {
		case "port":
			b.working.Delivery.Port = value
		case "date":
			b.working.Delivery.Date = value
		case "address":
			b.working.Delivery.Address = value
		case "notes":
			b.working.Delivery.Notes = value
		default:
			return &errs.ValidationError{Field: section + "." + field, Detail: "unknown field"}
		}
	default:
		return &errs.ValidationError{Field: section, Detail: "unknown section"}
	}
	return nil
}

// SetLine edits one line entry of the working copy. Editing quantity or
// unit_price recomputes that line's amount and all totals in the same call.
func (b *Builder) SetLine(index int, field, value string) error {
	if index < 0 || index >= len(b.working.Lines) {
		return &errs.ValidationError{Field: "line", Detail: "index out of range"}
	}

	switch strings.ToLower(strings.TrimSpace(field)) {
	case "quantity":
		qty, err := util.ParseAmount(value)
		if err != nil {
			return &errs.ValidationError{Field: "quantity", Detail: err.Error()}
		}
		b.working.Lines[index].Quantity = qty
		b.working.Recompute()
	case "unit_price":
		price, err := util.ParseAmount(value)
		if err != nil {
			return &errs.ValidationError{Field: "unit_price", Detail: err.Error()}
		}
		b.working.Lines[index].UnitPrice = price
		b.working.Recompute()
	case "name":
		b.working.Lines[index].Name = value
	case "alt_name":
		b.working.Lines[index].AltName = value
	case "unit":
		b.working.Lines[index].Unit = value
	case "currency":
		b.working.Lines[index].Currency = value
	default:
		return &errs.ValidationError{Field: field, Detail: "unknown line field"}
	}
	return nil
}

// Effective returns the document downstream generation should use: the edited
// working copy when modified, otherwise the pristine baseline.
func (b *Builder) Effective() Document {
	if b.Modified() {
		return b.Working()
	}
	return b.Baseline()
}

// Validate checks the required fields before generation or send.
func (b *Builder) Validate() error {
	doc := b.working
	if strings.TrimSpace(doc.Supplier.Email) == "" {
		return &errs.ValidationError{Field: "supplier.email", Detail: "required before send"}
	}
	if strings.TrimSpace(doc.Order.InvoiceNo) == "" {
		return &errs.ValidationError{Field: "order.invoice_no", Detail: "required before send"}
	}
	if len(doc.Lines) == 0 {
		return &errs.ValidationError{Field: "lines", Detail: "document has no line entries"}
	}
	for i, line := range doc.Lines {
		if line.Quantity.Sign() <= 0 {
			return &errs.ValidationError{Field: "quantity", Detail: lineDetail(i, "must be positive")}
		}
		if line.UnitPrice.Sign() < 0 {
			return &errs.ValidationError{Field: "unit_price", Detail: lineDetail(i, "must not be negative")}
		}
	}
	return nil
}

func lineDetail(index int, msg string) string {
	return fmt.Sprintf("line %d: %s", index+1, msg)
}
