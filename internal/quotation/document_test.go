package quotation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chandler/internal"
	"chandler/internal/errs"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func supplierX() internal.SupplierRecord {
	return internal.SupplierRecord{ID: 1, Name: "Supplier X", Email: "x@example.test", Active: true}
}

func upload() internal.OrderUpload {
	return internal.OrderUpload{
		ID:        1,
		Reference: "ref-1",
		ShipName:  "MV HARBOR STAR",
		VoyageNo:  "V-204",
		InvoiceNo: "INV-2026-015",
		Port:      "Shanghai",
	}
}

func TestBuildFromItemsDerivesTotals(t *testing.T) {
	items := []internal.OrderLineItem{
		{ID: 1, ProductName: "Mooring Rope", Quantity: dec("10"), UnitPrice: dec("100")},
		{ID: 2, ProductName: "Anchor Chain", Quantity: dec("5"), UnitPrice: dec("200")},
	}

	doc := BuildFromItems(supplierX(), upload(), items, dec("0.1"), "CNY")

	require.Len(t, doc.Lines, 2)
	require.Equal(t, "1000", doc.Lines[0].Amount.String())
	require.Equal(t, "1000", doc.Lines[1].Amount.String())
	require.Equal(t, "2000", doc.Totals.Subtotal.String())
	require.Equal(t, "200", doc.Totals.Tax.String())
	require.Equal(t, "2200", doc.Totals.Total.String())
}

func TestBuildFromItemsSingleLine(t *testing.T) {
	items := []internal.OrderLineItem{
		{ID: 3, ProductName: "Deck Paint", Quantity: dec("2"), UnitPrice: dec("50")},
	}

	doc := BuildFromItems(supplierX(), upload(), items, dec("0.1"), "CNY")

	require.Equal(t, "100", doc.Totals.Subtotal.String())
	require.Equal(t, "10", doc.Totals.Tax.String())
	require.Equal(t, "110", doc.Totals.Total.String())
}

func TestRecomputeKeepsExactDecimals(t *testing.T) {
	doc := Document{
		Lines:  []Line{{Quantity: dec("3"), UnitPrice: dec("0.1")}},
		Totals: Totals{TaxRate: dec("0.1")},
	}
	doc.Recompute()

	require.Equal(t, "0.3", doc.Lines[0].Amount.String())
	require.Equal(t, "0.3", doc.Totals.Subtotal.String())
	require.Equal(t, "0.03", doc.Totals.Tax.String())
	require.Equal(t, "0.33", doc.Totals.Total.String())
}

func TestCloneIsIndependent(t *testing.T) {
	doc := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, Quantity: dec("1"), UnitPrice: dec("10"), ProductName: "Rope"},
	}, dec("0.1"), "CNY")
	doc.Supplier.CC = []string{"cc@example.test"}

	clone := doc.Clone()
	clone.Lines[0].Name = "changed"
	clone.Supplier.CC[0] = "other@example.test"

	require.Equal(t, "Rope", doc.Lines[0].Name)
	require.Equal(t, "cc@example.test", doc.Supplier.CC[0])
}

func TestBuilderModifiedAndEffective(t *testing.T) {
	baseline := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, ProductName: "Rope", Quantity: dec("10"), UnitPrice: dec("100")},
	}, dec("0.1"), "CNY")
	b := NewBuilder(baseline)

	require.False(t, b.Modified())
	require.True(t, b.Effective().Equal(b.Baseline()))

	require.NoError(t, b.SetField("order", "invoice_no", "INV-EDITED"))
	require.True(t, b.Modified())
	require.Equal(t, "INV-EDITED", b.Effective().Order.InvoiceNo)

	// Editing back to the baseline value makes the copies equal again.
	require.NoError(t, b.SetField("order", "invoice_no", "INV-2026-015"))
	require.False(t, b.Modified())
}

func TestBuilderSetLineRecomputes(t *testing.T) {
	baseline := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, ProductName: "Rope", Quantity: dec("10"), UnitPrice: dec("100")},
		{ID: 2, ProductName: "Chain", Quantity: dec("5"), UnitPrice: dec("200")},
	}, dec("0.1"), "CNY")
	b := NewBuilder(baseline)

	require.NoError(t, b.SetLine(0, "quantity", "20"))

	working := b.Working()
	require.Equal(t, "2000", working.Lines[0].Amount.String())
	require.Equal(t, "3000", working.Totals.Subtotal.String())
	require.Equal(t, "300", working.Totals.Tax.String())
	require.Equal(t, "3300", working.Totals.Total.String())

	// Baseline is untouched by working-copy edits.
	require.Equal(t, "2000", b.Baseline().Totals.Subtotal.String())

	require.NoError(t, b.SetLine(1, "unit_price", "1,000"))
	require.Equal(t, "7000", b.Working().Totals.Subtotal.String())
}

func TestBuilderRejectsUnknownFields(t *testing.T) {
	b := NewBuilder(Document{Lines: []Line{{Quantity: dec("1"), UnitPrice: dec("1")}}})

	require.True(t, errs.IsValidation(b.SetField("supplier", "phone", "x")))
	require.True(t, errs.IsValidation(b.SetField("warehouse", "port", "x")))
	require.True(t, errs.IsValidation(b.SetLine(5, "quantity", "1")))
	require.True(t, errs.IsValidation(b.SetLine(0, "quantity", "abc")))
}

func TestBuilderValidate(t *testing.T) {
	baseline := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, ProductName: "Rope", Quantity: dec("10"), UnitPrice: dec("100")},
	}, dec("0.1"), "CNY")

	b := NewBuilder(baseline)
	require.NoError(t, b.Validate())

	require.NoError(t, b.SetField("supplier", "email", " "))
	err := b.Validate()
	require.True(t, errs.IsValidation(err))
	require.Contains(t, err.Error(), "supplier.email")

	b = NewBuilder(baseline)
	require.NoError(t, b.SetField("order", "invoice_no", ""))
	require.True(t, errs.IsValidation(b.Validate()))

	b = NewBuilder(Document{Supplier: SupplierInfo{Email: "x@example.test"}, Order: OrderInfo{InvoiceNo: "INV"}})
	require.True(t, errs.IsValidation(b.Validate()))

	b = NewBuilder(baseline)
	require.NoError(t, b.SetLine(0, "quantity", "0"))
	err = b.Validate()
	require.True(t, errs.IsValidation(err))
	require.Contains(t, err.Error(), "line 1")
}
