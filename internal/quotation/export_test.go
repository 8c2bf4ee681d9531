package quotation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"chandler/internal"
)

func TestRenderXLSXRoundsForDisplayOnly(t *testing.T) {
	doc := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, ProductCode: "R-1", ProductName: "Rope", Quantity: dec("3"), UnitPrice: dec("0.333")},
	}, dec("0.1"), "CNY")

	blob, err := RenderXLSX(doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)

	name, err := f.GetCellValue(sheet, "B1")
	require.NoError(t, err)
	require.Equal(t, "Supplier X", name)

	invoice, err := f.GetCellValue(sheet, "B4")
	require.NoError(t, err)
	require.Equal(t, "INV-2026-015", invoice)

	// Line row starts under the header row; unit price is shown rounded to
	// two places while the document keeps the exact value.
	price, err := f.GetCellValue(sheet, "F8")
	require.NoError(t, err)
	require.Equal(t, "0.33", price)
	require.Equal(t, "0.333", doc.Lines[0].UnitPrice.String())

	amount, err := f.GetCellValue(sheet, "G8")
	require.NoError(t, err)
	require.Equal(t, "1", amount)
}

func TestExportXLSXCreatesFile(t *testing.T) {
	doc := BuildFromItems(supplierX(), upload(), []internal.OrderLineItem{
		{ID: 1, ProductCode: "R-1", ProductName: "Rope", Quantity: dec("10"), UnitPrice: dec("100")},
	}, dec("0.1"), "CNY")

	out := filepath.Join(t.TempDir(), "nested", "quote.xlsx")
	require.NoError(t, ExportXLSX(doc, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
