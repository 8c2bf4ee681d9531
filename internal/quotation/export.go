package quotation

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// currencyPlaces is the display precision. Values are rounded here and only
// here; the document itself stays exact.
const currencyPlaces = 2

// RenderXLSX renders the quotation document to the xlsx artifact attached to
// the outbound mail.
func RenderXLSX(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}

	set(1, 1, "Supplier")
	set(2, 1, doc.Supplier.Name)
	set(1, 2, "Email")
	set(2, 2, doc.Supplier.Email)
	set(1, 3, "Ship")
	set(2, 3, doc.Order.ShipName)
	set(3, 3, "Voyage")
	set(4, 3, doc.Order.VoyageNo)
	set(1, 4, "Invoice No")
	set(2, 4, doc.Order.InvoiceNo)
	set(3, 4, "Order Date")
	set(4, 4, doc.Order.Date)
	set(1, 5, "Delivery Port")
	set(2, 5, doc.Delivery.Port)
	set(3, 5, "Delivery Date")
	set(4, 5, doc.Delivery.Date)

	headers := []string{"code", "name", "alt_name", "quantity", "unit", "unit_price", "amount", "currency"}
	headerRow := 7
	for i, h := range headers {
		set(i+1, headerRow, h)
	}

	for i, line := range doc.Lines {
		r := headerRow + 1 + i
		set(1, r, line.Code)
		set(2, r, line.Name)
		set(3, r, line.AltName)
		set(4, r, line.Quantity.String())
		set(5, r, line.Unit)
		set(6, r, line.UnitPrice.Round(currencyPlaces).String())
		set(7, r, line.Amount.Round(currencyPlaces).String())
		set(8, r, line.Currency)
	}

	totalsRow := headerRow + len(doc.Lines) + 2
	set(6, totalsRow, "Subtotal")
	set(7, totalsRow, doc.Totals.Subtotal.Round(currencyPlaces).String())
	set(6, totalsRow+1, "Tax ("+doc.Totals.TaxRate.String()+")")
	set(7, totalsRow+1, doc.Totals.Tax.Round(currencyPlaces).String())
	set(6, totalsRow+2, "Total")
	set(7, totalsRow+2, doc.Totals.Total.Round(currencyPlaces).String())

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportXLSX writes the rendered document to disk, creating the output
// directory as needed.
func ExportXLSX(doc Document, outputPath string) error {
	blob, err := RenderXLSX(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, blob, 0o644)
}
