package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chandler/internal"
	"chandler/internal/config"
	"chandler/internal/storage"
)

func TestMatchUploadEndToEnd(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.UpsertProducts([]internal.CatalogProduct{
		{ID: 1, Code: "IMPA-210501", Name: "Mooring Rope 24mm", Category: "deck", RawJSON: "{}"},
		{ID: 2, Code: "IMPA-610233", Name: "Piston Ring Set", Category: "engine", RawJSON: "{}"},
	}))

	upload, err := db.UpsertUpload(internal.OrderUpload{Reference: "mail-001", InvoiceNo: "INV-1", Status: "received"})
	require.NoError(t, err)

	one := decimal.NewFromInt(1)
	require.NoError(t, db.InsertOrderItems(upload.ID, []internal.OrderLineItem{
		{ProductCode: "IMPA-210501", ProductName: "rope", Category: "deck", Quantity: one, UnitPrice: one},
		{ProductName: "galley provisions", Category: "provisions", Quantity: one, UnitPrice: one},
	}))

	svc := NewBatchService(db, config.Config{MatchedThreshold: 0.85, NotFoundThreshold: 0.40, CategoryMissCap: 0.40})

	summary, err := svc.MatchUpload(context.Background(), upload.ID)
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalItems)
	require.Equal(t, 1, summary.MatchedItems)
	require.Equal(t, internal.MatchMatched, summary.Results[0].Status)

	// Items moved out of pending.
	items, err := db.ListOrderItemsByUpload(upload.ID)
	require.NoError(t, err)
	require.Equal(t, internal.ItemProcessing, items[0].Status)
	require.Equal(t, internal.ItemProcessing, items[1].Status)

	// Re-running with unchanged inputs yields identical per-line results.
	again, err := svc.MatchUpload(context.Background(), upload.ID)
	require.NoError(t, err)
	require.Equal(t, summary.Results, again.Results)

	_, err = svc.MatchUpload(context.Background(), 999)
	require.ErrorContains(t, err, "not found")
}
