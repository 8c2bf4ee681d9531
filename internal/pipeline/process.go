package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chandler/internal"
	"chandler/internal/catalog"
	"chandler/internal/config"
	"chandler/internal/storage"
)

// BatchService runs the batch-match stage against the local store.
type BatchService struct {
	db  *storage.DB
	cfg config.Config
}

func NewBatchService(db *storage.DB, cfg config.Config) *BatchService {
	return &BatchService{db: db, cfg: cfg}
}

// indexSource adapts the in-memory catalog index to the matcher's
// ProductSource.
type indexSource struct {
	idx *catalog.Index
}

func (s indexSource) CandidatesForCategory(_ context.Context, category string) ([]internal.CatalogProduct, error) {
	return s.idx.Candidates(category), nil
}

// MatchUpload matches every line item of one order upload and moves the items
// to processing. Re-running with unchanged inputs produces identical results.
func (s *BatchService) MatchUpload(ctx context.Context, uploadID int) (internal.BatchMatchSummary, error) {
	start := time.Now()

	upload, err := s.db.GetUploadByID(uploadID)
	if err != nil {
		return internal.BatchMatchSummary{}, err
	}
	if upload == nil {
		return internal.BatchMatchSummary{}, fmt.Errorf("order upload not found: id=%d", uploadID)
	}

	items, err := s.db.ListOrderItemsByUpload(uploadID)
	if err != nil {
		return internal.BatchMatchSummary{}, err
	}

	products, err := s.db.ListProducts()
	if err != nil {
		return internal.BatchMatchSummary{}, err
	}

	matcher := NewMatcher(s.cfg, indexSource{idx: catalog.BuildIndex(products)})
	summary := matcher.MatchBatch(ctx, items)

	itemIDs := make([]int, 0, len(items))
	for _, item := range items {
		if item.Status == internal.ItemPending {
			itemIDs = append(itemIDs, item.ID)
		}
	}
	if len(itemIDs) > 0 {
		if err := s.db.UpdateOrderItemStatus(itemIDs, internal.ItemProcessing); err != nil {
			return internal.BatchMatchSummary{}, err
		}
	}

	counts := map[string]int{
		"total":   summary.TotalItems,
		"matched": summary.MatchedItems,
	}
	for _, r := range summary.Results {
		switch r.Status {
		case internal.MatchPossible:
			counts["possible"]++
		case internal.MatchNotFound:
			counts["notFound"]++
		case internal.MatchError:
			counts["errors"]++
		}
	}
	_ = s.db.InsertRun(uuid.NewString(), "", map[string]float64{
		"totalMs": float64(time.Since(start).Milliseconds()),
	}, counts)

	zap.L().Info("pipeline: batch match complete",
		zap.Int("upload_id", uploadID),
		zap.Int("total", summary.TotalItems),
		zap.Int("matched", summary.MatchedItems),
	)

	return summary, nil
}
