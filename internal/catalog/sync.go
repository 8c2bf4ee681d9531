package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chandler/internal/config"
	"chandler/internal/storage"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg}
}

// SyncProducts pulls the full product catalog into the local store.
func (s *SyncService) SyncProducts(ctx context.Context) (int, error) {
	products, err := s.client.AllProducts(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertProducts(products); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_product_sync", time.Now().UTC().Format(time.RFC3339))
	zap.L().Info("catalog: product sync complete", zap.Int("products", len(products)))
	return len(products), nil
}

// SyncSuppliers pulls the supplier master data into the local store.
func (s *SyncService) SyncSuppliers(ctx context.Context) (int, error) {
	suppliers, err := s.client.SuppliersByCategory(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertSuppliers(suppliers); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("catalog.last_supplier_sync", time.Now().UTC().Format(time.RFC3339))
	zap.L().Info("catalog: supplier sync complete", zap.Int("suppliers", len(suppliers)))
	return len(suppliers), nil
}
