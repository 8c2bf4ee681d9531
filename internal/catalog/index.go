package catalog

import (
	"chandler/internal"
	"chandler/internal/util"
)

// Index is the in-memory lookup structure the matcher runs against. Built
// once per batch from the synced catalog.
type Index struct {
	ProductsByID       map[int]internal.CatalogProduct
	ByCode             map[string][]internal.CatalogProduct
	ByCategory         map[string][]internal.CatalogProduct
	NormalizedNameByID map[int]string
}

func BuildIndex(products []internal.CatalogProduct) *Index {
	idx := &Index{
		ProductsByID:       map[int]internal.CatalogProduct{},
		ByCode:             map[string][]internal.CatalogProduct{},
		ByCategory:         map[string][]internal.CatalogProduct{},
		NormalizedNameByID: map[int]string{},
	}

	for _, p := range products {
		idx.ProductsByID[p.ID] = p
		idx.NormalizedNameByID[p.ID] = util.NormalizeName(p.Name)
		idx.ByCategory[p.Category] = append(idx.ByCategory[p.Category], p)

		addCode := func(code string) {
			norm := util.NormalizeCode(code)
			if norm == "" {
				return
			}
			idx.ByCode[norm] = append(idx.ByCode[norm], p)
		}

		addCode(p.Code)
		if p.SyncUID != nil {
			addCode(*p.SyncUID)
		}
	}

	return idx
}

// Candidates returns the category-scoped candidate set, falling back to the
// full catalog when the category has no entries.
func (idx *Index) Candidates(category string) []internal.CatalogProduct {
	if scoped, ok := idx.ByCategory[category]; ok && len(scoped) > 0 {
		return scoped
	}
	out := make([]internal.CatalogProduct, 0, len(idx.ProductsByID))
	for _, p := range idx.ProductsByID {
		out = append(out, p)
	}
	return out
}
