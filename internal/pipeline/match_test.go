package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"chandler/internal"
	"chandler/internal/config"
)

type stubSource struct {
	products map[string][]internal.CatalogProduct
	err      map[string]error
}

func (s *stubSource) CandidatesForCategory(_ context.Context, category string) ([]internal.CatalogProduct, error) {
	if err, ok := s.err[category]; ok {
		return nil, err
	}
	return s.products[category], nil
}

func matchConfig() config.Config {
	return config.Config{
		MatchedThreshold:  0.85,
		NotFoundThreshold: 0.40,
		CategoryMissCap:   0.40,
	}
}

func product(id int, code, name, category string) internal.CatalogProduct {
	return internal.CatalogProduct{ID: id, Code: code, Name: name, Category: category}
}

func TestMatchLineExactCode(t *testing.T) {
	source := &stubSource{products: map[string][]internal.CatalogProduct{
		"deck": {
			product(1, "IMPA-210501", "Mooring Rope 24mm", "deck"),
			product(2, "IMPA-210502", "Mooring Rope 32mm", "deck"),
		},
	}}
	matcher := NewMatcher(matchConfig(), source)

	result := matcher.MatchLine(context.Background(), internal.OrderLineItem{
		ID:          10,
		ProductCode: "impa 210501",
		ProductName: "rope",
		Category:    "deck",
	})

	require.Equal(t, internal.MatchMatched, result.Status)
	require.Equal(t, 1.0, result.Score)
	require.NotNil(t, result.Product)
	require.Equal(t, 1, *result.Product.ID)
}

func TestMatchLineNameSimilarity(t *testing.T) {
	source := &stubSource{products: map[string][]internal.CatalogProduct{
		"deck": {
			product(1, "A-1", "Mooring Rope 24mm", "deck"),
			product(2, "A-2", "Anchor Chain", "deck"),
		},
	}}
	matcher := NewMatcher(matchConfig(), source)

	// All three name tokens overlap: score = 0.6 + 0.3*1.0 = 0.9 >= 0.85.
	result := matcher.MatchLine(context.Background(), internal.OrderLineItem{
		ID:          11,
		ProductName: "mooring rope 24mm",
		Category:    "deck",
	})
	require.Equal(t, internal.MatchMatched, result.Status)
	require.InDelta(t, 0.9, result.Score, 1e-9)

	// Partial overlap lands between the thresholds.
	result = matcher.MatchLine(context.Background(), internal.OrderLineItem{
		ID:          12,
		ProductName: "mooring rope 32mm",
		Category:    "deck",
	})
	require.Equal(t, internal.MatchPossible, result.Status)
	require.InDelta(t, 0.8, result.Score, 1e-9)
}

func TestMatchLineNoOverlapIsNotMatched(t *testing.T) {
	source := &stubSource{products: map[string][]internal.CatalogProduct{
		"deck": {product(1, "A-1", "Mooring Rope 24mm", "deck")},
	}}
	matcher := NewMatcher(matchConfig(), source)

	result := matcher.MatchLine(context.Background(), internal.OrderLineItem{
		ID:          13,
		ProductName: "engine oil filter",
		Category:    "deck",
	})
	require.Equal(t, internal.MatchNotFound, result.Status)
	require.Nil(t, result.Product)
}

func TestMatchLineCategoryMismatchCapsScore(t *testing.T) {
	source := &stubSource{products: map[string][]internal.CatalogProduct{
		"deck": {product(1, "A-1", "Mooring Rope 24mm", "engine")},
	}}
	matcher := NewMatcher(matchConfig(), source)

	result := matcher.MatchLine(context.Background(), internal.OrderLineItem{
		ID:          14,
		ProductName: "mooring rope 24mm",
		Category:    "deck",
	})
	// Capped exactly at the not-found boundary, so it stays reviewable.
	require.Equal(t, internal.MatchPossible, result.Status)
	require.InDelta(t, 0.40, result.Score, 1e-9)
	require.Contains(t, result.Reason, "category mismatch")
}

func TestMatchLineTieBreakIsDeterministic(t *testing.T) {
	source := &stubSource{products: map[string][]internal.CatalogProduct{
		"deck": {
			product(7, "B-2", "Mooring Rope", "deck"),
			product(3, "B-1", "Mooring Rope", "deck"),
		},
	}}
	matcher := NewMatcher(matchConfig(), source)

	item := internal.OrderLineItem{ID: 15, ProductName: "mooring rope", Category: "deck"}
	first := matcher.MatchLine(context.Background(), item)
	second := matcher.MatchLine(context.Background(), item)

	require.Equal(t, first, second)
	require.Equal(t, "B-1", *first.Product.Code)
}

func TestMatchBatchIsolatesLookupFailures(t *testing.T) {
	source := &stubSource{
		products: map[string][]internal.CatalogProduct{
			"deck": {product(1, "A-1", "Mooring Rope 24mm", "deck")},
		},
		err: map[string]error{"engine": fmt.Errorf("masterdata unavailable")},
	}
	matcher := NewMatcher(matchConfig(), source)

	summary := matcher.MatchBatch(context.Background(), []internal.OrderLineItem{
		{ID: 1, ProductName: "mooring rope 24mm", Category: "deck"},
		{ID: 2, ProductName: "piston ring", Category: "engine"},
		{ID: 3, ProductName: "mooring rope 24mm", Category: "deck"},
	})

	require.Equal(t, 3, summary.TotalItems)
	require.Len(t, summary.Results, 3)
	require.Equal(t, internal.MatchMatched, summary.Results[0].Status)
	require.Equal(t, internal.MatchError, summary.Results[1].Status)
	require.Contains(t, summary.Results[1].Reason, "masterdata unavailable")
	require.Equal(t, internal.MatchMatched, summary.Results[2].Status)
	require.Equal(t, 2, summary.MatchedItems)
	require.Equal(t, 1, summary.UnmatchedItems)
}
