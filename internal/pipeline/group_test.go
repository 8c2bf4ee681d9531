package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"chandler/internal"
)

type stubLookup map[string][2]string

func (l stubLookup) Category(productCode string) (string, string, bool) {
	entry, ok := l[productCode]
	if !ok {
		return "", "", false
	}
	return entry[0], entry[1], true
}

func TestGroupByCategory(t *testing.T) {
	lookup := stubLookup{
		"R-1": {"deck", "Deck Stores"},
		"R-2": {"deck", "Deck Stores"},
		"E-1": {"engine", "Engine Stores"},
	}

	items := []internal.OrderLineItem{
		{ID: 1, ProductCode: "R-1", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
		{ID: 2, ProductCode: "E-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
		{ID: 3, ProductCode: "R-2", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(200)},
		{ID: 4, ProductCode: "X-9", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(30)},
	}

	groups := GroupByCategory(items, lookup)
	require.Len(t, groups, 3)

	require.Equal(t, "deck", groups[0].CategoryID)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, "15", groups[0].TotalQuantity.String())
	require.Equal(t, "2000", groups[0].TotalAmount.String())

	require.Equal(t, "engine", groups[1].CategoryID)
	require.Equal(t, "100", groups[1].TotalAmount.String())

	// Lookup misses never fail grouping; they land in the trailing bucket.
	require.Equal(t, UncategorizedGroup, groups[2].CategoryID)
	require.Len(t, groups[2].Items, 1)
	require.Equal(t, 4, groups[2].Items[0].ID)
}

func TestGroupByCategoryEmptyInput(t *testing.T) {
	require.Empty(t, GroupByCategory(nil, stubLookup{}))
}
