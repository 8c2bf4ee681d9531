package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"chandler/internal"
)

// UncategorizedGroup collects line items whose product has no category in the
// master data. Grouping never fails on a lookup miss.
const UncategorizedGroup = "uncategorized"

// CategoryLookup resolves a product code to its category id and display name.
// A miss is reported as found=false, not as an error.
type CategoryLookup interface {
	Category(productCode string) (id string, name string, found bool)
}

// GroupByCategory partitions the working set by product category and computes
// per-category quantity and amount totals. Groups come back sorted by
// category id, with the uncategorized group last.
func GroupByCategory(items []internal.OrderLineItem, lookup CategoryLookup) []internal.CategoryGroup {
	byID := map[string]*internal.CategoryGroup{}

	for _, item := range items {
		id, name, found := lookup.Category(item.ProductCode)
		if !found {
			id, name = UncategorizedGroup, "Uncategorized"
		}

		group, ok := byID[id]
		if !ok {
			group = &internal.CategoryGroup{
				CategoryID:    id,
				CategoryName:  name,
				TotalQuantity: decimal.Zero,
				TotalAmount:   decimal.Zero,
			}
			byID[id] = group
		}

		group.Items = append(group.Items, item)
		group.TotalQuantity = group.TotalQuantity.Add(item.Quantity)
		group.TotalAmount = group.TotalAmount.Add(item.Quantity.Mul(item.UnitPrice))
	}

	out := make([]internal.CategoryGroup, 0, len(byID))
	for _, group := range byID {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CategoryID == UncategorizedGroup {
			return false
		}
		if out[j].CategoryID == UncategorizedGroup {
			return true
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
