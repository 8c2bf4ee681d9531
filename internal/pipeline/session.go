// Package pipeline holds the operator-facing dispatch pipeline: the working
// set of order line items, category grouping, and supplier matching.
package pipeline

import (
	"github.com/google/uuid"

	"chandler/internal"
)

// Session is the operator's pre-send scratch state: the line items pulled into
// the pipeline, the selected suppliers, the category filter and the last batch
// match results. It is explicitly cleared at batch completion or reset; it is
// never persisted across process restarts.
type Session struct {
	BatchID string

	order    []int
	items    map[int]internal.OrderLineItem
	supplier []int

	categoryFilter string
	matches        []internal.MatchResult
}

func NewSession() *Session {
	return &Session{
		BatchID: uuid.NewString(),
		items:   map[int]internal.OrderLineItem{},
	}
}

func (s *Session) Select(item internal.OrderLineItem) {
	if _, ok := s.items[item.ID]; !ok {
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = item
}

func (s *Session) Deselect(itemID int) {
	if _, ok := s.items[itemID]; !ok {
		return
	}
	delete(s.items, itemID)
	for i, id := range s.order {
		if id == itemID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Session) SelectAll(items []internal.OrderLineItem) {
	for _, item := range items {
		s.Select(item)
	}
}

// Clear resets the whole working set and issues a fresh batch id. Called at
// batch completion and on explicit operator reset.
func (s *Session) Clear() {
	s.BatchID = uuid.NewString()
	s.order = nil
	s.items = map[int]internal.OrderLineItem{}
	s.supplier = nil
	s.categoryFilter = ""
	s.matches = nil
}

// Items returns the working set in selection order.
func (s *Session) Items() []internal.OrderLineItem {
	out := make([]internal.OrderLineItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Session) SetCategoryFilter(category string) {
	s.categoryFilter = category
}

func (s *Session) CategoryFilter() string {
	return s.categoryFilter
}

// FilteredItems applies the category filter to the working set.
func (s *Session) FilteredItems() []internal.OrderLineItem {
	if s.categoryFilter == "" {
		return s.Items()
	}
	out := make([]internal.OrderLineItem, 0, len(s.order))
	for _, id := range s.order {
		if s.items[id].Category == s.categoryFilter {
			out = append(out, s.items[id])
		}
	}
	return out
}

func (s *Session) SelectSupplier(supplierID int) {
	for _, id := range s.supplier {
		if id == supplierID {
			return
		}
	}
	s.supplier = append(s.supplier, supplierID)
}

func (s *Session) SelectedSuppliers() []int {
	out := make([]int, len(s.supplier))
	copy(out, s.supplier)
	return out
}

func (s *Session) SetMatches(results []internal.MatchResult) {
	s.matches = results
}

func (s *Session) Matches() []internal.MatchResult {
	return s.matches
}

// ItemIDs returns the ids of the working set in selection order.
func (s *Session) ItemIDs() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
