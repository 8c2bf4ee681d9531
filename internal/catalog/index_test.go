package catalog

import (
	"testing"

	"chandler/internal"
	"chandler/internal/util"
)

func TestBuildIndexAndCandidates(t *testing.T) {
	products := []internal.CatalogProduct{
		{ID: 1, Code: "r 1", Name: "Mooring Rope", Category: "deck", SyncUID: util.StringPtr("uid-1")},
		{ID: 2, Code: "E-1", Name: "Piston Ring", Category: "engine"},
	}

	idx := BuildIndex(products)

	if len(idx.ProductsByID) != 2 {
		t.Fatalf("products=%d", len(idx.ProductsByID))
	}
	if got := idx.NormalizedNameByID[1]; got != "MOORING ROPE" {
		t.Fatalf("normalized name %q", got)
	}
	if len(idx.ByCode["R1"]) != 1 {
		t.Fatalf("code lookup failed: %+v", idx.ByCode)
	}
	if len(idx.ByCode["UID-1"]) != 1 {
		t.Fatalf("syncUid lookup failed")
	}

	if got := idx.Candidates("deck"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("deck candidates: %+v", got)
	}
	// Unknown category falls back to the full catalog.
	if got := idx.Candidates("provisions"); len(got) != 2 {
		t.Fatalf("fallback candidates: %+v", got)
	}
}
