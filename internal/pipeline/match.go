package pipeline

import (
	"context"
	"fmt"
	"sort"

	"chandler/internal"
	"chandler/internal/config"
	"chandler/internal/util"
)

// ProductSource supplies candidate products for one category. An empty
// category means the full catalog.
type ProductSource interface {
	CandidatesForCategory(ctx context.Context, category string) ([]internal.CatalogProduct, error)
}

// Matcher scores order line items against catalog candidates. It is pure with
// respect to (line item, candidate set): identical inputs produce identical
// results, so a batch is safe to re-run.
type Matcher struct {
	cfg    config.Config
	source ProductSource
}

func NewMatcher(cfg config.Config, source ProductSource) *Matcher {
	return &Matcher{cfg: cfg, source: source}
}

// MatchBatch matches every line item and always yields exactly one result per
// input. A candidate lookup failure is isolated to its item: the result
// carries status "error" and the reason, and the batch continues.
func (m *Matcher) MatchBatch(ctx context.Context, items []internal.OrderLineItem) internal.BatchMatchSummary {
	summary := internal.BatchMatchSummary{
		TotalItems: len(items),
		Results:    make([]internal.MatchResult, 0, len(items)),
	}

	for _, item := range items {
		result := m.MatchLine(ctx, item)
		summary.Results = append(summary.Results, result)
		if result.Status == internal.MatchMatched {
			summary.MatchedItems++
		} else {
			summary.UnmatchedItems++
		}
	}

	return summary
}

func (m *Matcher) MatchLine(ctx context.Context, item internal.OrderLineItem) internal.MatchResult {
	candidates, err := m.source.CandidatesForCategory(ctx, item.Category)
	if err != nil {
		return internal.MatchResult{
			LineItemID: item.ID,
			Status:     internal.MatchError,
			Score:      0,
			Reason:     fmt.Sprintf("candidate lookup failed: %v", err),
		}
	}
	if len(candidates) == 0 {
		return internal.MatchResult{
			LineItemID: item.ID,
			Status:     internal.MatchNotFound,
			Score:      0,
			Reason:     "no candidate products",
		}
	}

	itemCode := util.NormalizeCode(item.ProductCode)
	itemTokens := util.Tokenize(item.ProductName)

	type scored struct {
		product internal.CatalogProduct
		score   float64
		reason  string
	}

	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		score, reason := scoreCandidate(item, itemCode, itemTokens, candidate, m.cfg.CategoryMissCap)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{product: candidate, score: score, reason: reason})
	}

	if len(ranked) == 0 {
		return internal.MatchResult{
			LineItemID: item.ID,
			Status:     internal.MatchNotFound,
			Score:      0,
			Reason:     "no similar products in category",
		}
	}

	// Deterministic order: score desc, then code asc, then id asc.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].product.Code != ranked[j].product.Code {
			return ranked[i].product.Code < ranked[j].product.Code
		}
		return ranked[i].product.ID < ranked[j].product.ID
	})

	best := ranked[0]
	return internal.MatchResult{
		LineItemID: item.ID,
		Status:     m.classify(best.score),
		Score:      best.score,
		Reason:     best.reason,
		Product:    toMatchedProduct(best.product),
	}
}

// scoreCandidate implements the scoring heuristic: exact normalized code
// equality scores 1.0; otherwise the token-overlap ratio between normalized
// names is scaled into [0.6, 0.9]. A category mismatch caps the score at the
// configured ceiling regardless of name similarity. Zero overlap disqualifies
// the candidate.
func scoreCandidate(item internal.OrderLineItem, itemCode string, itemTokens []string, candidate internal.CatalogProduct, categoryMissCap float64) (float64, string) {
	score := 0.0
	reason := ""

	candidateCode := util.NormalizeCode(candidate.Code)
	if itemCode != "" && itemCode == candidateCode {
		score = 1.0
		reason = "exact product code match"
	} else {
		names := [][]string{util.Tokenize(candidate.Name)}
		if candidate.AltName != nil {
			names = append(names, util.Tokenize(*candidate.AltName))
		}
		ratio := 0.0
		for _, tokens := range names {
			if r := util.TokenOverlap(itemTokens, tokens); r > ratio {
				ratio = r
			}
		}
		if ratio <= 0 {
			return 0, ""
		}
		score = 0.6 + 0.3*ratio
		reason = fmt.Sprintf("name similarity %.2f", ratio)
	}

	if item.Category != "" && candidate.Category != "" && item.Category != candidate.Category {
		if score > categoryMissCap {
			score = categoryMissCap
			reason = fmt.Sprintf("category mismatch (%s vs %s)", item.Category, candidate.Category)
		}
	}

	return score, reason
}

func (m *Matcher) classify(score float64) internal.MatchStatus {
	switch {
	case score >= m.cfg.MatchedThreshold:
		return internal.MatchMatched
	case score < m.cfg.NotFoundThreshold:
		return internal.MatchNotFound
	default:
		return internal.MatchPossible
	}
}

func toMatchedProduct(p internal.CatalogProduct) *internal.MatchedProduct {
	id := p.ID
	code := p.Code
	name := p.Name
	category := p.Category
	return &internal.MatchedProduct{
		ID:       &id,
		SyncUID:  p.SyncUID,
		Code:     &code,
		Name:     &name,
		Category: &category,
		Unit:     p.Unit,
	}
}
