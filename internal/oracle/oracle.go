// Package oracle delegates the judgment calls of reconciliation (candidate
// ranking and match analysis) to an LLM behind a narrow interface, so tests
// and callers can swap in deterministic implementations.
package oracle

import (
	"context"

	"github.com/haulview/freightmatch/internal/model"
)

// RankResult is the oracle's answer to "which candidate best matches the
// anchor document". BestIndex is -1 when no candidate is a reasonable match.
type RankResult struct {
	BestIndex  int     `json:"best_match_index"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// None reports whether the oracle declined to pick a candidate.
func (r *RankResult) None() bool {
	return r.BestIndex < 0
}

// Oracle is the comparison oracle consumed by the fuzzy linker and the
// match analyzer.
type Oracle interface {
	// RankPurchaseOrders picks the best candidate PO for an invoice.
	RankPurchaseOrders(ctx context.Context, invoice model.Invoice, candidates []model.PurchaseOrder) (*RankResult, error)

	// RankBillsOfLading picks the best candidate BOL for a resolved
	// PO/invoice pair.
	RankBillsOfLading(ctx context.Context, po model.PurchaseOrder, invoice model.Invoice, candidates []model.BillOfLading) (*RankResult, error)

	// AnalyzeMatch renders a verdict on a resolved triple. bol may be nil
	// (2-way match).
	AnalyzeMatch(ctx context.Context, po model.PurchaseOrder, bol *model.BillOfLading, invoice model.Invoice) (*model.Analysis, error)
}
