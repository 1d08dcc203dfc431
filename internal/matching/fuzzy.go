package matching

import (
	"context"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/oracle"
	"github.com/haulview/freightmatch/internal/store"
)

// FuzzyLinker finds best-candidate documents by oracle ranking when exact
// identifier lookup fails. Oracle failures are downgraded to "no match";
// fuzzy linking is best-effort and never aborts the pipeline.
type FuzzyLinker struct {
	store  store.Store
	oracle oracle.Oracle
	cfg    Config
}

// NewFuzzyLinker constructs a fuzzy linker with the given thresholds.
func NewFuzzyLinker(st store.Store, o oracle.Oracle, cfg Config) *FuzzyLinker {
	return &FuzzyLinker{store: st, oracle: o, cfg: cfg}
}

// POMatch is an accepted fuzzy PO binding.
type POMatch struct {
	PO         *model.PurchaseOrder
	Confidence float64
	Reasoning  string
}

// BOLMatch is an accepted fuzzy BOL binding.
type BOLMatch struct {
	BOL        *model.BillOfLading
	Confidence float64
	Reasoning  string
}

// FindPO ranks unmatched POs against the invoice and returns the best
// candidate if the oracle's confidence clears the PO threshold. A nil
// match with nil error means no acceptable candidate.
func (l *FuzzyLinker) FindPO(ctx context.Context, invoice model.Invoice) (*POMatch, error) {
	candidates, err := l.store.ListPOsByStatus(ctx, model.POStatusPending, model.POStatusBOLReceived)
	if err != nil {
		return nil, eris.Wrap(err, "matching: list unmatched pos")
	}
	if len(candidates) == 0 {
		zap.L().Info("no unmatched POs for fuzzy matching",
			zap.String("invoice_id", invoice.ID))
		return nil, nil
	}

	candidates = prefilterPOs(candidates, invoice.PONumber, l.cfg.MaxCandidates)

	result, err := l.oracle.RankPurchaseOrders(ctx, invoice, candidates)
	if err != nil {
		zap.L().Warn("fuzzy PO ranking failed",
			zap.String("invoice_id", invoice.ID),
			zap.Error(err))
		return nil, nil
	}
	if result.None() {
		return nil, nil
	}
	if result.Confidence < l.cfg.POThreshold {
		zap.L().Info("fuzzy PO match below threshold",
			zap.String("invoice_id", invoice.ID),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", l.cfg.POThreshold))
		return nil, nil
	}

	po := candidates[result.BestIndex]
	return &POMatch{PO: &po, Confidence: result.Confidence, Reasoning: result.Reasoning}, nil
}

// FindBOL ranks unmatched BOLs against a resolved PO/invoice pair. Same
// acceptance semantics as FindPO, against the (looser) BOL threshold.
func (l *FuzzyLinker) FindBOL(ctx context.Context, po model.PurchaseOrder, invoice model.Invoice) (*BOLMatch, error) {
	candidates, err := l.store.ListBOLsByStatus(ctx, model.BOLStatusPending)
	if err != nil {
		return nil, eris.Wrap(err, "matching: list unmatched bols")
	}
	if len(candidates) == 0 {
		zap.L().Info("no unmatched BOLs for fuzzy matching",
			zap.String("invoice_id", invoice.ID))
		return nil, nil
	}

	candidates = prefilterBOLs(candidates, po.PONumber, l.cfg.MaxCandidates)

	result, err := l.oracle.RankBillsOfLading(ctx, po, invoice, candidates)
	if err != nil {
		zap.L().Warn("fuzzy BOL ranking failed",
			zap.String("invoice_id", invoice.ID),
			zap.Error(err))
		return nil, nil
	}
	if result.None() {
		return nil, nil
	}
	if result.Confidence < l.cfg.BOLThreshold {
		zap.L().Info("fuzzy BOL match below threshold",
			zap.String("invoice_id", invoice.ID),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("threshold", l.cfg.BOLThreshold))
		return nil, nil
	}

	bol := candidates[result.BestIndex]
	return &BOLMatch{BOL: &bol, Confidence: result.Confidence, Reasoning: result.Reasoning}, nil
}

// prefilterPOs keeps the max candidates closest to the anchor number by
// edit distance, preserving relative order among equal distances.
func prefilterPOs(pos []model.PurchaseOrder, anchor string, max int) []model.PurchaseOrder {
	if max <= 0 || len(pos) <= max {
		return pos
	}
	sort.SliceStable(pos, func(i, j int) bool {
		return levenshtein.ComputeDistance(pos[i].PONumber, anchor) <
			levenshtein.ComputeDistance(pos[j].PONumber, anchor)
	})
	return pos[:max]
}

func prefilterBOLs(bols []model.BillOfLading, anchor string, max int) []model.BillOfLading {
	if max <= 0 || len(bols) <= max {
		return bols
	}
	sort.SliceStable(bols, func(i, j int) bool {
		return levenshtein.ComputeDistance(bols[i].PONumber, anchor) <
			levenshtein.ComputeDistance(bols[j].PONumber, anchor)
	})
	return bols[:max]
}
