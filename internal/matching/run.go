package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/oracle"
	"github.com/haulview/freightmatch/internal/store"
)

// Engine orchestrates one reconciliation run per invoice:
// fetch documents → analyze → save result → update statuses.
// Stage-local failures are converted into a structured MatchRun; a run
// never panics or crashes its worker.
type Engine struct {
	store    store.Store
	fuzzy    *FuzzyLinker
	analyzer *Analyzer
	coord    *Coordinator
	cfg      Config
}

// NewEngine wires the pipeline components around one store and oracle.
func NewEngine(st store.Store, o oracle.Oracle, cfg Config) *Engine {
	return &Engine{
		store:    st,
		fuzzy:    NewFuzzyLinker(st, o, cfg),
		analyzer: NewAnalyzer(o),
		coord:    NewCoordinator(st),
		cfg:      cfg,
	}
}

// resolution carries the triple plus how the PO linkage was established.
type resolution struct {
	triple     *Triple
	matchType  model.MatchType
	confidence float64
}

// Run executes a full reconciliation for one invoice. Re-running appends a
// new MatchResult row; the latest row per invoice is authoritative.
func (e *Engine) Run(ctx context.Context, invoiceID string) model.MatchRun {
	log := zap.L().With(zap.String("invoice_id", invoiceID))

	// FETCH_DOCUMENTS
	res, err := e.resolve(ctx, invoiceID)
	if err != nil {
		log.Warn("document resolution failed", zap.Error(err))
		return model.MatchRun{Error: err.Error()}
	}
	e.recordLinkage(ctx, res, log)

	// ANALYZE: oracle failure aborts the run, nothing is persisted.
	analysis, err := e.analyzer.Analyze(ctx, res.triple)
	if err != nil {
		log.Error("match analysis failed", zap.Error(err))
		return model.MatchRun{Error: err.Error()}
	}

	// SAVE_RESULT
	result := BuildResult(res.triple, analysis)
	saved, err := e.store.CreateMatchResult(ctx, result)
	if err != nil {
		log.Error("match result persistence failed", zap.Error(err))
		return model.MatchRun{Error: err.Error()}
	}

	// UPDATE_STATUSES: the saved result is authoritative even if status
	// propagation partially fails; failures are logged, not fatal.
	if err := e.coord.ApplyVerdict(ctx, res.triple, analysis.Matched); err != nil {
		log.Warn("status propagation incomplete", zap.Error(err))
	}

	log.Info("reconciliation complete",
		zap.Bool("matched", analysis.Matched),
		zap.String("match_status", string(saved.MatchStatus)),
		zap.Int("flags", saved.FlagsCount))

	return model.MatchRun{
		Success:  true,
		Matched:  analysis.Matched,
		Result:   saved,
		Analysis: analysis,
	}
}

// resolve links the invoice to its PO and BOL. The exact path is always
// tried first; the fuzzy path runs only when enabled and the exact PO
// lookup missed.
func (e *Engine) resolve(ctx context.Context, invoiceID string) (*resolution, error) {
	triple, err := ResolveExact(ctx, e.store, invoiceID)
	if err == nil {
		return &resolution{triple: triple, matchType: model.MatchTypeExact, confidence: 1.0}, nil
	}
	if !errors.Is(err, ErrNoPO) || !e.cfg.FuzzyFallback {
		return nil, err
	}

	invoice, getErr := e.store.GetInvoice(ctx, invoiceID)
	if getErr != nil {
		return nil, getErr
	}

	poMatch, fuzzyErr := e.fuzzy.FindPO(ctx, *invoice)
	if fuzzyErr != nil {
		return nil, fuzzyErr
	}
	if poMatch == nil {
		// Fuzzy found nothing acceptable; the original exact-path failure
		// stands.
		return nil, err
	}

	zap.L().Info("fuzzy PO match accepted",
		zap.String("invoice_id", invoiceID),
		zap.String("po_id", poMatch.PO.ID),
		zap.Float64("confidence", poMatch.Confidence),
		zap.String("reasoning", poMatch.Reasoning))

	triple = &Triple{PO: poMatch.PO, Invoice: invoice}

	// BOL: exact lookup against the matched PO's number, then fuzzy.
	bol, bolErr := e.store.GetBOLByPONumber(ctx, poMatch.PO.PONumber)
	switch {
	case bolErr == nil:
		triple.BOL = bol
	case errors.Is(bolErr, store.ErrNotFound):
		bolMatch, fbErr := e.fuzzy.FindBOL(ctx, *poMatch.PO, *invoice)
		if fbErr != nil {
			return nil, fbErr
		}
		if bolMatch != nil {
			triple.BOL = bolMatch.BOL
		}
	default:
		return nil, bolErr
	}

	return &resolution{triple: triple, matchType: model.MatchTypeFuzzy, confidence: poMatch.Confidence}, nil
}

// recordLinkage stamps the invoice with how it was linked. Best-effort:
// the linkage metadata is display-level and must not abort the run.
func (e *Engine) recordLinkage(ctx context.Context, res *resolution, log *zap.Logger) {
	bolID := ""
	if res.triple.BOL != nil {
		bolID = res.triple.BOL.ID
	}
	if err := e.store.UpdateInvoiceMatch(ctx, res.triple.Invoice.ID,
		res.matchType, res.confidence, res.triple.PO.ID, bolID); err != nil {
		log.Warn("invoice linkage update failed", zap.Error(err))
	}
}
