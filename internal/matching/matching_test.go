package matching

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/oracle"
	"github.com/haulview/freightmatch/internal/store"
)

// mockOracle implements oracle.Oracle for testing.
type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) RankPurchaseOrders(ctx context.Context, invoice model.Invoice, candidates []model.PurchaseOrder) (*oracle.RankResult, error) {
	args := m.Called(ctx, invoice, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.RankResult), args.Error(1)
}

func (m *mockOracle) RankBillsOfLading(ctx context.Context, po model.PurchaseOrder, invoice model.Invoice, candidates []model.BillOfLading) (*oracle.RankResult, error) {
	args := m.Called(ctx, po, invoice, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.RankResult), args.Error(1)
}

func (m *mockOracle) AnalyzeMatch(ctx context.Context, po model.PurchaseOrder, bol *model.BillOfLading, invoice model.Invoice) (*model.Analysis, error) {
	args := m.Called(ctx, po, bol, invoice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Analysis), args.Error(1)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func seedPO(t *testing.T, st store.Store) *model.PurchaseOrder {
	t.Helper()
	po, err := st.CreatePO(context.Background(), model.PurchaseOrder{
		PONumber:     "PO-1001",
		CustomerName: "Acme Manufacturing",
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		ExpectedCharges: []model.Charge{
			{Description: "Linehaul", Amount: d(450)},
			{Description: "Fuel", Amount: d(50)},
		},
		TotalAmount: d(500),
	})
	require.NoError(t, err)
	return po
}

func seedInvoice(t *testing.T, st store.Store, poNumber string, charges []model.Charge, total decimal.Decimal) *model.Invoice {
	t.Helper()
	inv, err := st.CreateInvoice(context.Background(), model.Invoice{
		InvoiceNumber: "INV-1",
		CarrierName:   "Swift Logistics",
		InvoiceDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		PONumber:      poNumber,
		Charges:       charges,
		TotalAmount:   total,
	})
	require.NoError(t, err)
	return inv
}

func matchedAnalysis() *model.Analysis {
	return &model.Analysis{
		Matched:    true,
		Confidence: 0.98,
		Reasoning:  "Totals and all charges agree; same carrier.",
	}
}

// --- Scenario: perfect match, no BOL ---

func TestRun_PerfectMatch(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
		{Description: "Fuel", Amount: d(50)},
	}, d(500))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, (*model.BillOfLading)(nil), mock.Anything).
		Return(matchedAnalysis(), nil)

	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	require.True(t, run.Success)
	assert.True(t, run.Matched)
	require.NotNil(t, run.Result)
	assert.Equal(t, model.MatchStatusPerfect, run.Result.MatchStatus)
	assert.Equal(t, 0.98, run.Result.ConfidenceScore)
	assert.Zero(t, run.Result.FlagsCount)
	assert.Empty(t, run.Result.BOLID)
	assert.True(t, run.Result.Comparison.Variance.IsZero())

	// Every charge row is recorded as a match by direct comparison.
	require.Len(t, run.Result.Comparison.ChargeComparison, 2)
	for _, row := range run.Result.Comparison.ChargeComparison {
		assert.Equal(t, model.ChargeCompMatch, row.Status)
	}

	gotPO, err := st.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusMatched, gotPO.Status)

	gotInv, err := st.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusMatched, gotInv.Status)
	assert.Equal(t, model.MatchTypeExact, gotInv.MatchType)
	assert.Equal(t, 1.0, gotInv.MatchConfidence)
}

// --- Scenario: unexpected charge ---

func TestRun_UnexpectedCharge(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
		{Description: "Fuel", Amount: d(50)},
		{Description: "Detention", Amount: d(150)},
	}, d(650))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, (*model.BillOfLading)(nil), mock.Anything).
		Return(&model.Analysis{
			Matched:    false,
			Confidence: 0.92,
			Reasoning:  "The invoice bills a detention charge the PO never authorized.",
			Discrepancies: []model.Discrepancy{
				{Field: "Detention", InvoiceValue: "150", Issue: "unexpected charge not on PO"},
			},
		}, nil)

	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	require.True(t, run.Success)
	assert.False(t, run.Matched)
	require.NotNil(t, run.Result)
	assert.Equal(t, model.MatchStatusMajorVariance, run.Result.MatchStatus)

	// Variance figures are recomputed from totals, not trusted from the oracle.
	assert.True(t, run.Result.Comparison.Variance.Equal(d(150)),
		"variance %s", run.Result.Comparison.Variance)
	assert.Equal(t, 30.0, run.Result.Comparison.VariancePct)

	require.Len(t, run.Result.Flags, 1)
	assert.Equal(t, model.FlagUnexpectedCharge, run.Result.Flags[0].Code)
	assert.Equal(t, "Detention", run.Result.Flags[0].Field)

	var extra *model.ChargeComparison
	for i, row := range run.Result.Comparison.ChargeComparison {
		if row.Status == model.ChargeCompExtra {
			extra = &run.Result.Comparison.ChargeComparison[i]
		}
	}
	require.NotNil(t, extra, "detention charge recorded as extra")
	assert.Equal(t, "Detention", extra.Description)
	assert.Nil(t, extra.POAmount)

	gotPO, err := st.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusDisputed, gotPO.Status)

	gotInv, err := st.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusFlagged, gotInv.Status)
}

// --- Scenario: no PO found ---

func TestRun_NoPOFound(t *testing.T) {
	st := newTestStore(t)
	inv := seedInvoice(t, st, "PO-9999", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	assert.False(t, run.Success)
	assert.False(t, run.Matched)
	assert.Nil(t, run.Result)
	assert.Contains(t, run.Error, "Could not find related PO for invoice")

	// Nothing persisted, nothing mutated.
	results, err := st.ListMatchResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)

	gotInv, err := st.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, gotInv.Status)

	o.AssertNotCalled(t, "AnalyzeMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Scenario: fuzzy fallback accepted ---

func TestRun_FuzzyFallbackAccepted(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	inv := seedInvoice(t, st, "PO10O1", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
		{Description: "Fuel", Amount: d(50)},
	}, d(500))

	o := new(mockOracle)
	o.On("RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything).
		Return(&oracle.RankResult{BestIndex: 0, Confidence: 0.85, Reasoning: "typo in PO number"}, nil)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, (*model.BillOfLading)(nil), mock.Anything).
		Return(matchedAnalysis(), nil)

	cfg := DefaultConfig()
	cfg.FuzzyFallback = true
	engine := NewEngine(st, o, cfg)
	run := engine.Run(context.Background(), inv.ID)

	require.True(t, run.Success)
	assert.True(t, run.Matched)

	gotInv, err := st.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchTypeFuzzy, gotInv.MatchType)
	assert.Equal(t, 0.85, gotInv.MatchConfidence)
	assert.Equal(t, po.ID, gotInv.POID)
}

// --- Scenario: fuzzy fallback below threshold ---

func TestRun_FuzzyFallbackBelowThreshold(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "PO10O1", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	o.On("RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything).
		Return(&oracle.RankResult{BestIndex: 0, Confidence: 0.4, Reasoning: "weak"}, nil)

	cfg := DefaultConfig()
	cfg.FuzzyFallback = true
	engine := NewEngine(st, o, cfg)
	run := engine.Run(context.Background(), inv.ID)

	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "Could not find related PO for invoice")

	results, err := st.ListMatchResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --- 3-way with BOL ---

func TestRun_MatchedWithBOL(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	bol, err := st.CreateBOL(context.Background(), model.BillOfLading{
		BOLNumber:    "BOL-1",
		PONumber:     "PO-1001",
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC),
		ActualCharges: []model.Charge{
			{Description: "Linehaul", Amount: d(450)},
			{Description: "Fuel", Amount: d(50)},
		},
	})
	require.NoError(t, err)

	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
		{Description: "Fuel", Amount: d(50)},
	}, d(500))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, mock.AnythingOfType("*model.BillOfLading"), mock.Anything).
		Return(matchedAnalysis(), nil)

	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	require.True(t, run.Success)
	assert.Equal(t, bol.ID, run.Result.BOLID)
	require.NotNil(t, run.Result.Comparison.BOLTotal)
	assert.True(t, run.Result.Comparison.BOLTotal.Equal(d(500)))

	gotBOL, err := st.GetBOL(context.Background(), bol.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BOLStatusMatched, gotBOL.Status)

	gotPO, err := st.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusMatched, gotPO.Status)
}

func TestRun_UnmatchedDemotesBOL(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	bol, err := st.CreateBOL(context.Background(), model.BillOfLading{
		BOLNumber:    "BOL-1",
		PONumber:     "PO-1001",
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(700)},
	}, d(700))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Analysis{
			Matched:    false,
			Confidence: 0.9,
			Reasoning:  "Totals diverge significantly.",
			Discrepancies: []model.Discrepancy{
				{Field: "total_amount", POValue: "500", InvoiceValue: "700", Issue: "significant total mismatch"},
			},
		}, nil)

	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	require.True(t, run.Success)
	gotBOL, err := st.GetBOL(context.Background(), bol.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BOLStatusInvoiced, gotBOL.Status)
}

// --- Analyze failure aborts the run ---

func TestRun_AnalyzeFailure(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("oracle: parse analysis response"))

	engine := NewEngine(st, o, DefaultConfig())
	run := engine.Run(context.Background(), inv.ID)

	assert.False(t, run.Success)
	assert.Nil(t, run.Result)

	results, err := st.ListMatchResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --- Re-run appends; latest wins ---

func TestRun_RerunAppendsResult(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
		{Description: "Fuel", Amount: d(50)},
	}, d(500))

	o := new(mockOracle)
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Analysis{
			Matched:    false,
			Confidence: 0.5,
			Reasoning:  "first pass",
			Discrepancies: []model.Discrepancy{
				{Field: "total_amount", Issue: "significant mismatch"},
			},
		}, nil).Once()
	o.On("AnalyzeMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(matchedAnalysis(), nil).Once()

	engine := NewEngine(st, o, DefaultConfig())
	first := engine.Run(context.Background(), inv.ID)
	require.True(t, first.Success)
	second := engine.Run(context.Background(), inv.ID)
	require.True(t, second.Success)

	results, err := st.ListMatchResults(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)

	latest, err := st.LatestMatchResultByInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Result.ID, latest.ID)
	assert.Equal(t, model.MatchStatusPerfect, latest.MatchStatus)
}

// --- Exact linker ---

func TestResolveExact_Idempotent(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	first, err := ResolveExact(context.Background(), st, inv.ID)
	require.NoError(t, err)
	second, err := ResolveExact(context.Background(), st, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, first.PO.ID, second.PO.ID)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	assert.Nil(t, first.BOL)
	assert.Nil(t, second.BOL)
}

func TestResolveExact_NoPO(t *testing.T) {
	st := newTestStore(t)
	inv := seedInvoice(t, st, "PO-9999", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	_, err := ResolveExact(context.Background(), st, inv.ID)
	assert.ErrorIs(t, err, ErrNoPO)
}

// --- Fuzzy linker thresholds ---

func TestFuzzyLinker_ThresholdBoundary(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		accepted   bool
	}{
		{"above", 0.85, true},
		{"at boundary", 0.7, true},
		{"just below", 0.699, false},
		{"far below", 0.4, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			seedPO(t, st)
			inv := seedInvoice(t, st, "PO10O1", []model.Charge{
				{Description: "Linehaul", Amount: d(450)},
			}, d(450))

			o := new(mockOracle)
			o.On("RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything).
				Return(&oracle.RankResult{BestIndex: 0, Confidence: tc.confidence, Reasoning: "r"}, nil)

			linker := NewFuzzyLinker(st, o, DefaultConfig())
			match, err := linker.FindPO(context.Background(), *inv)
			require.NoError(t, err)
			if tc.accepted {
				require.NotNil(t, match)
				assert.Equal(t, "PO-1001", match.PO.PONumber)
				assert.Equal(t, tc.confidence, match.Confidence)
			} else {
				assert.Nil(t, match)
			}
		})
	}
}

func TestFuzzyLinker_BOLThreshold(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	_, err := st.CreateBOL(context.Background(), model.BillOfLading{
		BOLNumber:    "BOL-9",
		PONumber:     "PO-1OO1",
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	// 0.25 clears the 0.2 BOL bar even though it would fail the PO bar.
	o.On("RankBillsOfLading", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&oracle.RankResult{BestIndex: 0, Confidence: 0.25, Reasoning: "route matches"}, nil)

	linker := NewFuzzyLinker(st, o, DefaultConfig())
	match, err := linker.FindBOL(context.Background(), *po, *inv)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "BOL-9", match.BOL.BOLNumber)
}

func TestFuzzyLinker_OracleFailureIsSoft(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "PO10O1", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	o.On("RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider overloaded"))

	linker := NewFuzzyLinker(st, o, DefaultConfig())
	match, err := linker.FindPO(context.Background(), *inv)
	require.NoError(t, err, "oracle failure downgrades to no match")
	assert.Nil(t, match)
}

func TestFuzzyLinker_SentinelNone(t *testing.T) {
	st := newTestStore(t)
	seedPO(t, st)
	inv := seedInvoice(t, st, "ZZZ", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	o.On("RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything).
		Return(&oracle.RankResult{BestIndex: -1, Confidence: 0.9, Reasoning: "nothing plausible"}, nil)

	linker := NewFuzzyLinker(st, o, DefaultConfig())
	match, err := linker.FindPO(context.Background(), *inv)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFuzzyLinker_EmptyPool(t *testing.T) {
	st := newTestStore(t)
	inv := seedInvoice(t, st, "PO10O1", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	o := new(mockOracle)
	linker := NewFuzzyLinker(st, o, DefaultConfig())
	match, err := linker.FindPO(context.Background(), *inv)
	require.NoError(t, err)
	assert.Nil(t, match)
	o.AssertNotCalled(t, "RankPurchaseOrders", mock.Anything, mock.Anything, mock.Anything)
}

// --- Status coordinator ---

// flakyStore injects UpdatePOStatus failures over a real store.
type flakyStore struct {
	store.Store
	poFailures int
}

func (f *flakyStore) UpdatePOStatus(ctx context.Context, id string, status model.POStatus) error {
	if f.poFailures > 0 {
		f.poFailures--
		return errors.New("transient write failure")
	}
	return f.Store.UpdatePOStatus(ctx, id, status)
}

func TestCoordinator_RetriesTransientFailure(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	flaky := &flakyStore{Store: st, poFailures: 1}
	coord := NewCoordinator(flaky)
	err := coord.ApplyVerdict(context.Background(), &Triple{PO: po, Invoice: inv}, true)
	require.NoError(t, err)

	gotPO, err := st.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POStatusMatched, gotPO.Status)
}

func TestCoordinator_NoRollbackOnPartialFailure(t *testing.T) {
	st := newTestStore(t)
	po := seedPO(t, st)
	inv := seedInvoice(t, st, "PO-1001", []model.Charge{
		{Description: "Linehaul", Amount: d(450)},
	}, d(450))

	flaky := &flakyStore{Store: st, poFailures: 2} // survives the retry
	coord := NewCoordinator(flaky)
	err := coord.ApplyVerdict(context.Background(), &Triple{PO: po, Invoice: inv}, true)
	require.Error(t, err)

	// The PO write failed, but the invoice write still went through.
	gotPO, getErr := st.GetPO(context.Background(), po.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.POStatusPending, gotPO.Status)

	gotInv, getErr := st.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, getErr)
	assert.Equal(t, model.InvoiceStatusMatched, gotInv.Status)
}

func TestPrefilterPOs_CapsByEditDistance(t *testing.T) {
	pos := []model.PurchaseOrder{
		{PONumber: "ZZ-TOTALLY-OFF"},
		{PONumber: "PO-1001"},
		{PONumber: "PO-1002"},
	}
	got := prefilterPOs(pos, "PO-1001", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "PO-1001", got[0].PONumber)
	assert.Equal(t, "PO-1002", got[1].PONumber)
}
