package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haulview/freightmatch/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testPO(poNumber string) model.PurchaseOrder {
	return model.PurchaseOrder{
		PONumber:     poNumber,
		CustomerName: "Acme Manufacturing",
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		ExpectedCharges: []model.Charge{
			{Description: "Linehaul", Amount: decimal.NewFromInt(1200)},
			{Description: "Fuel Surcharge", Amount: decimal.NewFromFloat(150.50)},
		},
		TotalAmount: decimal.NewFromFloat(1350.50),
	}
}

func testBOL(bolNumber, poNumber string) model.BillOfLading {
	return model.BillOfLading{
		BOLNumber:    bolNumber,
		PONumber:     poNumber,
		CarrierName:  "Swift Logistics",
		Origin:       "Chicago, IL",
		Destination:  "Dallas, TX",
		PickupDate:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2026, 3, 4, 16, 0, 0, 0, time.UTC),
	}
}

func testInvoice(invNumber, poNumber string) model.Invoice {
	return model.Invoice{
		InvoiceNumber: invNumber,
		CarrierName:   "Swift Logistics",
		InvoiceDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		PONumber:      poNumber,
		Charges: []model.Charge{
			{Description: "Linehaul", Amount: decimal.NewFromInt(1200)},
			{Description: "Fuel Surcharge", Amount: decimal.NewFromFloat(150.50)},
		},
		TotalAmount: decimal.NewFromFloat(1350.50),
	}
}

// --- Purchase Orders ---

func TestSQLite_PO_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreatePO(ctx, testPO("PO-1001"))
	require.NoError(t, err)
	assert.True(t, len(created.ID) > 3 && created.ID[:3] == "po_")
	assert.Equal(t, model.POStatusPending, created.Status)

	got, err := st.GetPO(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-1001", got.PONumber)
	assert.Equal(t, "Swift Logistics", got.CarrierName)
	assert.Len(t, got.ExpectedCharges, 2)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromFloat(1350.50)),
		"total round-trips through storage: %s", got.TotalAmount)
}

func TestSQLite_PO_GetByNumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreatePO(ctx, testPO("PO-2002"))
	require.NoError(t, err)

	got, err := st.GetPOByNumber(ctx, "PO-2002")
	require.NoError(t, err)
	assert.Equal(t, "PO-2002", got.PONumber)

	_, err = st.GetPOByNumber(ctx, "PO-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_PO_DuplicateNumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreatePO(ctx, testPO("PO-3003"))
	require.NoError(t, err)

	_, err = st.CreatePO(ctx, testPO("PO-3003"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSQLite_PO_ListByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreatePO(ctx, testPO("PO-A"))
	require.NoError(t, err)
	b, err := st.CreatePO(ctx, testPO("PO-B"))
	require.NoError(t, err)
	_, err = st.CreatePO(ctx, testPO("PO-C"))
	require.NoError(t, err)

	require.NoError(t, st.UpdatePOStatus(ctx, a.ID, model.POStatusBOLReceived))
	require.NoError(t, st.UpdatePOStatus(ctx, b.ID, model.POStatusMatched))

	open, err := st.ListPOsByStatus(ctx, model.POStatusPending, model.POStatusBOLReceived)
	require.NoError(t, err)
	require.Len(t, open, 2)

	numbers := []string{open[0].PONumber, open[1].PONumber}
	assert.Contains(t, numbers, "PO-A")
	assert.Contains(t, numbers, "PO-C")
}

func TestSQLite_PO_UpdateStatusMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdatePOStatus(context.Background(), "po_missing", model.POStatusMatched)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Bills of Lading ---

func TestSQLite_BOL_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	bol := testBOL("BOL-500", "PO-1001")
	weight := 12500.0
	bol.WeightLbs = &weight
	bol.ActualCharges = []model.Charge{
		{Description: "Linehaul", Amount: decimal.NewFromInt(1200)},
	}

	created, err := st.CreateBOL(ctx, bol)
	require.NoError(t, err)
	assert.Equal(t, model.BOLStatusPending, created.Status)

	got, err := st.GetBOL(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "BOL-500", got.BOLNumber)
	require.NotNil(t, got.WeightLbs)
	assert.Equal(t, 12500.0, *got.WeightLbs)
	require.Len(t, got.ActualCharges, 1)
	assert.Equal(t, "Linehaul", got.ActualCharges[0].Description)
}

func TestSQLite_BOL_NilOptionalFields(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateBOL(ctx, testBOL("BOL-501", "PO-1001"))
	require.NoError(t, err)

	got, err := st.GetBOL(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WeightLbs)
	assert.Nil(t, got.ActualCharges)
	assert.Nil(t, got.PODSignedAt)
	assert.Empty(t, got.POID)
}

func TestSQLite_BOL_GetByPONumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateBOL(ctx, testBOL("BOL-510", "PO-7007"))
	require.NoError(t, err)

	got, err := st.GetBOLByPONumber(ctx, "PO-7007")
	require.NoError(t, err)
	assert.Equal(t, "BOL-510", got.BOLNumber)

	_, err = st.GetBOLByPONumber(ctx, "PO-NONE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_BOL_DuplicateNumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateBOL(ctx, testBOL("BOL-520", "PO-1"))
	require.NoError(t, err)

	_, err = st.CreateBOL(ctx, testBOL("BOL-520", "PO-2"))
	assert.ErrorIs(t, err, ErrConflict)
}

// --- Invoices ---

func TestSQLite_Invoice_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateInvoice(ctx, testInvoice("INV-900", "PO-1001"))
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, created.Status)

	got, err := st.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-900", got.InvoiceNumber)
	assert.Equal(t, "PO-1001", got.PONumber)
	assert.Len(t, got.Charges, 2)
	assert.Empty(t, got.MatchType)
}

func TestSQLite_Invoice_UpdateMatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	inv, err := st.CreateInvoice(ctx, testInvoice("INV-901", "PO-1001"))
	require.NoError(t, err)

	err = st.UpdateInvoiceMatch(ctx, inv.ID, model.MatchTypeFuzzy, 0.85, "po_abc", "bol_def")
	require.NoError(t, err)

	got, err := st.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchTypeFuzzy, got.MatchType)
	assert.Equal(t, 0.85, got.MatchConfidence)
	assert.Equal(t, "po_abc", got.POID)
	assert.Equal(t, "bol_def", got.BOLID)
}

func TestSQLite_Invoice_UpdateApproval(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	inv, err := st.CreateInvoice(ctx, testInvoice("INV-902", "PO-1001"))
	require.NoError(t, err)

	err = st.UpdateInvoiceApproval(ctx, inv.ID, model.InvoiceStatusApproved, "ops@haulview.com", "verified against BOL")
	require.NoError(t, err)

	got, err := st.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusApproved, got.Status)
	assert.Equal(t, "ops@haulview.com", got.ApprovedBy)
	assert.Equal(t, "verified against BOL", got.ApprovalNotes)
	require.NotNil(t, got.ApprovedAt)
}

func TestSQLite_Invoice_ListWithFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateInvoice(ctx, testInvoice("INV-A", "PO-1"))
	require.NoError(t, err)
	b := testInvoice("INV-B", "PO-2")
	b.CarrierName = "Knight Transport"
	_, err = st.CreateInvoice(ctx, b)
	require.NoError(t, err)

	require.NoError(t, st.UpdateInvoiceStatus(ctx, a.ID, model.InvoiceStatusFlagged))

	flagged, err := st.ListInvoices(ctx, InvoiceFilter{Status: model.InvoiceStatusFlagged})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "INV-A", flagged[0].InvoiceNumber)

	knight, err := st.ListInvoices(ctx, InvoiceFilter{CarrierName: "Knight Transport"})
	require.NoError(t, err)
	require.Len(t, knight, 1)
	assert.Equal(t, "INV-B", knight[0].InvoiceNumber)

	all, err := st.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// --- Match Results ---

func TestSQLite_MatchResult_CreateAndLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := model.MatchResult{
		POID:            "po_1",
		BOLID:           "bol_1",
		InvoiceID:       "inv_1",
		MatchStatus:     model.MatchStatusMajorVariance,
		ConfidenceScore: 0.4,
		Comparison: model.Comparison{
			POTotal:      decimal.NewFromInt(1000),
			InvoiceTotal: decimal.NewFromInt(1400),
			Variance:     decimal.NewFromInt(400),
			VariancePct:  40,
		},
		Flags: []model.Flag{
			{Code: model.FlagUnexpectedCharge, Severity: model.SeverityHigh, Explanation: "Detention not on PO"},
		},
		FlagsCount:   1,
		HighSeverity: 1,
		Reasoning:    "charge mismatch",
	}
	_, err := st.CreateMatchResult(ctx, first)
	require.NoError(t, err)

	second := first
	second.MatchStatus = model.MatchStatusPerfect
	second.ConfidenceScore = 1.0
	second.Flags = nil
	second.FlagsCount = 0
	second.HighSeverity = 0
	second.Reasoning = "rerun after PO correction"
	_, err = st.CreateMatchResult(ctx, second)
	require.NoError(t, err)

	latest, err := st.LatestMatchResultByInvoice(ctx, "inv_1")
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusPerfect, latest.MatchStatus)
	assert.Equal(t, "rerun after PO correction", latest.Reasoning)
	assert.Nil(t, latest.Flags)

	all, err := st.ListMatchResults(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_MatchResult_LatestMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.LatestMatchResultByInvoice(context.Background(), "inv_none")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Files ---

func TestSQLite_File_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateFile(ctx, model.File{
		Filename:    "invoice-900.pdf",
		MimeType:    "application/pdf",
		SizeBytes:   48213,
		StoragePath: "uploads/invoice-900.pdf",
	})
	require.NoError(t, err)

	got, err := st.GetFile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice-900.pdf", got.Filename)
	assert.Equal(t, int64(48213), got.SizeBytes)
}

// --- Match Jobs ---

func TestSQLite_MatchJob_EnqueueClaimComplete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.EnqueueMatchJob(ctx, "inv_42")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)

	claimed, err := st.ClaimNextMatchJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, "inv_42", claimed.InvoiceID)
	assert.Equal(t, model.JobStatusRunning, claimed.Status)

	// The queue is drained; a second claim yields nothing.
	none, err := st.ClaimNextMatchJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, st.CompleteMatchJob(ctx, claimed.ID, ""))
}

func TestSQLite_MatchJob_ClaimOrderAndFailure(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	older, err := st.EnqueueMatchJob(ctx, "inv_old")
	require.NoError(t, err)
	_, err = st.EnqueueMatchJob(ctx, "inv_new")
	require.NoError(t, err)

	claimed, err := st.ClaimNextMatchJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID, "oldest queued job claims first")

	require.NoError(t, st.CompleteMatchJob(ctx, claimed.ID, "Could not find related PO for invoice"))
}

func TestSQLite_MatchJob_CompleteMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteMatchJob(context.Background(), "job_missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
