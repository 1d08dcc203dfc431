package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus classifies the outcome of one reconciliation attempt.
type MatchStatus string

const (
	MatchStatusPerfect       MatchStatus = "perfect_match"
	MatchStatusMinorVariance MatchStatus = "minor_variance"
	MatchStatusMajorVariance MatchStatus = "major_variance"
	MatchStatusNoMatch       MatchStatus = "no_match"
)

// ChargeCompStatus classifies one row of the charge comparison table.
type ChargeCompStatus string

const (
	ChargeCompMatch    ChargeCompStatus = "match"
	ChargeCompVariance ChargeCompStatus = "variance"
	ChargeCompMissing  ChargeCompStatus = "missing" // on PO/BOL, absent from invoice
	ChargeCompExtra    ChargeCompStatus = "extra"   // on invoice, absent from PO/BOL
)

// ChargeComparison is one line of the per-charge reconciliation table.
// Nil amounts mean the charge does not appear on that document.
type ChargeComparison struct {
	Description   string           `json:"description"`
	POAmount      *decimal.Decimal `json:"po_amount"`
	BOLAmount     *decimal.Decimal `json:"bol_amount"`
	InvoiceAmount *decimal.Decimal `json:"invoice_amount"`
	Status        ChargeCompStatus `json:"status"`
}

// Comparison is the structured payload persisted with every match result.
type Comparison struct {
	POTotal          decimal.Decimal    `json:"po_total"`
	BOLTotal         *decimal.Decimal   `json:"bol_total,omitempty"`
	InvoiceTotal     decimal.Decimal    `json:"invoice_total"`
	Variance         decimal.Decimal    `json:"variance"`
	VariancePct      float64            `json:"variance_pct"`
	ChargeComparison []ChargeComparison `json:"charge_comparison"`
}

// Discrepancy is a single issue found during analysis, normalized from
// the oracle's raw output.
type Discrepancy struct {
	Field        string `json:"field"`
	POValue      string `json:"po_value,omitempty"`
	BOLValue     string `json:"bol_value,omitempty"`
	InvoiceValue string `json:"invoice_value"`
	Issue        string `json:"issue"`
}

// FlagCode identifies a class of reconciliation discrepancy.
type FlagCode string

const (
	FlagUnexpectedCharge       FlagCode = "UNEXPECTED_CHARGE"
	FlagMissingCharge          FlagCode = "MISSING_CHARGE"
	FlagChargeVariance         FlagCode = "CHARGE_VARIANCE"
	FlagCarrierMismatch        FlagCode = "CARRIER_MISMATCH"
	FlagRouteMismatch          FlagCode = "ROUTE_MISMATCH"
	FlagDateMismatch           FlagCode = "DATE_MISMATCH"
	FlagAmountMismatchPOInv    FlagCode = "AMOUNT_MISMATCH_PO_INVOICE"
	FlagAmountMismatchPOBOL    FlagCode = "AMOUNT_MISMATCH_PO_BOL"
	FlagAmountMismatchBOLInv   FlagCode = "AMOUNT_MISMATCH_BOL_INVOICE"
	FlagNoPOFound              FlagCode = "NO_PO_FOUND"
	FlagNoBOLFound             FlagCode = "NO_BOL_FOUND"
	FlagMissingProofOfDelivery FlagCode = "MISSING_POD"
	FlagDuplicateInvoice       FlagCode = "DUPLICATE_INVOICE"
)

// FlagSeverity grades how serious a flag is.
type FlagSeverity string

const (
	SeverityLow  FlagSeverity = "low"
	SeverityMed  FlagSeverity = "med"
	SeverityHigh FlagSeverity = "high"
)

// Flag is a single discrepancy attached to a match result for display.
type Flag struct {
	Code        FlagCode     `json:"code"`
	Severity    FlagSeverity `json:"severity"`
	Explanation string       `json:"explanation"`
	Field       string       `json:"field,omitempty"`
}

// MatchResult is the immutable record of one reconciliation attempt.
// Re-running matching appends a new row; the latest row per invoice is
// authoritative.
type MatchResult struct {
	ID              string      `json:"id"`
	POID            string      `json:"po_id"`
	BOLID           string      `json:"bol_id,omitempty"`
	InvoiceID       string      `json:"invoice_id"`
	MatchStatus     MatchStatus `json:"match_status"`
	ConfidenceScore float64     `json:"confidence_score"`
	Comparison      Comparison  `json:"comparison"`
	Flags           []Flag      `json:"flags,omitempty"`
	FlagsCount      int         `json:"flags_count"`
	HighSeverity    int         `json:"high_severity_flags"`
	Reasoning       string      `json:"reasoning,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Analysis is the analyzer's normalized verdict for a resolved triple.
type Analysis struct {
	Matched       bool
	Confidence    float64
	Variance      decimal.Decimal
	VariancePct   float64
	Reasoning     string
	Discrepancies []Discrepancy
}

// MatchRun is the structured outcome of one orchestrator run. Stage-local
// failures are converted into this shape rather than propagated.
type MatchRun struct {
	Success  bool         `json:"success"`
	Matched  bool         `json:"matched"`
	Result   *MatchResult `json:"result,omitempty"`
	Analysis *Analysis    `json:"-"`
	Error    string       `json:"error,omitempty"`
}
