package matching

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/oracle"
)

// Analyzer renders a verdict on a resolved triple. The matched/unmatched
// judgment is the oracle's; everything persisted around it (the charge
// comparison table, variance figures, flags, match status) is normalized
// deterministically here, so two runs over identical oracle output produce
// identical results.
type Analyzer struct {
	oracle oracle.Oracle
}

// NewAnalyzer constructs an analyzer around a comparison oracle.
func NewAnalyzer(o oracle.Oracle) *Analyzer {
	return &Analyzer{oracle: o}
}

// Analyze asks the oracle for a verdict, then recomputes the variance
// figures from the document totals. Oracle failure is a hard failure:
// analysis is mandatory, unlike fuzzy linking.
func (a *Analyzer) Analyze(ctx context.Context, t *Triple) (*model.Analysis, error) {
	analysis, err := a.oracle.AnalyzeMatch(ctx, *t.PO, t.BOL, *t.Invoice)
	if err != nil {
		return nil, eris.Wrapf(err, "matching: analyze invoice %s", t.Invoice.ID)
	}

	analysis.Variance = t.PO.TotalAmount.Sub(t.Invoice.TotalAmount).Abs().Round(2)
	if t.PO.TotalAmount.IsZero() {
		analysis.VariancePct = 0
	} else {
		pct, _ := analysis.Variance.Div(t.PO.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		analysis.VariancePct = pct
	}
	return analysis, nil
}

// BuildResult converts an analysis into the persisted MatchResult shape.
// Pure: no store access, no randomness.
func BuildResult(t *Triple, analysis *model.Analysis) model.MatchResult {
	comparison := buildComparison(t, analysis)
	flags := deriveFlags(t, analysis)

	high := 0
	for _, f := range flags {
		if f.Severity == model.SeverityHigh {
			high++
		}
	}

	result := model.MatchResult{
		POID:            t.PO.ID,
		InvoiceID:       t.Invoice.ID,
		MatchStatus:     deriveMatchStatus(analysis),
		ConfidenceScore: analysis.Confidence,
		Comparison:      comparison,
		Flags:           flags,
		FlagsCount:      len(flags),
		HighSeverity:    high,
		Reasoning:       analysis.Reasoning,
	}
	if t.BOL != nil {
		result.BOLID = t.BOL.ID
	}
	return result
}

// deriveMatchStatus maps the oracle's boolean onto the persisted enum.
// A clean match with discrepancies still on record is a minor variance,
// not a perfect match.
func deriveMatchStatus(analysis *model.Analysis) model.MatchStatus {
	switch {
	case analysis.Matched && len(analysis.Discrepancies) == 0:
		return model.MatchStatusPerfect
	case analysis.Matched:
		return model.MatchStatusMinorVariance
	default:
		return model.MatchStatusMajorVariance
	}
}

// buildComparison assembles the per-charge reconciliation table. Exactly
// equal charges are recorded as "match" rows by direct comparison,
// independent of whether the oracle mentioned them.
func buildComparison(t *Triple, analysis *model.Analysis) model.Comparison {
	comparison := model.Comparison{
		POTotal:      t.PO.TotalAmount,
		InvoiceTotal: t.Invoice.TotalAmount,
		Variance:     analysis.Variance,
		VariancePct:  analysis.VariancePct,
	}
	if t.BOL != nil && len(t.BOL.ActualCharges) > 0 {
		bolTotal := model.ChargesTotal(t.BOL.ActualCharges)
		comparison.BOLTotal = &bolTotal
	}

	var bolCharges []model.Charge
	if t.BOL != nil {
		bolCharges = t.BOL.ActualCharges
	}

	rows := make([]model.ChargeComparison, 0, len(t.PO.ExpectedCharges)+len(t.Invoice.Charges))
	for _, poCharge := range t.PO.ExpectedCharges {
		row := model.ChargeComparison{
			Description: poCharge.Description,
			POAmount:    amountPtr(poCharge.Amount),
		}
		if bolCharge, ok := model.FindCharge(bolCharges, poCharge.Description); ok {
			row.BOLAmount = amountPtr(bolCharge.Amount)
		}
		if invCharge, ok := model.FindCharge(t.Invoice.Charges, poCharge.Description); ok {
			row.InvoiceAmount = amountPtr(invCharge.Amount)
			if model.AmountsEqual(poCharge.Amount, invCharge.Amount) {
				row.Status = model.ChargeCompMatch
			} else {
				row.Status = model.ChargeCompVariance
			}
		} else {
			row.Status = model.ChargeCompMissing
		}
		rows = append(rows, row)
	}

	// Invoice charges absent from the PO are billed but never authorized.
	for _, invCharge := range t.Invoice.Charges {
		if _, ok := model.FindCharge(t.PO.ExpectedCharges, invCharge.Description); ok {
			continue
		}
		row := model.ChargeComparison{
			Description:   invCharge.Description,
			InvoiceAmount: amountPtr(invCharge.Amount),
			Status:        model.ChargeCompExtra,
		}
		if bolCharge, ok := model.FindCharge(bolCharges, invCharge.Description); ok {
			row.BOLAmount = amountPtr(bolCharge.Amount)
		}
		rows = append(rows, row)
	}

	comparison.ChargeComparison = rows
	return comparison
}

// deriveFlags turns oracle discrepancies into display flags, classified by
// field and graded by issue wording. "significant" in the issue text marks
// the flag high severity.
func deriveFlags(t *Triple, analysis *model.Analysis) []model.Flag {
	var flags []model.Flag
	for _, d := range analysis.Discrepancies {
		flags = append(flags, model.Flag{
			Code:        classifyDiscrepancy(t, d),
			Severity:    gradeSeverity(d.Issue),
			Explanation: d.Issue,
			Field:       d.Field,
		})
	}

	// The carrier check is cheap and fully deterministic, so it is applied
	// here as well, whether or not the oracle reported it.
	if !CarriersAgree(t.PO.CarrierName, t.Invoice.CarrierName) && !hasFlag(flags, model.FlagCarrierMismatch) {
		flags = append(flags, model.Flag{
			Code:        model.FlagCarrierMismatch,
			Severity:    model.SeverityHigh,
			Explanation: "invoice carrier does not match PO carrier",
			Field:       "carrier_name",
		})
	}
	return flags
}

func hasFlag(flags []model.Flag, code model.FlagCode) bool {
	for _, f := range flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

func classifyDiscrepancy(t *Triple, d model.Discrepancy) model.FlagCode {
	field := canonical(d.Field)
	switch {
	case strings.Contains(field, "carrier"):
		return model.FlagCarrierMismatch
	case strings.Contains(field, "origin"), strings.Contains(field, "destination"),
		strings.Contains(field, "route"):
		return model.FlagRouteMismatch
	case strings.Contains(field, "date"):
		return model.FlagDateMismatch
	case strings.Contains(field, "total"):
		return model.FlagAmountMismatchPOInv
	}

	// Remaining discrepancies are charge-level: classify by which side of
	// the ledger carries the charge.
	onPO := chargeListed(t.PO.ExpectedCharges, d.Field)
	onInvoice := chargeListed(t.Invoice.Charges, d.Field)
	switch {
	case onInvoice && !onPO:
		return model.FlagUnexpectedCharge
	case onPO && !onInvoice:
		return model.FlagMissingCharge
	default:
		return model.FlagChargeVariance
	}
}

func gradeSeverity(issue string) model.FlagSeverity {
	if strings.Contains(canonical(issue), "significant") {
		return model.SeverityHigh
	}
	return model.SeverityMed
}

func chargeListed(charges []model.Charge, description string) bool {
	_, ok := model.FindCharge(charges, description)
	return ok
}

var foldCaser = cases.Fold()

// canonical folds case and collapses whitespace for field and carrier
// comparisons.
func canonical(s string) string {
	return strings.Join(strings.Fields(foldCaser.String(s)), " ")
}

// CarriersAgree compares two carrier names after canonical folding.
func CarriersAgree(a, b string) bool {
	return canonical(a) == canonical(b)
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
