// Package report exports reconciliation outcomes to spreadsheets for the
// audit team.
package report

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/store"
)

var resultHeader = []string{
	"result_id", "invoice_id", "po_id", "bol_id", "match_status",
	"confidence", "po_total", "invoice_total", "variance", "variance_pct",
	"flags_count", "high_severity_flags", "created_at",
}

var flagHeader = []string{
	"result_id", "invoice_id", "code", "severity", "field", "explanation",
}

const dateTimeLayout = "2006-01-02 15:04:05"

// WriteXLSX exports all match results to path: one sheet of result rows,
// one sheet with a row per discrepancy flag.
func WriteXLSX(ctx context.Context, st store.Store, path string) (int, error) {
	results, err := st.ListMatchResults(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "report: list match results")
	}

	f := xlsx.NewFile()

	resultSheet, err := f.AddSheet("Match Results")
	if err != nil {
		return 0, eris.Wrap(err, "report: add results sheet")
	}
	flagSheet, err := f.AddSheet("Discrepancies")
	if err != nil {
		return 0, eris.Wrap(err, "report: add discrepancies sheet")
	}

	addStringRow(resultSheet, resultHeader)
	addStringRow(flagSheet, flagHeader)

	for _, mr := range results {
		addStringRow(resultSheet, resultRow(mr))
		for _, flag := range mr.Flags {
			addStringRow(flagSheet, []string{
				mr.ID,
				mr.InvoiceID,
				string(flag.Code),
				string(flag.Severity),
				flag.Field,
				flag.Explanation,
			})
		}
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "report: save file")
	}

	zap.L().Info("report written",
		zap.String("path", path),
		zap.Int("results", len(results)))
	return len(results), nil
}

func resultRow(mr model.MatchResult) []string {
	return []string{
		mr.ID,
		mr.InvoiceID,
		mr.POID,
		mr.BOLID,
		string(mr.MatchStatus),
		strconv.FormatFloat(mr.ConfidenceScore, 'f', 2, 64),
		mr.Comparison.POTotal.StringFixed(2),
		mr.Comparison.InvoiceTotal.StringFixed(2),
		mr.Comparison.Variance.StringFixed(2),
		strconv.FormatFloat(mr.Comparison.VariancePct, 'f', 2, 64),
		strconv.Itoa(mr.FlagsCount),
		strconv.Itoa(mr.HighSeverity),
		mr.CreatedAt.UTC().Format(dateTimeLayout),
	}
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
