package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export match results and discrepancies to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := report.WriteXLSX(cmd.Context(), st, exportOut)
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", exportOut),
			zap.Int("results", n))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "freightmatch-audit.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}
