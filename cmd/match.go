package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/worker"
)

var matchDrain bool

var matchCmd = &cobra.Command{
	Use:   "match [invoice-id]",
	Short: "Run reconciliation for one invoice, or drain the job queue",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		if len(args) == 0 && !matchDrain {
			return eris.New("provide an invoice id or --drain")
		}

		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := initEngine(st)
		if err != nil {
			return err
		}

		if matchDrain {
			dispatcher := worker.NewDispatcher(st, engine, time.Second, 1)
			ran, err := dispatcher.RunOnce(ctx)
			if err != nil {
				return eris.Wrap(err, "drain match queue")
			}
			zap.L().Info("queue drained", zap.Int("jobs", ran))
			return nil
		}

		run := engine.Run(ctx, args[0])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return eris.Wrap(err, "encode match run")
		}
		if !run.Success {
			return eris.Errorf("match failed: %s", run.Error)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().BoolVar(&matchDrain, "drain", false, "run all queued match jobs and exit")
	rootCmd.AddCommand(matchCmd)
}
