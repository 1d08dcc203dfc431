// Package worker drains the durable match-job queue. Jobs are claimed one
// at a time from the store, so multiple processes can poll the same queue
// without double-running an invoice.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/store"
)

// Matcher runs one reconciliation for an invoice. Satisfied by
// matching.Engine.
type Matcher interface {
	Run(ctx context.Context, invoiceID string) model.MatchRun
}

// Dispatcher polls the queue on a ticker and fans claimed jobs out to a
// bounded pool.
type Dispatcher struct {
	store        store.Store
	matcher      Matcher
	pollInterval time.Duration
	concurrency  int
}

func NewDispatcher(st store.Store, m Matcher, pollInterval time.Duration, concurrency int) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		store:        st,
		matcher:      m,
		pollInterval: pollInterval,
		concurrency:  concurrency,
	}
}

// Start blocks until ctx is cancelled, claiming and running jobs. In-flight
// jobs finish before Start returns.
func (d *Dispatcher) Start(ctx context.Context) error {
	zap.L().Info("match dispatcher started",
		zap.Duration("poll_interval", d.pollInterval),
		zap.Int("concurrency", d.concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := g.Wait()
			zap.L().Info("match dispatcher stopped")
			return err
		case <-ticker.C:
			d.drain(gctx, g)
		}
	}
}

// drain claims queued jobs until the queue is empty or the pool is full.
func (d *Dispatcher) drain(ctx context.Context, g *errgroup.Group) {
	for {
		job, err := d.store.ClaimNextMatchJob(ctx)
		if err != nil {
			zap.L().Warn("job claim failed", zap.Error(err))
			return
		}
		if job == nil {
			return
		}
		if !g.TryGo(func() error {
			d.runJob(ctx, job)
			return nil
		}) {
			// Pool is full; the job stays claimed, run it inline so it
			// is not lost.
			d.runJob(ctx, job)
			return
		}
	}
}

// RunOnce drains the queue synchronously. Used by the one-shot CLI path
// and by tests.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	var ran int
	for {
		job, err := d.store.ClaimNextMatchJob(ctx)
		if err != nil {
			return ran, err
		}
		if job == nil {
			return ran, nil
		}
		d.runJob(ctx, job)
		ran++
	}
}

// runJob executes one claimed job and records its terminal state. A failed
// run marks the job failed; it never propagates past this frame.
func (d *Dispatcher) runJob(ctx context.Context, job *model.MatchJob) {
	log := zap.L().With(
		zap.String("job_id", job.ID),
		zap.String("invoice_id", job.InvoiceID))
	log.Info("match job started")

	run := d.matcher.Run(ctx, job.InvoiceID)

	jobErr := ""
	if !run.Success {
		jobErr = run.Error
		if jobErr == "" {
			jobErr = "match run failed"
		}
		log.Warn("match job failed", zap.String("error", jobErr))
	} else {
		log.Info("match job complete", zap.Bool("matched", run.Matched))
	}

	if err := d.store.CompleteMatchJob(ctx, job.ID, jobErr); err != nil {
		log.Warn("job completion not recorded", zap.Error(err))
	}
}
