package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/store"
)

// Coordinator applies a verdict to the lifecycle status of every document
// in a resolved triple. There is no cross-document transaction: each status
// change is an independent single-row write. A failed write is retried once
// (the writes are idempotent set-status operations), then logged; writes
// already applied are never rolled back.
type Coordinator struct {
	store store.Store
}

// NewCoordinator constructs a status coordinator.
func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

// ApplyVerdict moves all documents in the triple to their post-verdict
// status. matched routes everything to "matched"; unmatched routes the PO
// to "disputed", the BOL (if present) to "invoiced", and the invoice to
// "flagged". The returned error aggregates write failures for logging; the
// run outcome does not depend on it.
func (c *Coordinator) ApplyVerdict(ctx context.Context, t *Triple, matched bool) error {
	poStatus := model.POStatusDisputed
	bolStatus := model.BOLStatusInvoiced
	invStatus := model.InvoiceStatusFlagged
	if matched {
		poStatus = model.POStatusMatched
		bolStatus = model.BOLStatusMatched
		invStatus = model.InvoiceStatusMatched
	}

	var errs []error

	if err := c.setPOStatus(ctx, t.PO.ID, poStatus); err != nil {
		errs = append(errs, err)
	}
	if t.BOL != nil {
		if err := c.setBOLStatus(ctx, t.BOL.ID, bolStatus); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.setInvoiceStatus(ctx, t.Invoice.ID, invStatus); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Coordinator) setPOStatus(ctx context.Context, id string, status model.POStatus) error {
	err := c.store.UpdatePOStatus(ctx, id, status)
	if err != nil {
		err = c.store.UpdatePOStatus(ctx, id, status)
	}
	if err != nil {
		zap.L().Error("po status update failed",
			zap.String("po_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	return err
}

func (c *Coordinator) setBOLStatus(ctx context.Context, id string, status model.BOLStatus) error {
	err := c.store.UpdateBOLStatus(ctx, id, status)
	if err != nil {
		err = c.store.UpdateBOLStatus(ctx, id, status)
	}
	if err != nil {
		zap.L().Error("bol status update failed",
			zap.String("bol_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	return err
}

func (c *Coordinator) setInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error {
	err := c.store.UpdateInvoiceStatus(ctx, id, status)
	if err != nil {
		err = c.store.UpdateInvoiceStatus(ctx, id, status)
	}
	if err != nil {
		zap.L().Error("invoice status update failed",
			zap.String("invoice_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	return err
}
