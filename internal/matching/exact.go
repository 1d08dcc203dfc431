package matching

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/haulview/freightmatch/internal/store"
)

// ErrNoPO is returned when an invoice's declared PO number resolves to no
// purchase order. PO linkage is mandatory context for any comparison, so
// this is a hard failure for the exact path.
var ErrNoPO = errors.New("Could not find related PO for invoice")

// ResolveExact links an invoice to its PO and BOL by exact equality on the
// invoice's declared PO number. BOL absence is not an error; a missing PO
// is. Read-only: no document is mutated.
func ResolveExact(ctx context.Context, st store.Store, invoiceID string) (*Triple, error) {
	invoice, err := st.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, eris.Wrapf(err, "matching: fetch invoice %s", invoiceID)
	}

	po, err := st.GetPOByNumber(ctx, invoice.PONumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrNoPO, "po number %q", invoice.PONumber)
		}
		return nil, eris.Wrapf(err, "matching: fetch po %q", invoice.PONumber)
	}

	triple := &Triple{PO: po, Invoice: invoice}

	bol, err := st.GetBOLByPONumber(ctx, invoice.PONumber)
	switch {
	case err == nil:
		triple.BOL = bol
	case errors.Is(err, store.ErrNotFound):
		// 2-way match; proceed without a BOL.
	default:
		return nil, eris.Wrapf(err, "matching: fetch bol for po %q", invoice.PONumber)
	}

	return triple, nil
}
