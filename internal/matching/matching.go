// Package matching implements 3-way reconciliation of purchase orders,
// bills of lading, and carrier invoices.
package matching

import (
	"github.com/haulview/freightmatch/internal/model"
)

// Config carries the tunables of the reconciliation pipeline. Thresholds
// are injected rather than hardcoded so they can be tuned per deployment.
type Config struct {
	// POThreshold is the minimum oracle confidence to accept a fuzzy PO
	// candidate.
	POThreshold float64

	// BOLThreshold is the minimum oracle confidence to accept a fuzzy BOL
	// candidate. Deliberately looser than POThreshold: BOL evidence is
	// corroborating, not authoritative.
	BOLThreshold float64

	// MaxCandidates caps the candidate list handed to the oracle per rank
	// call. Candidates are prefiltered by identifier edit distance.
	MaxCandidates int

	// FuzzyFallback enables fuzzy PO/BOL linking inside the main run path
	// when exact resolution fails. Off by default; fuzzy linking is
	// otherwise available only through explicit invocation.
	FuzzyFallback bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		POThreshold:   0.7,
		BOLThreshold:  0.2,
		MaxCandidates: 10,
		FuzzyFallback: false,
	}
}

// Triple is a resolved document set for one reconciliation run. BOL is nil
// for a 2-way match.
type Triple struct {
	PO      *model.PurchaseOrder
	BOL     *model.BillOfLading
	Invoice *model.Invoice
}
