package store

import (
	"context"
	"errors"

	"github.com/haulview/freightmatch/internal/model"
)

// Sentinel errors shared by all store drivers. Implementations wrap these
// so callers can test with errors.Is.
var (
	// ErrNotFound is returned when a lookup by id or business number
	// matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a business-number
	// uniqueness constraint.
	ErrConflict = errors.New("duplicate business identifier")
)

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	Status      model.InvoiceStatus `json:"status,omitempty"`
	CarrierName string              `json:"carrier_name,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// Store defines typed persistence for the reconciliation engine. All
// operations match by exact value; fuzzy association happens in application
// code against an in-memory candidate list.
type Store interface {
	// Purchase orders
	CreatePO(ctx context.Context, po model.PurchaseOrder) (*model.PurchaseOrder, error)
	GetPO(ctx context.Context, id string) (*model.PurchaseOrder, error)
	GetPOByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error)
	ListPOsByStatus(ctx context.Context, statuses ...model.POStatus) ([]model.PurchaseOrder, error)
	UpdatePOStatus(ctx context.Context, id string, status model.POStatus) error

	// Bills of lading
	CreateBOL(ctx context.Context, bol model.BillOfLading) (*model.BillOfLading, error)
	GetBOL(ctx context.Context, id string) (*model.BillOfLading, error)
	GetBOLByPONumber(ctx context.Context, poNumber string) (*model.BillOfLading, error)
	ListBOLsByStatus(ctx context.Context, statuses ...model.BOLStatus) ([]model.BillOfLading, error)
	UpdateBOLStatus(ctx context.Context, id string, status model.BOLStatus) error

	// Invoices
	CreateInvoice(ctx context.Context, inv model.Invoice) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error
	UpdateInvoiceMatch(ctx context.Context, id string, mt model.MatchType, confidence float64, poID, bolID string) error
	UpdateInvoiceApproval(ctx context.Context, id string, status model.InvoiceStatus, approvedBy, notes string) error

	// Match results (append-only; the latest row per invoice is authoritative)
	CreateMatchResult(ctx context.Context, mr model.MatchResult) (*model.MatchResult, error)
	LatestMatchResultByInvoice(ctx context.Context, invoiceID string) (*model.MatchResult, error)
	ListMatchResults(ctx context.Context) ([]model.MatchResult, error)

	// Uploaded files
	CreateFile(ctx context.Context, f model.File) (*model.File, error)
	GetFile(ctx context.Context, id string) (*model.File, error)

	// Match job queue
	EnqueueMatchJob(ctx context.Context, invoiceID string) (*model.MatchJob, error)
	ClaimNextMatchJob(ctx context.Context) (*model.MatchJob, error)
	CompleteMatchJob(ctx context.Context, jobID string, jobErr string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
