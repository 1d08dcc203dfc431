// Package intake turns validated structured records into stored documents.
// Records arrive from the OCR pipeline or manual entry; by this point the
// two are indistinguishable.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/internal/store"
)

// ErrInvalid wraps field-level validation failures so transport code can
// map them to a 400 without inspecting validator internals.
var ErrInvalid = errors.New("invalid intake record")

// ChargeInput is one line item on an incoming document.
type ChargeInput struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

// POInput is the structured record for a purchase order.
type POInput struct {
	PONumber        string        `json:"po_number" validate:"required"`
	CustomerName    string        `json:"customer_name" validate:"required"`
	CarrierName     string        `json:"carrier_name" validate:"required"`
	Origin          string        `json:"origin" validate:"required"`
	Destination     string        `json:"destination" validate:"required"`
	PickupDate      time.Time     `json:"pickup_date" validate:"required"`
	DeliveryDate    time.Time     `json:"delivery_date" validate:"required"`
	ExpectedCharges []ChargeInput `json:"expected_charges" validate:"required,min=1,dive"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	FileID          string        `json:"file_id,omitempty"`
}

// BOLInput is the structured record for a bill of lading.
type BOLInput struct {
	BOLNumber       string        `json:"bol_number" validate:"required"`
	PONumber        string        `json:"po_number" validate:"required"`
	CarrierName     string        `json:"carrier_name" validate:"required"`
	Origin          string        `json:"origin" validate:"required"`
	Destination     string        `json:"destination" validate:"required"`
	PickupDate      time.Time     `json:"pickup_date" validate:"required"`
	DeliveryDate    time.Time     `json:"delivery_date" validate:"required"`
	WeightLbs       *float64      `json:"weight_lbs,omitempty" validate:"omitempty,gt=0"`
	ItemDescription string        `json:"item_description,omitempty"`
	ActualCharges   []ChargeInput `json:"actual_charges,omitempty" validate:"omitempty,dive"`
	PODFileID       string        `json:"pod_file_id,omitempty"`
	PODSignedAt     *time.Time    `json:"pod_signed_at,omitempty"`
}

// InvoiceInput is the structured record for a carrier invoice.
type InvoiceInput struct {
	InvoiceNumber string        `json:"invoice_number" validate:"required"`
	CarrierName   string        `json:"carrier_name" validate:"required"`
	InvoiceDate   time.Time     `json:"invoice_date" validate:"required"`
	PONumber      string        `json:"po_number" validate:"required"`
	BOLNumber     string        `json:"bol_number,omitempty"`
	Charges       []ChargeInput `json:"charges" validate:"required,min=1,dive"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentTerms  string        `json:"payment_terms,omitempty"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	FileID        string        `json:"file_id,omitempty"`
}

// Service creates documents from intake records and drives their
// immediate side effects.
type Service struct {
	store    store.Store
	validate *validator.Validate
}

func NewService(st store.Store) *Service {
	return &Service{
		store:    st,
		validate: validator.New(),
	}
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return eris.Wrap(errors.Join(ErrInvalid, err), "intake: validate")
	}
	return nil
}

func toCharges(in []ChargeInput) []model.Charge {
	out := make([]model.Charge, len(in))
	for i, c := range in {
		out[i] = model.Charge{Description: c.Description, Amount: c.Amount}
	}
	return out
}

// resolveTotal trusts the document's stated total when present and falls
// back to the charge sum when the extractor produced none.
func resolveTotal(stated decimal.Decimal, charges []model.Charge) decimal.Decimal {
	if stated.IsZero() {
		return model.ChargesTotal(charges)
	}
	return stated.Round(2)
}

// SubmitPO stores a new purchase order in pending status.
func (s *Service) SubmitPO(ctx context.Context, in POInput) (*model.PurchaseOrder, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	charges := toCharges(in.ExpectedCharges)
	now := time.Now().UTC()
	po := model.PurchaseOrder{
		ID:              model.NewID(model.PrefixPurchaseOrder),
		PONumber:        in.PONumber,
		CustomerName:    in.CustomerName,
		CarrierName:     in.CarrierName,
		Origin:          in.Origin,
		Destination:     in.Destination,
		PickupDate:      in.PickupDate,
		DeliveryDate:    in.DeliveryDate,
		ExpectedCharges: charges,
		TotalAmount:     resolveTotal(in.TotalAmount, charges),
		Status:          model.POStatusPending,
		FileID:          in.FileID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.store.CreatePO(ctx, po)
	if err != nil {
		return nil, eris.Wrap(err, "intake: create po")
	}
	zap.L().Info("purchase order received",
		zap.String("po_id", created.ID),
		zap.String("po_number", created.PONumber))
	return created, nil
}

// SubmitBOL stores a new bill of lading. When the referenced PO exists and
// is still pending, it advances to bol_received; a missing PO is not an
// error, the BOL simply waits for fuzzy linkage at match time.
func (s *Service) SubmitBOL(ctx context.Context, in BOLInput) (*model.BillOfLading, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bol := model.BillOfLading{
		ID:              model.NewID(model.PrefixBillOfLading),
		BOLNumber:       in.BOLNumber,
		PONumber:        in.PONumber,
		CarrierName:     in.CarrierName,
		Origin:          in.Origin,
		Destination:     in.Destination,
		PickupDate:      in.PickupDate,
		DeliveryDate:    in.DeliveryDate,
		WeightLbs:       in.WeightLbs,
		ItemDescription: in.ItemDescription,
		ActualCharges:   toCharges(in.ActualCharges),
		PODFileID:       in.PODFileID,
		PODSignedAt:     in.PODSignedAt,
		Status:          model.BOLStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	po, err := s.store.GetPOByNumber(ctx, in.PONumber)
	switch {
	case err == nil:
		bol.POID = po.ID
	case errors.Is(err, store.ErrNotFound):
		zap.L().Info("bol references unknown po",
			zap.String("bol_number", in.BOLNumber),
			zap.String("po_number", in.PONumber))
	default:
		return nil, eris.Wrap(err, "intake: lookup po for bol")
	}

	created, err := s.store.CreateBOL(ctx, bol)
	if err != nil {
		return nil, eris.Wrap(err, "intake: create bol")
	}

	if po != nil && po.Status == model.POStatusPending {
		if err := s.store.UpdatePOStatus(ctx, po.ID, model.POStatusBOLReceived); err != nil {
			zap.L().Warn("po status advance failed",
				zap.String("po_id", po.ID),
				zap.Error(err))
		}
	}

	zap.L().Info("bill of lading received",
		zap.String("bol_id", created.ID),
		zap.String("bol_number", created.BOLNumber))
	return created, nil
}

// SubmitInvoice stores a new invoice and enqueues a matching job for it.
// The job is fire-and-forget; the caller gets the invoice back immediately.
func (s *Service) SubmitInvoice(ctx context.Context, in InvoiceInput) (*model.Invoice, *model.MatchJob, error) {
	if err := s.check(in); err != nil {
		return nil, nil, err
	}

	charges := toCharges(in.Charges)
	now := time.Now().UTC()
	inv := model.Invoice{
		ID:            model.NewID(model.PrefixInvoice),
		InvoiceNumber: in.InvoiceNumber,
		CarrierName:   in.CarrierName,
		InvoiceDate:   in.InvoiceDate,
		PONumber:      in.PONumber,
		BOLNumber:     in.BOLNumber,
		Charges:       charges,
		TotalAmount:   resolveTotal(in.TotalAmount, charges),
		PaymentTerms:  in.PaymentTerms,
		DueDate:       in.DueDate,
		FileID:        in.FileID,
		Status:        model.InvoiceStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, nil, eris.Wrap(err, "intake: create invoice")
	}

	job, err := s.store.EnqueueMatchJob(ctx, created.ID)
	if err != nil {
		// The invoice is stored; a lost job is recoverable by a manual
		// re-run, so this surfaces as a warning rather than a failure.
		zap.L().Warn("match job enqueue failed",
			zap.String("invoice_id", created.ID),
			zap.Error(err))
		return created, nil, nil
	}

	zap.L().Info("invoice received",
		zap.String("invoice_id", created.ID),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("job_id", job.ID))
	return created, job, nil
}

// ErrNotReviewable is returned when an approval decision targets an
// invoice that has not been through matching yet.
var ErrNotReviewable = errors.New("invoice is not reviewable")

// reviewable reports whether an invoice can take an approval decision.
// Only matched and flagged invoices have a verdict to act on.
func reviewable(status model.InvoiceStatus) bool {
	return status == model.InvoiceStatusMatched || status == model.InvoiceStatusFlagged
}

func (s *Service) decide(ctx context.Context, invoiceID string, target model.InvoiceStatus, decidedBy, notes string) (*model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, eris.Wrap(err, "intake: get invoice")
	}
	if !reviewable(inv.Status) {
		return nil, eris.Wrapf(ErrNotReviewable, "intake: invoice %s is %s", invoiceID, inv.Status)
	}

	if err := s.store.UpdateInvoiceApproval(ctx, invoiceID, target, decidedBy, notes); err != nil {
		return nil, eris.Wrap(err, "intake: record decision")
	}

	zap.L().Info("invoice decision recorded",
		zap.String("invoice_id", invoiceID),
		zap.String("status", string(target)),
		zap.String("decided_by", decidedBy))
	return s.store.GetInvoice(ctx, invoiceID)
}

// Approve marks a matched or flagged invoice approved for payment.
func (s *Service) Approve(ctx context.Context, invoiceID, approvedBy, notes string) (*model.Invoice, error) {
	return s.decide(ctx, invoiceID, model.InvoiceStatusApproved, approvedBy, notes)
}

// Dispute marks a matched or flagged invoice as disputed with the carrier.
func (s *Service) Dispute(ctx context.Context, invoiceID, disputedBy, notes string) (*model.Invoice, error) {
	return s.decide(ctx, invoiceID, model.InvoiceStatusDisputed, disputedBy, notes)
}

// Reject marks a matched or flagged invoice rejected outright.
func (s *Service) Reject(ctx context.Context, invoiceID, rejectedBy, notes string) (*model.Invoice, error) {
	return s.decide(ctx, invoiceID, model.InvoiceStatusRejected, rejectedBy, notes)
}
