package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// POStatus represents the lifecycle state of a purchase order.
type POStatus string

const (
	POStatusPending     POStatus = "pending"
	POStatusBOLReceived POStatus = "bol_received"
	POStatusInvoiced    POStatus = "invoiced"
	POStatusMatched     POStatus = "matched"
	POStatusDisputed    POStatus = "disputed"
)

// BOLStatus represents the lifecycle state of a bill of lading.
type BOLStatus string

const (
	BOLStatusPending   BOLStatus = "pending"
	BOLStatusDelivered BOLStatus = "delivered"
	BOLStatusInvoiced  BOLStatus = "invoiced"
	BOLStatusMatched   BOLStatus = "matched"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusMatched  InvoiceStatus = "matched"
	InvoiceStatusFlagged  InvoiceStatus = "flagged"
	InvoiceStatusApproved InvoiceStatus = "approved"
	InvoiceStatusDisputed InvoiceStatus = "disputed"
	InvoiceStatusRejected InvoiceStatus = "rejected"
)

// MatchType records how an invoice was linked to its purchase order.
type MatchType string

const (
	MatchTypeExact  MatchType = "exact"
	MatchTypeFuzzy  MatchType = "fuzzy"
	MatchTypeManual MatchType = "manual"
)

// Charge is a single line item on a PO, BOL, or invoice.
type Charge struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ChargesTotal sums a charge list, rounded to cents.
func ChargesTotal(charges []Charge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(c.Amount)
	}
	return total.Round(2)
}

// AmountsEqual reports whether two amounts agree at cent precision.
// Amounts arrive from OCR and LLM output as floats, so comparison
// tolerates rounding noise below half a cent.
func AmountsEqual(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

// PurchaseOrder is the buyer's expected-charges document.
type PurchaseOrder struct {
	ID              string    `json:"id"`
	PONumber        string    `json:"po_number"`
	CustomerName    string    `json:"customer_name"`
	CarrierName     string    `json:"carrier_name"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	PickupDate      time.Time `json:"pickup_date"`
	DeliveryDate    time.Time `json:"delivery_date"`
	ExpectedCharges []Charge  `json:"expected_charges"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          POStatus  `json:"status"`
	FileID          string    `json:"file_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BillOfLading is the carrier's shipment record. ActualCharges is optional;
// many BOLs carry no charge breakdown at all.
type BillOfLading struct {
	ID              string     `json:"id"`
	BOLNumber       string     `json:"bol_number"`
	PONumber        string     `json:"po_number"`
	POID            string     `json:"po_id,omitempty"`
	CarrierName     string     `json:"carrier_name"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	PickupDate      time.Time  `json:"pickup_date"`
	DeliveryDate    time.Time  `json:"delivery_date"`
	WeightLbs       *float64   `json:"weight_lbs,omitempty"`
	ItemDescription string     `json:"item_description,omitempty"`
	ActualCharges   []Charge   `json:"actual_charges,omitempty"`
	PODFileID       string     `json:"pod_file_id,omitempty"`
	PODSignedAt     *time.Time `json:"pod_signed_at,omitempty"`
	Status          BOLStatus  `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Invoice is the carrier's bill. Its PO number is the anchor for all
// linkage; matching is invoice-driven.
type Invoice struct {
	ID              string          `json:"id"`
	InvoiceNumber   string          `json:"invoice_number"`
	CarrierName     string          `json:"carrier_name"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	PONumber        string          `json:"po_number"`
	BOLNumber       string          `json:"bol_number,omitempty"`
	POID            string          `json:"po_id,omitempty"`
	BOLID           string          `json:"bol_id,omitempty"`
	Charges         []Charge        `json:"charges"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentTerms    string          `json:"payment_terms,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	FileID          string          `json:"file_id,omitempty"`
	MatchType       MatchType       `json:"match_type,omitempty"`
	MatchConfidence float64         `json:"match_confidence"`
	Status          InvoiceStatus   `json:"status"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovalNotes   string          `json:"approval_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// File holds metadata for an uploaded source document.
type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"storage_path"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentKind tags the members of the comparable-document union.
type DocumentKind string

const (
	KindPurchaseOrder DocumentKind = "purchase_order"
	KindBillOfLading  DocumentKind = "bill_of_lading"
	KindInvoice       DocumentKind = "invoice"
)

// Comparable is the shared field projection the analyzer compares across
// document kinds, so normalization is written once rather than per entity.
type Comparable struct {
	Kind         DocumentKind
	Number       string
	CarrierName  string
	Origin       string
	Destination  string
	PickupDate   time.Time
	DeliveryDate time.Time
	Charges      []Charge
	Total        decimal.Decimal
}

// Comparable projects the PO onto the shared comparison shape.
func (po *PurchaseOrder) Comparable() Comparable {
	return Comparable{
		Kind:         KindPurchaseOrder,
		Number:       po.PONumber,
		CarrierName:  po.CarrierName,
		Origin:       po.Origin,
		Destination:  po.Destination,
		PickupDate:   po.PickupDate,
		DeliveryDate: po.DeliveryDate,
		Charges:      po.ExpectedCharges,
		Total:        po.TotalAmount,
	}
}

// Comparable projects the BOL onto the shared comparison shape. The total
// is derived from actual charges when present.
func (b *BillOfLading) Comparable() Comparable {
	return Comparable{
		Kind:         KindBillOfLading,
		Number:       b.BOLNumber,
		CarrierName:  b.CarrierName,
		Origin:       b.Origin,
		Destination:  b.Destination,
		PickupDate:   b.PickupDate,
		DeliveryDate: b.DeliveryDate,
		Charges:      b.ActualCharges,
		Total:        ChargesTotal(b.ActualCharges),
	}
}

// Comparable projects the invoice onto the shared comparison shape.
func (inv *Invoice) Comparable() Comparable {
	return Comparable{
		Kind:         KindInvoice,
		Number:       inv.InvoiceNumber,
		CarrierName:  inv.CarrierName,
		Origin:       "",
		Destination:  "",
		PickupDate:   inv.InvoiceDate,
		DeliveryDate: inv.InvoiceDate,
		Charges:      inv.Charges,
		Total:        inv.TotalAmount,
	}
}

// FindCharge looks up a charge by case-insensitive description.
func FindCharge(charges []Charge, description string) (Charge, bool) {
	for _, c := range charges {
		if strings.EqualFold(c.Description, description) {
			return c, true
		}
	}
	return Charge{}, false
}
