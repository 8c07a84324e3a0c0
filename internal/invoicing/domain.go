// Package invoicing issues invoices, materializes collective shares as
// sub-invoices and applies payment status callbacks.
package invoicing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturly/facturly/internal/sharing"
)

// PaymentStatus enumerates the payment lifecycle of a parent invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// Valid reports whether the status is known.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue:
		return true
	}
	return false
}

// DocumentStatus enumerates the editing lifecycle shared by invoices and
// sub-invoices.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusFinalized DocumentStatus = "finalized"
)

// SubPaymentStatus is the payment status projected onto a sub-invoice.
type SubPaymentStatus string

const (
	SubPaymentUnpaid SubPaymentStatus = "unpaid"
	SubPaymentPaid   SubPaymentStatus = "paid"
)

// Item is an invoice line.
type Item struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// Amount returns quantity times unit price.
func (i Item) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// ItemsTotal sums line amounts rounded half-even to cents.
func ItemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount())
	}
	return total.RoundBank(2)
}

// Invoice is a client invoice, optionally issued on behalf of a collective.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	IssuerID      uuid.UUID       `json:"issuer_id"`
	CollectiveID  *uuid.UUID      `json:"collective_id,omitempty"`
	ClientName    string          `json:"client_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Status        DocumentStatus  `json:"status"`
	Version       int64           `json:"version"`
	Items         []Item          `json:"items,omitempty"`
	Shares        []sharing.Share `json:"shares,omitempty"`
	SubInvoices   []SubInvoice    `json:"sub_invoices,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsCollective reports whether the invoice is linked to a collective.
func (i Invoice) IsCollective() bool {
	return i.CollectiveID != nil && *i.CollectiveID != uuid.Nil
}

// SubInvoice is the portion of a collective invoice owed to one member. Its
// payment status is never stored; it follows the parent invoice.
type SubInvoice struct {
	ID              uuid.UUID
	ParentInvoiceID uuid.UUID
	IssuerID        uuid.UUID
	ReceiverID      uuid.UUID
	Amount          decimal.Decimal
	Status          DocumentStatus
	CreatedAt       time.Time

	parentPayment PaymentStatus
}

// PaymentStatus derives the sub-invoice payment status from its parent.
func (s SubInvoice) PaymentStatus() SubPaymentStatus {
	if s.parentPayment == PaymentPaid {
		return SubPaymentPaid
	}
	return SubPaymentUnpaid
}

// withParent binds the parent payment status used for derivation.
func (s SubInvoice) withParent(status PaymentStatus) SubInvoice {
	s.parentPayment = status
	return s
}

// MarshalJSON renders the derived payment status alongside stored fields.
func (s SubInvoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              uuid.UUID        `json:"id"`
		ParentInvoiceID uuid.UUID        `json:"parent_invoice_id"`
		IssuerID        uuid.UUID        `json:"issuer_id"`
		ReceiverID      uuid.UUID        `json:"receiver_id"`
		Amount          decimal.Decimal  `json:"amount"`
		Status          DocumentStatus   `json:"status"`
		PaymentStatus   SubPaymentStatus `json:"payment_status"`
		CreatedAt       time.Time        `json:"created_at"`
	}{s.ID, s.ParentInvoiceID, s.IssuerID, s.ReceiverID, s.Amount, s.Status, s.PaymentStatus(), s.CreatedAt})
}

// PaymentEvent is a payment provider callback.
type PaymentEvent struct {
	EventID   string        `json:"event_id"`
	InvoiceID uuid.UUID     `json:"invoice_id"`
	Status    PaymentStatus `json:"status"`
}

// Materialize derives the sub-invoices of a parent invoice from its resolved
// allocations. The issuer keeps its own share on the parent and zero
// allocations produce no document.
func Materialize(parent Invoice, allocs []sharing.Allocation) []SubInvoice {
	out := make([]SubInvoice, 0, len(allocs))
	for _, a := range allocs {
		if a.UserID == parent.IssuerID || !a.Amount.IsPositive() {
			continue
		}
		out = append(out, SubInvoice{
			ID:              uuid.New(),
			ParentInvoiceID: parent.ID,
			IssuerID:        parent.IssuerID,
			ReceiverID:      a.UserID,
			Amount:          a.Amount,
			Status:          parent.Status,
			parentPayment:   parent.PaymentStatus,
		})
	}
	return out
}
