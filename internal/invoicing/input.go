package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturly/facturly/internal/sharing"
)

// CreateInvoiceInput groups fields required to issue an invoice.
type CreateInvoiceInput struct {
	IssuerID     uuid.UUID
	CollectiveID *uuid.UUID
	ClientName   string
	InvoiceDate  time.Time
	TotalAmount  decimal.Decimal
	Items        []Item
	Shares       []sharing.Share
}

// Validate checks the input shape. Fiscal and membership rules are enforced
// by the service.
func (in CreateInvoiceInput) Validate() error {
	if in.IssuerID == uuid.Nil {
		return fmt.Errorf("%w: issuer required", ErrInvalidInvoice)
	}
	if in.InvoiceDate.IsZero() {
		return fmt.Errorf("%w: invoice date required", ErrInvalidInvoice)
	}
	if in.TotalAmount.IsNegative() || !in.TotalAmount.Equal(in.TotalAmount.Round(2)) {
		return fmt.Errorf("%w: total %s must be a non-negative amount in cents", ErrInvalidInvoice, in.TotalAmount)
	}
	for idx, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidInvoice, idx)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d negative unit price", ErrInvalidInvoice, idx)
		}
		if it.VATRate.IsNegative() || it.VATRate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: item %d VAT rate outside [0,1]", ErrInvalidInvoice, idx)
		}
	}
	if len(in.Items) > 0 {
		if sum := ItemsTotal(in.Items); !sum.Equal(in.TotalAmount) {
			return fmt.Errorf("%w: items sum to %s, total is %s", ErrTotalMismatch, sum, in.TotalAmount)
		}
	}
	if len(in.Shares) > 0 && (in.CollectiveID == nil || *in.CollectiveID == uuid.Nil) {
		return ErrSharesWithoutCollective
	}
	return nil
}

// UpdateSharesInput replaces the shares of a draft collective invoice.
type UpdateSharesInput struct {
	InvoiceID       uuid.UUID
	ExpectedVersion int64
	Shares          []sharing.Share
}
