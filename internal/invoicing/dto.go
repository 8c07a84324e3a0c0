package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturly/facturly/internal/sharing"
)

type itemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

type shareRequest struct {
	UserID     string          `json:"user_id" validate:"required,uuid"`
	ShareType  string          `json:"share_type" validate:"required,oneof=percent fixed"`
	ShareValue decimal.Decimal `json:"share_value"`
}

type createInvoiceRequest struct {
	IssuerID     string          `json:"issuer_id" validate:"required,uuid"`
	CollectiveID string          `json:"collective_id" validate:"omitempty,uuid"`
	ClientName   string          `json:"client_name" validate:"required,max=200"`
	InvoiceDate  string          `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Items        []itemRequest   `json:"items" validate:"dive"`
	Shares       []shareRequest  `json:"shares" validate:"dive"`
}

type updateSharesRequest struct {
	Version int64          `json:"version" validate:"required,min=1"`
	Shares  []shareRequest `json:"shares" validate:"required,min=1,dive"`
}

type previewSharesRequest struct {
	Total  decimal.Decimal `json:"total"`
	Shares []shareRequest  `json:"shares" validate:"required,min=1,dive"`
}

type paymentWebhookRequest struct {
	EventID   string `json:"event_id" validate:"required,max=200"`
	InvoiceID string `json:"invoice_id" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=pending paid overdue"`
}

func (r createInvoiceRequest) toInput() (CreateInvoiceInput, error) {
	date, err := time.Parse(time.DateOnly, r.InvoiceDate)
	if err != nil {
		return CreateInvoiceInput{}, fmt.Errorf("%w: invoice_date: %v", ErrInvalidInvoice, err)
	}
	in := CreateInvoiceInput{
		IssuerID:    uuid.MustParse(r.IssuerID),
		ClientName:  r.ClientName,
		InvoiceDate: date,
		TotalAmount: r.TotalAmount,
		Shares:      toShares(r.Shares),
	}
	if r.CollectiveID != "" {
		id := uuid.MustParse(r.CollectiveID)
		in.CollectiveID = &id
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, Item(it))
	}
	return in, nil
}

func (r paymentWebhookRequest) toEvent() PaymentEvent {
	return PaymentEvent{
		EventID:   r.EventID,
		InvoiceID: uuid.MustParse(r.InvoiceID),
		Status:    PaymentStatus(r.Status),
	}
}

// toShares converts validated share payloads; user ids were checked by the
// uuid validator tag.
func toShares(in []shareRequest) []sharing.Share {
	if len(in) == 0 {
		return nil
	}
	out := make([]sharing.Share, 0, len(in))
	for _, s := range in {
		out = append(out, sharing.Share{
			UserID: uuid.MustParse(s.UserID),
			Type:   sharing.ShareType(s.ShareType),
			Value:  s.ShareValue,
		})
	}
	return out
}
