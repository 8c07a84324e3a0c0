// Package sharing splits a collective invoice total into per-member amounts.
package sharing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShareType enumerates how a share value is interpreted.
type ShareType string

const (
	ShareTypePercent ShareType = "percent"
	ShareTypeFixed   ShareType = "fixed"
)

// Share is a declared allocation rule of an invoice.
type Share struct {
	UserID uuid.UUID       `json:"user_id"`
	Type   ShareType       `json:"share_type"`
	Value  decimal.Decimal `json:"share_value"`
}

// Allocation is the resolved monetary amount of one share.
type Allocation struct {
	UserID uuid.UUID       `json:"user_id"`
	Type   ShareType       `json:"share_type"`
	Amount decimal.Decimal `json:"amount"`
}

// Sum adds up allocation amounts.
func Sum(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}

// AmountFor returns the allocation of userID, or zero when absent.
func AmountFor(allocs []Allocation, userID uuid.UUID) decimal.Decimal {
	for _, a := range allocs {
		if a.UserID == userID {
			return a.Amount
		}
	}
	return decimal.Zero
}
