package fiscal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityType enumerates micro-entrepreneur activity categories.
type ActivityType string

const (
	ActivityCommercant  ActivityType = "COMMERCANT"
	ActivityPrestataire ActivityType = "PRESTATAIRE"
	ActivityLiberal     ActivityType = "LIBERAL"
)

// ParseActivityType normalises user supplied activity labels.
func ParseActivityType(raw string) (ActivityType, error) {
	switch ActivityType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActivityCommercant:
		return ActivityCommercant, nil
	case ActivityPrestataire:
		return ActivityPrestataire, nil
	case ActivityLiberal:
		return ActivityLiberal, nil
	}
	return "", ErrUnknownActivityType
}

// Valid reports whether the activity type is one of the known categories.
func (a ActivityType) Valid() bool {
	_, err := ParseActivityType(string(a))
	return err == nil
}

// Regime enumerates fiscal regimes.
type Regime string

const (
	RegimeMicroBIC Regime = "MICRO_BIC"
	RegimeBNC      Regime = "BNC"
	RegimeReel     Regime = "REEL"
)

// IsMicro reports whether the regime is a micro-entrepreneur regime.
func (r Regime) IsMicro() bool {
	return r == RegimeMicroBIC || r == RegimeBNC
}

// Frequency enumerates URSSAF declaration frequencies.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Valid reports whether the frequency is supported.
func (f Frequency) Valid() bool {
	return f == FrequencyMonthly || f == FrequencyQuarterly
}

// Profile is the fiscal identity the aggregator needs.
type Profile struct {
	UserID    uuid.UUID
	Regime    Regime
	Activity  ActivityType
	Frequency Frequency
}

// IssuedInvoice is an invoice issued by the user, reduced to what the turnover
// computation needs. SharedOut is the sum of sub-invoices allocated to other
// collective members.
type IssuedInvoice struct {
	InvoiceID   uuid.UUID
	InvoiceDate time.Time
	Total       decimal.Decimal
	SharedOut   decimal.Decimal
	Paid        bool
}

// Retained returns the part of the invoice the issuer keeps as own turnover.
func (i IssuedInvoice) Retained() decimal.Decimal {
	return i.Total.Sub(i.SharedOut)
}

// ReceivedShare is a sub-invoice received by the user from a collective invoice.
// ParentPaid mirrors the parent invoice payment status.
type ReceivedShare struct {
	SubInvoiceID    uuid.UUID
	ParentInvoiceID uuid.UUID
	ParentDate      time.Time
	Amount          decimal.Decimal
	ParentPaid      bool
}

// Summary is the recomputable fiscal result for one user and period.
type Summary struct {
	UserID             uuid.UUID       `json:"user_id"`
	Period             string          `json:"period"`
	Start              time.Time       `json:"start"`
	End                time.Time       `json:"end"`
	DueDate            time.Time       `json:"due_date"`
	Activity           ActivityType    `json:"activity_type"`
	Turnover           decimal.Decimal `json:"turnover"`
	IssuedTurnover     decimal.Decimal `json:"issued_turnover"`
	ReceivedTurnover   decimal.Decimal `json:"received_turnover"`
	Contribution       decimal.Decimal `json:"contribution"`
	IncomeTax          decimal.Decimal `json:"income_tax"`
	NetIncome          decimal.Decimal `json:"net_income"`
	ContributionRate   decimal.Decimal `json:"contribution_rate"`
	IncomeTaxRate      decimal.Decimal `json:"income_tax_rate"`
	YearToDateTurnover decimal.Decimal `json:"year_to_date_turnover"`
	VATThreshold       decimal.Decimal `json:"vat_threshold"`
	Threshold          Classification  `json:"threshold"`
}

// ThresholdEvent is emitted to the notification collaborator.
type ThresholdEvent struct {
	UserID       uuid.UUID       `json:"user_id"`
	Period       string          `json:"period"`
	State        ThresholdState  `json:"state"`
	Remaining    decimal.Decimal `json:"remaining"`
	ProximityPct decimal.Decimal `json:"proximity_pct"`
	Turnover     decimal.Decimal `json:"turnover"`
	Threshold    decimal.Decimal `json:"threshold"`
}
