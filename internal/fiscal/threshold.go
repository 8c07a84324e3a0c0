package fiscal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ThresholdState classifies turnover against the VAT franchise threshold.
type ThresholdState string

const (
	StateNominal     ThresholdState = "nominal"
	StateApproaching ThresholdState = "approaching"
	StateExceeded    ThresholdState = "exceeded"
)

// Rank orders states so nominal < approaching < exceeded.
func (s ThresholdState) Rank() int {
	switch s {
	case StateApproaching:
		return 1
	case StateExceeded:
		return 2
	}
	return 0
}

// Classification is the Threshold Monitor output.
type Classification struct {
	State        ThresholdState  `json:"state"`
	Remaining    decimal.Decimal `json:"remaining"`
	ProximityPct decimal.Decimal `json:"proximity_pct"`
}

// DefaultApproachingPct is the proximity at which a user is warned.
var DefaultApproachingPct = decimal.NewFromInt(70)

var hundred = decimal.NewFromInt(100)

// Monitor classifies turnover with a configurable warning boundary.
type Monitor struct {
	approachingPct decimal.Decimal
}

// NewMonitor builds a monitor; the boundary must lie strictly between 0 and 100.
func NewMonitor(approachingPct decimal.Decimal) (Monitor, error) {
	if !approachingPct.IsPositive() || approachingPct.GreaterThanOrEqual(hundred) {
		return Monitor{}, fmt.Errorf("fiscal: approaching boundary %s outside (0,100)", approachingPct)
	}
	return Monitor{approachingPct: approachingPct}, nil
}

// Classify applies the monitor boundary.
func (m Monitor) Classify(turnover, threshold decimal.Decimal) Classification {
	boundary := m.approachingPct
	if boundary.IsZero() {
		boundary = DefaultApproachingPct
	}
	if !threshold.IsPositive() {
		return Classification{State: StateExceeded, Remaining: decimal.Zero, ProximityPct: hundred}
	}
	remaining := threshold.Sub(turnover)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	// Boundaries are compared without division so no rounding can move a state.
	state := StateNominal
	switch {
	case turnover.GreaterThanOrEqual(threshold):
		state = StateExceeded
	case turnover.Mul(hundred).GreaterThanOrEqual(boundary.Mul(threshold)):
		state = StateApproaching
	}
	pct := turnover.Mul(hundred).Div(threshold)
	return Classification{State: state, Remaining: remaining.RoundBank(2), ProximityPct: pct.RoundBank(2)}
}

// Classify compares turnover with threshold using the default 70% boundary.
func Classify(turnover, threshold decimal.Decimal) Classification {
	return Monitor{approachingPct: DefaultApproachingPct}.Classify(turnover, threshold)
}
