package fiscal

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Rates are the flat-rate obligations applying to one activity type.
type Rates struct {
	ContributionRate decimal.Decimal `json:"contribution_rate"`
	IncomeTaxRate    decimal.Decimal `json:"income_tax_rate"`
	VATThreshold     decimal.Decimal `json:"vat_threshold"`
}

// RateSchedule holds the rates in force between EffectiveFrom (inclusive) and
// EffectiveTo (exclusive). A nil EffectiveTo means the schedule is current.
type RateSchedule struct {
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Rates         map[ActivityType]Rates
}

func (s RateSchedule) covers(at time.Time) bool {
	if at.Before(s.EffectiveFrom) {
		return false
	}
	return s.EffectiveTo == nil || at.Before(*s.EffectiveTo)
}

// RateTable is a dated lookup of micro-entrepreneur rates. Legal rates change
// yearly, so callers inject a table rather than relying on constants.
type RateTable struct {
	schedules []RateSchedule
}

// NewRateTable validates and orders the schedules.
func NewRateTable(schedules ...RateSchedule) (*RateTable, error) {
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: no schedules", ErrInvalidRateTable)
	}
	sorted := make([]RateSchedule, len(schedules))
	copy(sorted, schedules)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	one := decimal.NewFromInt(1)
	for idx, s := range sorted {
		if s.EffectiveFrom.IsZero() {
			return nil, fmt.Errorf("%w: schedule %d missing effective date", ErrInvalidRateTable, idx)
		}
		if s.EffectiveTo != nil && !s.EffectiveTo.After(s.EffectiveFrom) {
			return nil, fmt.Errorf("%w: schedule %s ends before it starts", ErrInvalidRateTable, s.EffectiveFrom.Format(time.DateOnly))
		}
		if idx > 0 {
			prev := sorted[idx-1]
			if prev.EffectiveTo == nil || prev.EffectiveTo.After(s.EffectiveFrom) {
				return nil, fmt.Errorf("%w: schedules %s and %s overlap", ErrInvalidRateTable,
					prev.EffectiveFrom.Format(time.DateOnly), s.EffectiveFrom.Format(time.DateOnly))
			}
		}
		for _, activity := range []ActivityType{ActivityCommercant, ActivityPrestataire, ActivityLiberal} {
			r, ok := s.Rates[activity]
			if !ok {
				return nil, fmt.Errorf("%w: schedule %s missing %s", ErrInvalidRateTable, s.EffectiveFrom.Format(time.DateOnly), activity)
			}
			if r.ContributionRate.IsNegative() || r.ContributionRate.GreaterThan(one) ||
				r.IncomeTaxRate.IsNegative() || r.IncomeTaxRate.GreaterThan(one) {
				return nil, fmt.Errorf("%w: %s rates must be within [0,1]", ErrInvalidRateTable, activity)
			}
			if !r.VATThreshold.IsPositive() {
				return nil, fmt.Errorf("%w: %s VAT threshold must be positive", ErrInvalidRateTable, activity)
			}
		}
	}
	return &RateTable{schedules: sorted}, nil
}

// RatesFor returns the rates for an activity type in force at the given date.
func (t *RateTable) RatesFor(activity ActivityType, at time.Time) (Rates, error) {
	if !activity.Valid() {
		return Rates{}, ErrUnknownActivityType
	}
	if t == nil {
		return Rates{}, ErrNoRateSchedule
	}
	for i := len(t.schedules) - 1; i >= 0; i-- {
		s := t.schedules[i]
		if s.covers(at) {
			return s.Rates[activity], nil
		}
	}
	return Rates{}, fmt.Errorf("%w: %s", ErrNoRateSchedule, at.Format(time.DateOnly))
}

// Schedules returns a copy of the ordered schedules.
func (t *RateTable) Schedules() []RateSchedule {
	if t == nil {
		return nil
	}
	out := make([]RateSchedule, len(t.schedules))
	copy(out, t.schedules)
	return out
}

// DefaultRateTable returns the rates in force since 2024-01-01.
func DefaultRateTable() *RateTable {
	table, err := NewRateTable(RateSchedule{
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Rates: map[ActivityType]Rates{
			ActivityCommercant: {
				ContributionRate: decimal.RequireFromString("0.128"),
				IncomeTaxRate:    decimal.RequireFromString("0.010"),
				VATThreshold:     decimal.NewFromInt(91900),
			},
			ActivityPrestataire: {
				ContributionRate: decimal.RequireFromString("0.220"),
				IncomeTaxRate:    decimal.RequireFromString("0.017"),
				VATThreshold:     decimal.NewFromInt(36800),
			},
			ActivityLiberal: {
				ContributionRate: decimal.RequireFromString("0.220"),
				IncomeTaxRate:    decimal.RequireFromString("0.022"),
				VATThreshold:     decimal.NewFromInt(36800),
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}
