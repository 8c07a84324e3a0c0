package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a half-open declaration window [Start, End).
type Period struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Frequency Frequency `json:"frequency"`
}

// PeriodFor returns the declaration period containing t.
func PeriodFor(freq Frequency, t time.Time) (Period, error) {
	t = t.UTC()
	switch freq {
	case FrequencyMonthly:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(0, 1, 0), Frequency: freq}, nil
	case FrequencyQuarterly:
		firstMonth := time.Month((int(t.Month())-1)/3*3 + 1)
		start := time.Date(t.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(0, 3, 0), Frequency: freq}, nil
	}
	return Period{}, fmt.Errorf("%w: unsupported frequency %q", ErrInvalidPeriod, freq)
}

// ParsePeriod accepts "2025-03" (monthly) or "2025-Q1" (quarterly) labels.
func ParsePeriod(label string) (Period, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if year, quarter, ok := strings.Cut(label, "-Q"); ok {
		y, err := strconv.Atoi(year)
		if err != nil || len(year) != 4 {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
		}
		q, err := strconv.Atoi(quarter)
		if err != nil || q < 1 || q > 4 {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
		}
		return PeriodFor(FrequencyQuarterly, time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC))
	}
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	return PeriodFor(FrequencyMonthly, t)
}

// Validate rejects empty or inverted periods.
func (p Period) Validate() error {
	if p.Start.IsZero() || !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// YearStart returns January 1st of the year the period starts in.
func (p Period) YearStart() time.Time {
	return time.Date(p.Start.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Label renders the period as "2025-03" or "2025-Q1". Custom windows render
// as "start..end".
func (p Period) Label() string {
	switch p.Frequency {
	case FrequencyMonthly:
		return p.Start.Format("2006-01")
	case FrequencyQuarterly:
		return fmt.Sprintf("%d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	}
	return p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
}

// DueDate is the URSSAF declaration deadline: the last day of the month
// following the period.
func (p Period) DueDate() time.Time {
	firstOfFollowing := time.Date(p.End.Year(), p.End.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfFollowing.AddDate(0, 1, -1)
}
