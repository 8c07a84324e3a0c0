package fiscal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func prestataire() Profile {
	return Profile{UserID: uuid.New(), Regime: RegimeMicroBIC, Activity: ActivityPrestataire, Frequency: FrequencyQuarterly}
}

func q1() Period {
	p, _ := PeriodFor(FrequencyQuarterly, day(2025, time.February, 1))
	return p
}

func TestAggregateScenarioB(t *testing.T) {
	issued := []IssuedInvoice{{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.February, 10), Total: dec("1000"), SharedOut: dec("0"), Paid: true}}

	summary, err := Aggregate(prestataire(), q1(), issued, nil, DefaultRateTable(), Monitor{})
	require.NoError(t, err)
	require.True(t, summary.Turnover.Equal(dec("1000")))
	require.True(t, summary.Contribution.Equal(dec("220.00")), summary.Contribution.String())
	require.True(t, summary.IncomeTax.Equal(dec("17.00")), summary.IncomeTax.String())
	require.True(t, summary.NetIncome.Equal(dec("763.00")), summary.NetIncome.String())
	require.Equal(t, "2025-Q1", summary.Period)
	require.Equal(t, day(2025, time.April, 30), summary.DueDate)
	require.Equal(t, StateNominal, summary.Threshold.State)
}

func TestAggregateRetainedAndReceivedTurnover(t *testing.T) {
	profile := prestataire()
	issued := []IssuedInvoice{
		{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.February, 1), Total: dec("9000"), SharedOut: dec("5000"), Paid: true},
		{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.March, 31), Total: dec("250"), SharedOut: dec("0"), Paid: false},
		{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.April, 1), Total: dec("999"), SharedOut: dec("0"), Paid: true},
	}
	received := []ReceivedShare{
		{SubInvoiceID: uuid.New(), ParentInvoiceID: uuid.New(), ParentDate: day(2025, time.January, 5), Amount: dec("3000"), ParentPaid: true},
		{SubInvoiceID: uuid.New(), ParentInvoiceID: uuid.New(), ParentDate: day(2025, time.March, 5), Amount: dec("700"), ParentPaid: false},
	}

	summary, err := Aggregate(profile, q1(), issued, received, DefaultRateTable(), Monitor{})
	require.NoError(t, err)
	require.True(t, summary.IssuedTurnover.Equal(dec("4000")))
	require.True(t, summary.ReceivedTurnover.Equal(dec("3000")))
	require.True(t, summary.Turnover.Equal(dec("7000")))
	require.True(t, summary.YearToDateTurnover.Equal(dec("7000")))
}

func TestAggregateYearToDateDrivesThreshold(t *testing.T) {
	profile := prestataire()
	april, err := PeriodFor(FrequencyMonthly, day(2025, time.April, 15))
	require.NoError(t, err)
	issued := []IssuedInvoice{
		{InvoiceID: uuid.New(), InvoiceDate: day(2024, time.December, 20), Total: dec("30000"), SharedOut: dec("0"), Paid: true},
		{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.January, 20), Total: dec("35000"), SharedOut: dec("0"), Paid: true},
		{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.April, 2), Total: dec("1000"), SharedOut: dec("0"), Paid: true},
	}

	summary, err := Aggregate(profile, april, issued, nil, DefaultRateTable(), Monitor{})
	require.NoError(t, err)
	require.True(t, summary.Turnover.Equal(dec("1000")))
	require.True(t, summary.YearToDateTurnover.Equal(dec("36000")))
	require.Equal(t, StateApproaching, summary.Threshold.State)
	require.True(t, summary.Threshold.Remaining.Equal(dec("800")))
}

func TestAggregateRoundsHalfEven(t *testing.T) {
	profile := Profile{UserID: uuid.New(), Regime: RegimeBNC, Activity: ActivityCommercant}
	issued := []IssuedInvoice{{InvoiceID: uuid.New(), InvoiceDate: day(2025, time.January, 2), Total: dec("0.50"), SharedOut: dec("0"), Paid: true}}

	// 0.50 * 0.01 = 0.005 rounds to 0.00; 0.50 * 0.128 = 0.064 rounds to 0.06.
	summary, err := Aggregate(profile, q1(), issued, nil, DefaultRateTable(), Monitor{})
	require.NoError(t, err)
	require.True(t, summary.IncomeTax.Equal(dec("0.00")), summary.IncomeTax.String())
	require.True(t, summary.Contribution.Equal(dec("0.06")), summary.Contribution.String())
	require.True(t, summary.NetIncome.Equal(dec("0.44")))
}

func TestAggregateErrors(t *testing.T) {
	table := DefaultRateTable()

	_, err := Aggregate(Profile{Regime: RegimeReel, Activity: ActivityLiberal}, q1(), nil, nil, table, Monitor{})
	require.ErrorIs(t, err, ErrNotMicroEntrepreneur)

	_, err = Aggregate(Profile{Regime: RegimeMicroBIC}, q1(), nil, nil, table, Monitor{})
	require.ErrorIs(t, err, ErrMissingActivityType)

	inverted := Period{Start: day(2025, time.April, 1), End: day(2025, time.January, 1)}
	_, err = Aggregate(prestataire(), inverted, nil, nil, table, Monitor{})
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = Aggregate(Profile{Regime: RegimeBNC, Activity: "ARTISAN"}, q1(), nil, nil, table, Monitor{})
	require.ErrorIs(t, err, ErrUnknownActivityType)

	old, _ := PeriodFor(FrequencyMonthly, day(2023, time.June, 1))
	_, err = Aggregate(prestataire(), old, nil, nil, table, Monitor{})
	require.ErrorIs(t, err, ErrNoRateSchedule)
}
