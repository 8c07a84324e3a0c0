package fiscal

import (
	"github.com/shopspring/decimal"
)

// Aggregate computes the fiscal summary for one user and period from the paid
// invoices the user issued and the sub-invoices the user received. Records
// may span the whole calendar year up to the period end; only those inside
// the period count towards the declared turnover, while the year-to-date sum
// feeds the VAT threshold classification.
func Aggregate(profile Profile, period Period, issued []IssuedInvoice, received []ReceivedShare, table *RateTable, monitor Monitor) (Summary, error) {
	if !profile.Regime.IsMicro() {
		return Summary{}, ErrNotMicroEntrepreneur
	}
	if profile.Activity == "" {
		return Summary{}, ErrMissingActivityType
	}
	if err := period.Validate(); err != nil {
		return Summary{}, err
	}
	rates, err := table.RatesFor(profile.Activity, period.Start)
	if err != nil {
		return Summary{}, err
	}

	yearToDate := Period{Start: period.YearStart(), End: period.End}
	issuedTotal := decimal.Zero
	receivedTotal := decimal.Zero
	ytd := decimal.Zero
	for _, inv := range issued {
		if !inv.Paid {
			continue
		}
		retained := inv.Retained()
		if period.Contains(inv.InvoiceDate) {
			issuedTotal = issuedTotal.Add(retained)
		}
		if yearToDate.Contains(inv.InvoiceDate) {
			ytd = ytd.Add(retained)
		}
	}
	for _, share := range received {
		if !share.ParentPaid {
			continue
		}
		if period.Contains(share.ParentDate) {
			receivedTotal = receivedTotal.Add(share.Amount)
		}
		if yearToDate.Contains(share.ParentDate) {
			ytd = ytd.Add(share.Amount)
		}
	}

	turnover := issuedTotal.Add(receivedTotal)
	contribution := turnover.Mul(rates.ContributionRate).RoundBank(2)
	incomeTax := turnover.Mul(rates.IncomeTaxRate).RoundBank(2)

	return Summary{
		UserID:             profile.UserID,
		Period:             period.Label(),
		Start:              period.Start,
		End:                period.End,
		DueDate:            period.DueDate(),
		Activity:           profile.Activity,
		Turnover:           turnover,
		IssuedTurnover:     issuedTotal,
		ReceivedTurnover:   receivedTotal,
		Contribution:       contribution,
		IncomeTax:          incomeTax,
		NetIncome:          turnover.Sub(contribution).Sub(incomeTax),
		ContributionRate:   rates.ContributionRate,
		IncomeTaxRate:      rates.IncomeTaxRate,
		YearToDateTurnover: ytd,
		VATThreshold:       rates.VATThreshold,
		Threshold:          monitor.Classify(ytd, rates.VATThreshold),
	}, nil
}
