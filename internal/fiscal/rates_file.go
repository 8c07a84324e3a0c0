package fiscal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type rateFile struct {
	Schedules []rateFileSchedule `yaml:"schedules"`
}

type rateFileSchedule struct {
	EffectiveFrom string                   `yaml:"effective_from"`
	EffectiveTo   string                   `yaml:"effective_to"`
	Rates         map[string]rateFileRates `yaml:"rates"`
}

type rateFileRates struct {
	ContributionRate string `yaml:"contribution_rate"`
	IncomeTaxRate    string `yaml:"income_tax_rate"`
	VATThreshold     string `yaml:"vat_threshold"`
}

// LoadRateTable reads a YAML rate table from disk.
func LoadRateTable(path string) (*RateTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fiscal: open rate table: %w", err)
	}
	defer f.Close()
	return ParseRateTable(f)
}

// ParseRateTable decodes a YAML rate table of the form:
//
//	schedules:
//	  - effective_from: 2024-01-01
//	    rates:
//	      COMMERCANT: {contribution_rate: "0.128", income_tax_rate: "0.01", vat_threshold: "91900"}
func ParseRateTable(r io.Reader) (*RateTable, error) {
	var doc rateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("fiscal: decode rate table: %w", err)
	}
	schedules := make([]RateSchedule, 0, len(doc.Schedules))
	for idx, raw := range doc.Schedules {
		from, err := time.Parse(time.DateOnly, raw.EffectiveFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule %d effective_from: %v", ErrInvalidRateTable, idx, err)
		}
		schedule := RateSchedule{EffectiveFrom: from, Rates: make(map[ActivityType]Rates, len(raw.Rates))}
		if raw.EffectiveTo != "" {
			to, err := time.Parse(time.DateOnly, raw.EffectiveTo)
			if err != nil {
				return nil, fmt.Errorf("%w: schedule %d effective_to: %v", ErrInvalidRateTable, idx, err)
			}
			schedule.EffectiveTo = &to
		}
		for label, values := range raw.Rates {
			activity, err := ParseActivityType(label)
			if err != nil {
				return nil, fmt.Errorf("%w: schedule %d: %s", ErrInvalidRateTable, idx, label)
			}
			rates, err := values.decode()
			if err != nil {
				return nil, fmt.Errorf("%w: schedule %d %s: %v", ErrInvalidRateTable, idx, activity, err)
			}
			schedule.Rates[activity] = rates
		}
		schedules = append(schedules, schedule)
	}
	return NewRateTable(schedules...)
}

func (r rateFileRates) decode() (Rates, error) {
	contribution, err := decimal.NewFromString(r.ContributionRate)
	if err != nil {
		return Rates{}, fmt.Errorf("contribution_rate: %w", err)
	}
	incomeTax, err := decimal.NewFromString(r.IncomeTaxRate)
	if err != nil {
		return Rates{}, fmt.Errorf("income_tax_rate: %w", err)
	}
	threshold, err := decimal.NewFromString(r.VATThreshold)
	if err != nil {
		return Rates{}, fmt.Errorf("vat_threshold: %w", err)
	}
	return Rates{ContributionRate: contribution, IncomeTaxRate: incomeTax, VATThreshold: threshold}, nil
}
