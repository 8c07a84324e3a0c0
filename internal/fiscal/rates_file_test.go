package fiscal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const ratesYAML = `
schedules:
  - effective_from: 2024-01-01
    effective_to: 2025-07-01
    rates:
      COMMERCANT: {contribution_rate: "0.123", income_tax_rate: "0.01", vat_threshold: "85000"}
      PRESTATAIRE: {contribution_rate: "0.212", income_tax_rate: "0.017", vat_threshold: "37500"}
      LIBERAL: {contribution_rate: "0.211", income_tax_rate: "0.022", vat_threshold: "37500"}
  - effective_from: 2025-07-01
    rates:
      COMMERCANT: {contribution_rate: "0.123", income_tax_rate: "0.01", vat_threshold: "85000"}
      PRESTATAIRE: {contribution_rate: "0.212", income_tax_rate: "0.017", vat_threshold: "37500"}
      liberal: {contribution_rate: "0.246", income_tax_rate: "0.022", vat_threshold: "37500"}
`

func TestParseRateTable(t *testing.T) {
	table, err := ParseRateTable(strings.NewReader(ratesYAML))
	require.NoError(t, err)

	old, err := table.RatesFor(ActivityLiberal, day(2025, time.January, 15))
	require.NoError(t, err)
	require.True(t, old.ContributionRate.Equal(dec("0.211")))

	current, err := table.RatesFor(ActivityLiberal, day(2025, time.August, 1))
	require.NoError(t, err)
	require.True(t, current.ContributionRate.Equal(dec("0.246")))
	require.True(t, current.VATThreshold.Equal(dec("37500")))
}

func TestParseRateTableErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "schedules:\n  - effective_from: 2024-01-01\n    bogus: 1\n",
		"bad date":         "schedules:\n  - effective_from: 01/01/2024\n    rates: {}\n",
		"unknown activity": "schedules:\n  - effective_from: 2024-01-01\n    rates:\n      ARTISAN: {contribution_rate: \"0.1\", income_tax_rate: \"0.1\", vat_threshold: \"1\"}\n",
		"bad decimal":      "schedules:\n  - effective_from: 2024-01-01\n    rates:\n      LIBERAL: {contribution_rate: \"abc\", income_tax_rate: \"0.1\", vat_threshold: \"1\"}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRateTable(strings.NewReader(doc))
			require.Error(t, err)
		})
	}

	_, err := ParseRateTable(strings.NewReader("schedules:\n  - effective_from: 2024-01-01\n    rates: {}\n"))
	require.ErrorIs(t, err, ErrInvalidRateTable)
}

func TestLoadRateTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ratesYAML), 0o600))
	table, err := LoadRateTable(path)
	require.NoError(t, err)
	require.Len(t, table.Schedules(), 2)

	_, err = LoadRateTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
