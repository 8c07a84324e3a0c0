package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/facturly/facturly/internal/fiscal"
)

type periodView struct {
	Label   string `json:"label"`
	Start   string `json:"start"`
	End     string `json:"end"`
	DueDate string `json:"due_date"`
}

func newPeriodCommand() *cobra.Command {
	var (
		frequency string
		at        string
		label     string
	)
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Show a declaration period and its due date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				period fiscal.Period
				err    error
			)
			if label != "" {
				period, err = fiscal.ParsePeriod(label)
			} else {
				when := time.Now().UTC()
				if at != "" {
					if when, err = time.Parse(time.DateOnly, at); err != nil {
						return fmt.Errorf("period: invalid --at %q: %w", at, err)
					}
				}
				period, err = fiscal.PeriodFor(fiscal.Frequency(strings.ToLower(frequency)), when)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), periodView{
				Label:   period.Label(),
				Start:   period.Start.Format(time.DateOnly),
				End:     period.End.Format(time.DateOnly),
				DueDate: period.DueDate().Format(time.DateOnly),
			})
		},
	}
	cmd.Flags().StringVar(&frequency, "frequency", string(fiscal.FrequencyQuarterly), "monthly or quarterly")
	cmd.Flags().StringVar(&at, "at", "", "date in YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&label, "label", "", "period label such as 2025-Q1 or 2025-03")
	return cmd
}
