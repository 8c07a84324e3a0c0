package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/facturly/facturly/internal/fiscal"
)

func newRatesCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "rates", Short: "Inspect micro-entrepreneur rate tables"}

	var (
		file     string
		activity string
		at       string
		asJSON   bool
	)
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the rates in force at a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(file)
			if err != nil {
				return err
			}
			when := time.Now().UTC()
			if at != "" {
				when, err = time.Parse(time.DateOnly, at)
				if err != nil {
					return fmt.Errorf("rates show: invalid --at %q: %w", at, err)
				}
			}
			activities := []fiscal.ActivityType{fiscal.ActivityCommercant, fiscal.ActivityPrestataire, fiscal.ActivityLiberal}
			if activity != "" {
				parsed, err := fiscal.ParseActivityType(activity)
				if err != nil {
					return err
				}
				activities = []fiscal.ActivityType{parsed}
			}
			out := make(map[fiscal.ActivityType]fiscal.Rates, len(activities))
			for _, a := range activities {
				rates, err := table.RatesFor(a, when)
				if err != nil {
					return err
				}
				out[a] = rates
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVITY\tCONTRIBUTION\tINCOME TAX\tVAT THRESHOLD")
			for _, a := range activities {
				r := out[a]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a, r.ContributionRate, r.IncomeTaxRate, r.VATThreshold)
			}
			return tw.Flush()
		},
	}
	show.Flags().StringVar(&file, "file", "", "YAML rate file (defaults to the built-in table)")
	show.Flags().StringVar(&activity, "type", "", "activity type (COMMERCANT, PRESTATAIRE, LIBERAL)")
	show.Flags().StringVar(&at, "at", "", "date in YYYY-MM-DD (defaults to today)")
	show.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var validateFile string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check a YAML rate file for gaps and overlaps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := fiscal.LoadRateTable(validateFile)
			if err != nil {
				return err
			}
			schedules := table.Schedules()
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d schedules\n", len(schedules))
			for _, s := range schedules {
				to := "open"
				if s.EffectiveTo != nil {
					to = s.EffectiveTo.Format(time.DateOnly)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", s.EffectiveFrom.Format(time.DateOnly), to)
			}
			return nil
		},
	}
	validate.Flags().StringVar(&validateFile, "file", "", "YAML rate file")
	_ = validate.MarkFlagRequired("file")

	cmd.AddCommand(show, validate)
	return cmd
}

func loadTable(path string) (*fiscal.RateTable, error) {
	if path == "" {
		return fiscal.DefaultRateTable(), nil
	}
	return fiscal.LoadRateTable(path)
}
