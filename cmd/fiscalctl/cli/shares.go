package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/facturly/facturly/internal/sharing"
)

func newSharesCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "shares", Short: "Dry-run share resolution"}

	var (
		total  string
		specs  []string
		asJSON bool
	)
	resolve := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve shares against a total without touching the database",
		Example: "  fiscalctl shares resolve --total 9000 \\\n" +
			"    --share 6f1c...:fixed:4000 --share 9a2b...:fixed:3000 --share 1c3d...:percent:100",
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("shares resolve: invalid --total %q", total)
			}
			shares, err := parseShares(specs)
			if err != nil {
				return err
			}
			allocs, err := sharing.Resolve(amount, shares)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), allocs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tTYPE\tAMOUNT")
			for _, a := range allocs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.UserID, a.Type, a.Amount.StringFixedBank(2))
			}
			fmt.Fprintf(tw, "\t\t%s\n", sharing.Sum(allocs).StringFixedBank(2))
			return tw.Flush()
		},
	}
	resolve.Flags().StringVar(&total, "total", "", "invoice total")
	resolve.Flags().StringArrayVar(&specs, "share", nil, "share as user:type:value, repeatable")
	resolve.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = resolve.MarkFlagRequired("total")

	cmd.AddCommand(resolve)
	return cmd
}

func parseShares(specs []string) ([]sharing.Share, error) {
	shares := make([]sharing.Share, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("shares: %q must look like user:type:value", spec)
		}
		userID, err := uuid.Parse(parts[0])
		if err != nil {
			return nil, fmt.Errorf("shares: %q: invalid user id: %w", spec, err)
		}
		value, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("shares: %q: invalid value: %w", spec, err)
		}
		shares = append(shares, sharing.Share{
			UserID: userID,
			Type:   sharing.ShareType(strings.ToLower(parts[1])),
			Value:  value,
		})
	}
	return shares, nil
}
