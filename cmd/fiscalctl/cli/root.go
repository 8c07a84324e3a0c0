// Package cli implements the fiscalctl operator commands.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the fiscalctl command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "fiscalctl",
		Short:         "Operator tooling for fiscal rates, shares and background jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.AddCommand(newRatesCommand(), newSharesCommand(), newPeriodCommand(), newJobsCommand(), newMigrateCommand())
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
