package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAttendanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attendance",
		Short: "List who checked in today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()

			ledger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			labels, err := ledger.TodayLabels(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Asistencias de hoy: %d\n", len(labels))
			for _, label := range labels {
				fmt.Fprintf(out, "   %s\n", label)
			}
			return nil
		},
	}
}
