// Package cli wires configuration, providers and ledgers into the checkin
// commands.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Face recognition check-in with once-per-day attendance",
		Long: `checkin identifies people in front of a camera against a directory of
member photos and records at most one attendance entry per member per day.

Unknown faces can be enrolled on the spot. Configuration comes from the
environment (or a .env file); the flags below override it.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("gallery", "", "Member photo directory (GALLERY_DIR)")
	flags.Float64("threshold", 0, "Match distance threshold (MATCH_THRESHOLD)")
	flags.String("provider", "", "Face provider: deepface, rekognition or mock (FACE_PROVIDER)")
	flags.String("ledger", "", "Attendance backend: csv, postgres or sqlite (LEDGER_BACKEND)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newIdentifyCmd())
	cmd.AddCommand(newEnrollCmd())
	cmd.AddCommand(newMembersCmd())
	cmd.AddCommand(newAttendanceCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}
