package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/database"
)

var migrateActions = []string{"up", "down", "version", "force"}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|version|force> [version]",
		Short: "Manage the attendance database schema",
		Long: `Runs the embedded migrations against DATABASE_URL. Only needed with the
postgres ledger backend.

  up        apply all pending migrations
  down      roll back the last migration
  version   print the current version
  force N   set the version to N without running anything (clears a dirty state)`,
		ValidArgs: migrateActions,
		Args:      validateMigrateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrate")
			}

			migrator, err := database.Open(cmd.Context(), a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }()

			a.logger.Info("connected to database")

			out := cmd.OutOrStdout()

			switch args[0] {
			case "up":
				a.logger.Info("running migrations")
				if err := migrator.Up(); err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Migrations completed successfully")

			case "down":
				a.logger.Info("rolling back last migration")
				if err := migrator.Down(); err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Migration rolled back successfully")

			case "version":
				version, dirty, err := migrator.Version()
				if err != nil {
					return err
				}
				if dirty {
					fmt.Fprintf(out, "Current version: %d (DIRTY - migration incomplete)\n", version)
				} else {
					fmt.Fprintf(out, "Current version: %d\n", version)
				}

			case "force":
				version, _ := strconv.Atoi(args[1])
				if err := migrator.Force(version); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Migration version forced to %d\n", version)
			}

			return nil
		},
	}
}

func validateMigrateArgs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing action (use: up, down, version, force)")
	}

	switch args[0] {
	case "up", "down", "version":
		if len(args) != 1 {
			return fmt.Errorf("%s takes no arguments", args[0])
		}
	case "force":
		if len(args) != 2 {
			return fmt.Errorf("force requires a version")
		}
		if _, err := strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", args[0])
	}

	return nil
}
