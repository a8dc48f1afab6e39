package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/session"
)

func newMembersCmd() *cobra.Command {
	var (
		verbose     bool
		check       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List enrolled members",
		Long: `Lists the gallery. With --check every reference photo goes through face
detection and photos that cannot be matched are reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			g, err := a.loadGallery()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if verbose {
				for _, m := range g.Members() {
					fmt.Fprintf(out, "%-24s %-24s %s\n", m.Label, m.DisplayName, m.PhotoPath)
				}
			} else {
				session.ReportMembers(out, g)
			}

			if !check || g.Len() == 0 {
				return nil
			}

			ctx := cmd.Context()
			matcher, err := a.matcher(ctx)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(g.Len(),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Detecting faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("photos"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)

			issues, err := matcher.CheckGallery(ctx, g, concurrency, func() { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}

			if len(issues) == 0 {
				fmt.Fprintf(out, "\nTodas las fotos tienen una cara detectable (%d)\n", g.Len())
				return nil
			}

			fmt.Fprintf(out, "\nFotos con problemas: %d\n", len(issues))
			for _, issue := range issues {
				path, _ := g.Path(issue.Label)
				fmt.Fprintf(out, "   %s (%s): %v\n", issue.Label, path, issue.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "One line per member with display name and photo path")
	cmd.Flags().BoolVar(&check, "check", false, "Run face detection on every reference photo")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Photos checked in parallel with --check")

	return cmd
}
