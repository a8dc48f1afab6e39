package cli

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/frame"
)

func newIdentifyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Run one check-in cycle on an image file",
		Long: `Identifies the face in image against the gallery and, when it matches,
records today's attendance. With --dry-run nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()

			probe, err := readImage(args[0])
			if err != nil {
				return err
			}
			g, err := a.loadGallery()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if dryRun {
				matcher, err := a.matcher(ctx)
				if err != nil {
					return err
				}
				box, err := matcher.DetectFace(ctx, probe)
				if err != nil {
					return err
				}
				if box == nil {
					return domain.ErrNoFaceDetected
				}
				match, err := matcher.Identify(ctx, probe, g, a.cfg.MatchThreshold)
				if err != nil {
					return err
				}
				printMatch(out, match)
				return nil
			}

			checkin, err := a.checkInService(ctx)
			if err != nil {
				return err
			}
			outcome, err := checkin.Process(ctx, probe, g)
			if err != nil {
				return err
			}

			printMatch(out, outcome.Match)
			switch {
			case outcome.OfferEnrollment():
				fmt.Fprintln(out, "NO RECONOCIDO")
			case outcome.Recorded:
				fmt.Fprintf(out, "Asistencia registrada para %s (%s %s)\n",
					outcome.Record.Label, outcome.Record.Date, outcome.Record.Time)
			default:
				fmt.Fprintf(out, "%s ya registró su asistencia hoy\n", outcome.Match.Label)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Identify only, do not record attendance")

	return cmd
}

// readImage loads path and normalises it to JPEG.
func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frame.NormalizeJPEG(data)
}

func printMatch(w io.Writer, m *domain.MatchResult) {
	distance := "-"
	if !math.IsInf(m.Distance, 1) {
		distance = fmt.Sprintf("%.4f", m.Distance)
	}
	label := m.Label
	if label == "" {
		label = "-"
	}
	fmt.Fprintf(w, "matched=%t label=%s distance=%s compared=%d skipped=%d region=%d,%d,%dx%d\n",
		m.Matched, label, distance, m.Compared, m.Skipped,
		m.Region.X, m.Region.Y, m.Region.Width, m.Region.Height)
}
