package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/camera"
	"github.com/saturnino-fabrica-de-software/presenca/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		source  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive check-in kiosk",
		Long: `Opens the camera and waits for the operator. ENTER captures a frame and
runs one check-in; q quits. Unknown faces are offered enrollment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()

			if source == "" {
				source = a.cfg.CameraSource
			}
			cam, err := camera.New(source, timeout)
			if err != nil {
				return err
			}

			g, err := a.loadGallery()
			if err != nil {
				return err
			}
			checkin, err := a.checkInService(ctx)
			if err != nil {
				return err
			}

			controller := session.New(session.Options{
				Source:     cam,
				CheckIn:    checkin,
				Enrollment: a.enrollmentService(),
				Gallery:    g,
				In:         cmd.InOrStdin(),
				Out:        cmd.OutOrStdout(),
				Logger:     a.logger,
			})

			if err := controller.Run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ Programa finalizado")
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "camera", "", "Snapshot URL or image file path (CAMERA_SOURCE)")
	cmd.Flags().DurationVar(&timeout, "camera-timeout", 10*time.Second, "Timeout for one snapshot request")

	return cmd
}
