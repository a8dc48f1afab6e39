package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

func newEnrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <name> <image>",
		Short: "Register a new member from a photo",
		Long: `Stores image as the reference photo of name. The name is normalised
("Juan Perez" becomes juan_perez) and must not be taken. The image must
contain a detectable face.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()

			probe, err := readImage(args[1])
			if err != nil {
				return err
			}
			g, err := a.loadGallery()
			if err != nil {
				return err
			}

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

			member, err := a.enrollmentService().Enroll(ctx, g, probe, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "¡Registro exitoso!")
			fmt.Fprintf(out, "   Bienvenido al gimnasio, %s!\n", member.DisplayName)
			fmt.Fprintf(out, "   Tu foto se guardó como: %s\n", member.PhotoPath)
			return nil
		},
	}
}
