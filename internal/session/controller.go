// Package session drives the kiosk: it reads operator keystrokes, captures
// frames and prints the outcome of every check-in cycle.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/saturnino-fabrica-de-software/presenca/internal/camera"
	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/gallery"
	"github.com/saturnino-fabrica-de-software/presenca/internal/service"
)

const rule = "=================================================="

// consentAnswers aceita respostas afirmativas em espanhol e inglês
var consentAnswers = map[string]bool{
	"s":   true,
	"si":  true,
	"sí":  true,
	"y":   true,
	"yes": true,
}

var quitCommands = map[string]bool{
	"q":     true,
	"quit":  true,
	"salir": true,
}

type Options struct {
	Source     camera.Source
	CheckIn    *service.CheckInService
	Enrollment *service.EnrollmentService
	Gallery    *gallery.Gallery
	In         io.Reader
	Out        io.Writer
	Logger     *slog.Logger
}

// Controller owns the gallery snapshot for the lifetime of a session and
// swaps it after every successful enrollment.
type Controller struct {
	source     camera.Source
	checkin    *service.CheckInService
	enrollment *service.EnrollmentService
	gallery    *gallery.Gallery
	in         io.Reader
	out        io.Writer
	logger     *slog.Logger

	lines <-chan string
}

func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:     opts.Source,
		checkin:    opts.CheckIn,
		enrollment: opts.Enrollment,
		gallery:    opts.Gallery,
		in:         opts.In,
		out:        opts.Out,
		logger:     logger.With("component", "session"),
	}
}

// Gallery returns the current snapshot.
func (c *Controller) Gallery() *gallery.Gallery {
	return c.gallery
}

// Run blocks until the operator quits, input ends or ctx is cancelled.
// Only a camera that cannot be opened is fatal.
func (c *Controller) Run(ctx context.Context) error {
	c.printf("%s\n   SISTEMA DE ASISTENCIA - GIMNASIO\n%s\n", rule, rule)
	ReportMembers(c.out, c.gallery)

	c.printf("Iniciando cámara...\n")
	if err := c.source.Open(ctx); err != nil {
		c.printf("ERROR: No se pudo acceder a la cámara\n")
		return err
	}
	defer func() {
		if err := c.source.Close(); err != nil {
			c.logger.Warn("camera close failed", "source", c.source.String(), "error", err)
		}
	}()
	c.logger.Info("camera ready", "source", c.source.String(), "threshold", c.checkin.Threshold())

	done := make(chan struct{})
	defer close(done)
	c.lines = readLines(ctx, done, c.in)

	c.printf("Cámara lista. Presiona ENTER para capturar o q para salir\n")
	for {
		line, ok := c.readLine(ctx)
		if !ok {
			return c.finish(ctx)
		}
		if quitCommands[strings.ToLower(line)] {
			c.printf("Saliendo...\n")
			return nil
		}

		if err := c.cycle(ctx); err != nil {
			return err
		}
	}
}

func (c *Controller) finish(ctx context.Context) error {
	if ctx.Err() != nil {
		c.printf("\nSaliendo...\n")
	}
	return nil
}

// cycle only returns an error when the session must stop.
func (c *Controller) cycle(ctx context.Context) error {
	c.printf("\nCapturando imagen...\n")
	probe, err := c.source.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("capture failed", "error", err)
		c.printf("ERROR al capturar imagen\n")
		return nil
	}

	c.printf("Buscando coincidencia...\n")
	outcome, err := c.checkin.Process(ctx, probe, c.gallery)
	switch {
	case errors.Is(err, domain.ErrNoFaceDetected):
		c.printf("No se detectó ninguna cara. Intenta de nuevo.\n")
		return nil
	case err != nil && ctx.Err() != nil:
		return nil
	case err != nil:
		level := slog.LevelError
		if domain.IsRetryable(err) {
			level = slog.LevelWarn
		}
		c.logger.Log(ctx, level, "check-in failed", "error", err)
		c.printf("ERROR en el procesamiento: %v\n", err)
		return nil
	}

	if !outcome.OfferEnrollment() {
		c.greet(outcome)
		return nil
	}

	c.printf("\nNO RECONOCIDO\n")
	answer, ok := c.prompt(ctx, "\n¿Deseas registrarte en el gimnasio? (s/n): ")
	if !ok {
		return nil
	}
	if !consentAnswers[strings.ToLower(answer)] {
		c.printf("   Visita recepción para registrarte\n")
		return nil
	}

	c.enroll(ctx, probe)
	return nil
}

func (c *Controller) greet(outcome *domain.CheckInOutcome) {
	label := outcome.Match.Label
	c.printf("\n✓ ¡BIENVENIDO %s!\n", strings.ToUpper(domain.DisplayName(label)))
	if outcome.Recorded {
		c.printf("Asistencia registrada para %s\n", label)
		return
	}
	c.printf("• %s ya registró su asistencia hoy\n", label)
}

// enroll keeps asking for a name until one is accepted or the operator
// leaves it blank.
func (c *Controller) enroll(ctx context.Context, probe []byte) {
	c.printf("\n%s\n   REGISTRO DE NUEVO MIEMBRO\n%s\n", rule, rule)

	for {
		name, ok := c.prompt(ctx, "\nIngresa tu nombre y apellido (ej: juan_perez): ")
		if !ok || name == "" {
			c.printf("Registro cancelado\n")
			return
		}

		member, err := c.enrollment.Enroll(ctx, c.gallery, probe, name)
		switch {
		case errors.Is(err, domain.ErrDuplicateLabel):
			c.printf("Ya existe un miembro con el nombre '%s'\n", domain.NormalizeLabel(name))
			continue
		case errors.Is(err, domain.ErrInvalidLabel):
			c.printf("Nombre no válido\n")
			continue
		case err != nil:
			c.logger.Error("enrollment failed", "error", err)
			c.printf("ERROR en el registro: %v\n", err)
			return
		}

		c.printf("\n¡Registro exitoso!\n")
		c.printf("   Bienvenido al gimnasio, %s!\n", member.DisplayName)
		c.printf("   Tu foto se guardó como: %s.jpg\n", member.Label)

		reloaded, err := c.gallery.Reload()
		if err != nil {
			c.logger.Error("gallery reload failed", "error", err)
			return
		}
		c.gallery = reloaded
		return
	}
}

func (c *Controller) prompt(ctx context.Context, question string) (string, bool) {
	c.printf("%s", question)
	return c.readLine(ctx)
}

func (c *Controller) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-c.lines:
		return line, ok
	}
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// readLines feeds trimmed input lines into a channel so a pending read never
// blocks shutdown. The channel closes at EOF or once done is closed.
func readLines(ctx context.Context, done <-chan struct{}, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return lines
}

// ReportMembers prints who is enrolled, as the kiosk does on startup.
func ReportMembers(w io.Writer, g *gallery.Gallery) {
	if g == nil || g.Len() == 0 {
		dir := ""
		if g != nil {
			dir = g.Dir()
		}
		fmt.Fprintf(w, "\nNo hay miembros registrados en la carpeta '%s'\n", dir)
		fmt.Fprintf(w, "Los usuarios primerizos deberán registrarse\n")
		return
	}
	fmt.Fprintf(w, "\nMiembros registrados: %d\n", g.Len())
	fmt.Fprintf(w, "   %s\n\n", strings.Join(g.Labels(), ", "))
}
