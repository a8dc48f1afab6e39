package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

type env struct {
	galleryDir string
	ledgerFile string
	imageDir   string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	e := env{
		galleryDir: filepath.Join(root, "Miembros"),
		ledgerFile: filepath.Join(root, "asistencia.csv"),
		imageDir:   filepath.Join(root, "capturas"),
	}
	require.NoError(t, os.MkdirAll(e.imageDir, 0o755))

	t.Setenv("ENV", "test")
	t.Setenv("GALLERY_DIR", e.galleryDir)
	t.Setenv("LEDGER_BACKEND", "csv")
	t.Setenv("LEDGER_FILE", e.ledgerFile)
	t.Setenv("LEDGER_TIMEZONE", "UTC")
	t.Setenv("FACE_PROVIDER", "mock")
	t.Setenv("MATCH_THRESHOLD", "0.4")
	t.Setenv("DATABASE_URL", "")
	return e
}

func writeNoiseJPEG(t *testing.T, path string, seed int64) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 96, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnrollIdentifyAttendance(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "ana.jpg")
	writeNoiseJPEG(t, photo, 11)

	out, err := execute(t, "enroll", "Ana Lopez", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "¡Registro exitoso!")
	assert.Contains(t, out, "Bienvenido al gimnasio, Ana Lopez!")
	assert.FileExists(t, filepath.Join(e.galleryDir, "ana_lopez.jpg"))

	out, err = execute(t, "identify", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "matched=true label=ana_lopez")
	assert.Contains(t, out, "Asistencia registrada para ana_lopez")

	out, err = execute(t, "identify", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "ana_lopez ya registró su asistencia hoy")

	out, err = execute(t, "attendance")
	require.NoError(t, err)
	assert.Contains(t, out, "Asistencias de hoy: 1")
	assert.Contains(t, out, "ana_lopez")

	out, err = execute(t, "members")
	require.NoError(t, err)
	assert.Contains(t, out, "Miembros registrados: 1")

	out, err = execute(t, "members", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Lopez")
}

func TestSQLiteLedgerBackend(t *testing.T) {
	e := setupEnv(t)
	t.Setenv("LEDGER_BACKEND", "sqlite")
	t.Setenv("LEDGER_SQLITE_PATH", filepath.Join(e.imageDir, "asistencia.db"))
	photo := filepath.Join(e.imageDir, "luis.jpg")
	writeNoiseJPEG(t, photo, 21)

	_, err := execute(t, "enroll", "Luis Diaz", photo)
	require.NoError(t, err)

	out, err := execute(t, "identify", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "Asistencia registrada para luis_diaz")

	out, err = execute(t, "identify", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "luis_diaz ya registró su asistencia hoy")

	out, err = execute(t, "attendance")
	require.NoError(t, err)
	assert.Contains(t, out, "Asistencias de hoy: 1")
	assert.NoFileExists(t, e.ledgerFile)
}

func TestEnroll_Duplicate(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "ana.jpg")
	writeNoiseJPEG(t, photo, 12)

	_, err := execute(t, "enroll", "ana_lopez", photo)
	require.NoError(t, err)

	_, err = execute(t, "enroll", "Ana Lopez", photo)
	require.ErrorIs(t, err, domain.ErrDuplicateLabel)
}

func TestEnroll_MissingImage(t *testing.T) {
	e := setupEnv(t)

	_, err := execute(t, "enroll", "ana", filepath.Join(e.imageDir, "missing.jpg"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(e.galleryDir, "ana.jpg"))
}

func TestIdentify_DryRunWritesNothing(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "desconocido.jpg")
	writeNoiseJPEG(t, photo, 13)

	out, err := execute(t, "identify", "--dry-run", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "matched=false label=- distance=- compared=0")

	out, err = execute(t, "attendance")
	require.NoError(t, err)
	assert.Contains(t, out, "Asistencias de hoy: 0")
}

func TestIdentify_Unmatched(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "desconocido.jpg")
	writeNoiseJPEG(t, photo, 14)

	out, err := execute(t, "identify", photo)
	require.NoError(t, err)
	assert.Contains(t, out, "NO RECONOCIDO")
}

func TestMembers_Check(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "ana.jpg")
	writeNoiseJPEG(t, photo, 16)

	_, err := execute(t, "enroll", "Ana Lopez", photo)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(e.galleryDir, "broken.png"), []byte("x"), 0o644))

	out, err := execute(t, "members", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "Miembros registrados: 2")
	assert.Contains(t, out, "Fotos con problemas: 1")
	assert.Contains(t, out, "broken")
	assert.NotContains(t, out, "   ana_lopez (")
}

func TestThresholdFlagIsValidated(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "members", "--threshold=-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCH_THRESHOLD")
}

func TestGalleryFlagOverridesEnv(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "luis_diaz.png"), []byte("x"), 0o644))

	out, err := execute(t, "members", "--gallery", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "luis_diaz")
}

func TestRun_RequiresCamera(t *testing.T) {
	setupEnv(t)
	t.Setenv("CAMERA_SOURCE", "")

	_, err := execute(t, "run")
	require.ErrorIs(t, err, domain.ErrCameraUnavailable)
}

func TestRun_StillImageSession(t *testing.T) {
	e := setupEnv(t)
	photo := filepath.Join(e.imageDir, "frame.jpg")
	writeNoiseJPEG(t, photo, 15)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewBufferString("\nn\nq\n"))
	root.SetArgs([]string{"run", "--camera", photo})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "NO RECONOCIDO")
	assert.Contains(t, out.String(), "Visita recepción para registrarte")
	assert.Contains(t, out.String(), "Programa finalizado")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "migrate", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidateMigrateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"up", []string{"up"}, false},
		{"down", []string{"down"}, false},
		{"version", []string{"version"}, false},
		{"force with version", []string{"force", "3"}, false},
		{"no action", nil, true},
		{"unknown action", []string{"sideways"}, true},
		{"up with extra arg", []string{"up", "2"}, true},
		{"force without version", []string{"force"}, true},
		{"force with bad version", []string{"force", "three"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMigrateArgs(nil, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
