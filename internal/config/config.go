package config

import (
	"fmt"
	"math"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	LedgerBackendCSV      = "csv"
	LedgerBackendPostgres = "postgres"
	LedgerBackendSQLite   = "sqlite"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	// Gallery
	GalleryDir string `envconfig:"GALLERY_DIR" default:"Miembros"`

	// Attendance ledger
	LedgerBackend  string `envconfig:"LEDGER_BACKEND" default:"csv"`
	LedgerFile     string `envconfig:"LEDGER_FILE" default:"asistencia_gimnasio.csv"`
	LedgerSQLite   string `envconfig:"LEDGER_SQLITE_PATH" default:"asistencia_gimnasio.db"`
	LedgerTimezone string `envconfig:"LEDGER_TIMEZONE" default:"Local"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`

	// Matching
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.4"`

	// Provider
	FaceProvider           string        `envconfig:"FACE_PROVIDER" default:"deepface"`
	DeepFaceURL            string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel          string        `envconfig:"DEEPFACE_MODEL" default:"VGG-Face"`
	DeepFaceDetector       string        `envconfig:"DEEPFACE_DETECTOR" default:"opencv"`
	DeepFaceDistanceMetric string        `envconfig:"DEEPFACE_DISTANCE_METRIC" default:"cosine"`
	DeepFaceTimeout        time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"60s"`
	DeepFaceRetryCount     int           `envconfig:"DEEPFACE_RETRY_COUNT" default:"2"`
	DeepFaceEnforce        bool          `envconfig:"DEEPFACE_ENFORCE_DETECTION" default:"false"`
	AWSRegion              string        `envconfig:"AWS_REGION" default:"us-east-1"`
	RekognitionSimilarity  float64       `envconfig:"REKOGNITION_SIMILARITY" default:"0.8"`

	// Camera
	CameraSource string `envconfig:"CAMERA_SOURCE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !(c.MatchThreshold > 0) || math.IsInf(c.MatchThreshold, 0) {
		return fmt.Errorf("MATCH_THRESHOLD must be a positive finite number, got %v", c.MatchThreshold)
	}

	switch c.LedgerBackend {
	case LedgerBackendCSV:
		if c.LedgerFile == "" {
			return fmt.Errorf("LEDGER_FILE is required for the csv ledger")
		}
	case LedgerBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	case LedgerBackendSQLite:
		if c.LedgerSQLite == "" {
			return fmt.Errorf("LEDGER_SQLITE_PATH is required for the sqlite ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q (supported: %s, %s, %s)",
			c.LedgerBackend, LedgerBackendCSV, LedgerBackendPostgres, LedgerBackendSQLite)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves LEDGER_TIMEZONE, which decides what "today" is.
func (c *Config) Location() (*time.Location, error) {
	if c.LedgerTimezone == "" || c.LedgerTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", c.LedgerTimezone, err)
	}
	return loc, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
