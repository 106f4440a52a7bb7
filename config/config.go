package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Gemeinsames API-Token für Bearer-Anfragen. Leer = alle API-Anfragen werden abgelehnt.
	APIAuthToken string `envconfig:"API_AUTH_TOKEN"`
	// Secret zum Signieren der Session-Tokens (HS256).
	JWTSecret  string        `envconfig:"JWT_SECRET"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DBMaxOpenConns  int    `envconfig:"DB_MAX_OPEN_CONNS" default:"6"`
	DBMaxIdleConns  int    `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	AutoMigrate     bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	DefaultActorID  int64  `envconfig:"DEFAULT_ACTOR_ID" default:"1"`
	Environment     string `envconfig:"APP_ENV" default:"development"`
	HTTPPort        string `envconfig:"HTTP_PORT" default:"8080"`
	ListLimit       int    `envconfig:"LIST_LIMIT" default:"20"`
	AbstractMaxLen  int    `envconfig:"ABSTRACT_MAX_LENGTH" default:"5000"`

	// Papierkorb: Cron-Ausdruck für das endgültige Löschen, leer = deaktiviert
	PurgeSchedule      string `envconfig:"PURGE_SCHEDULE"`
	TrashRetentionDays int    `envconfig:"TRASH_RETENTION_DAYS" default:"30"`

	// S3-kompatibler Speicher für PDF-Anhänge (optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	PDFMaxBytes int64  `envconfig:"PDF_MAX_BYTES" default:"20971520"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return strings.TrimSpace(c.DatabaseURL)
}

// DatabaseConfigured meldet, ob eine Datenbank-URL gesetzt ist.
func (c *Config) DatabaseConfigured() bool {
	return c.DSN() != ""
}

// IsProduction steuert u.a. das Secure-Flag der Session-Cookies.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// S3Configured meldet, ob alle Angaben für den PDF-Speicher vorhanden sind.
func (c *Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// TrashRetention ist die Aufbewahrungsdauer soft-gelöschter Paper.
func (c *Config) TrashRetention() time.Duration {
	return time.Duration(c.TrashRetentionDays) * 24 * time.Hour
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
