package internal

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage backends.
const (
	StorageBackendFS = "fs"
	StorageBackendS3 = "s3"
)

// Database types.
const (
	DatabaseTypeSQLite   = "sqlite"
	DatabaseTypePostgres = "postgresql"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Storage  StorageConfig     `yaml:"storage"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// ApplyEnv overlays the deployment environment variables onto c. Variables
// that are unset leave the file values alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		if err := c.App.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if err := integer("PORT", &c.App.HTTP.Port); err != nil {
		return err
	}
	if v, ok := lookup("MAX_CONTENT_LENGTH"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_CONTENT_LENGTH: %w", err)
		}
		c.App.MaxUploadBytes = n
	}

	str("DATABASE_TYPE", &c.Database.Type)
	str("DATABASE_URL", &c.Database.URL)
	str("SQLITE_PATH", &c.Database.SQLite.Path)
	str("POSTGRES_HOST", &c.Database.Postgres.Host)
	if err := integer("POSTGRES_PORT", &c.Database.Postgres.Port); err != nil {
		return err
	}
	str("POSTGRES_USER", &c.Database.Postgres.User)
	str("POSTGRES_PASSWORD", &c.Database.Postgres.Password)
	str("POSTGRES_DB", &c.Database.Postgres.Name)

	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("UPLOAD_FOLDER", &c.Storage.UploadDir)
	str("S3_BUCKET", &c.Storage.S3.Bucket)
	str("S3_REGION", &c.Storage.S3.Region)
	str("S3_ENDPOINT", &c.Storage.S3.Endpoint)
	str("S3_KEY_PREFIX", &c.Storage.S3.KeyPrefix)
	str("S3_ACCESS_KEY_ID", &c.Storage.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Storage.S3.SecretAccessKey)

	str("SECRET_KEY", &c.Auth.SecretKey)
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel       slog.Level `yaml:"log_level"`
	HTTP           HTTPConfig `yaml:"http"`
	MaxUploadBytes int64      `yaml:"max_upload_bytes"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatabaseConfig selects the SQL backend. URL wins over Type and the
// per-backend sections.
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	URL      string         `yaml:"url"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.In(DatabaseTypeSQLite, DatabaseTypePostgres)),
	); err != nil {
		return err
	}
	_, _, err := c.Resolve()
	return err
}

// Resolve returns the database/sql driver name and DSN.
func (c *DatabaseConfig) Resolve() (driver, dsn string, err error) {
	if c.URL != "" {
		return parseDatabaseURL(c.URL)
	}
	switch c.Type {
	case DatabaseTypePostgres:
		if err := c.Postgres.Validate(); err != nil {
			return "", "", fmt.Errorf("postgres: %w", err)
		}
		return "pgx", c.Postgres.URL(), nil
	case DatabaseTypeSQLite, "":
		if err := c.SQLite.Validate(); err != nil {
			return "", "", fmt.Errorf("sqlite: %w", err)
		}
		return "sqlite3", c.SQLite.Path, nil
	default:
		return "", "", fmt.Errorf("unsupported database type %q", c.Type)
	}
}

// parseDatabaseURL accepts postgres URLs and sqlite:///path URLs.
func parseDatabaseURL(raw string) (string, string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", fmt.Errorf("database url %q has no scheme", raw)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "pgx", raw, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return "", "", fmt.Errorf("database url %q has no path", raw)
		}
		return "sqlite3", path, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme %q", scheme)
	}
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Validate validates the PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.User, validation.Required),
		validation.Field(&c.Name, validation.Required),
	)
}

// URL builds a postgresql:// connection URL.
func (c *PostgresConfig) URL() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	return u.String()
}

// StorageConfig selects where uploaded bytes live.
type StorageConfig struct {
	Backend   string   `yaml:"backend"`
	UploadDir string   `yaml:"upload_dir"`
	S3        S3Config `yaml:"s3"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageBackendFS, StorageBackendS3)),
		validation.Field(&c.UploadDir, validation.When(c.Backend == StorageBackendFS, validation.Required)),
	); err != nil {
		return err
	}
	if c.Backend == StorageBackendS3 {
		return c.S3.Validate()
	}
	return nil
}

// S3Config holds S3-compatible object storage settings. Empty credentials
// fall back to the default AWS credential chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	KeyPrefix       string `yaml:"key_prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
	)
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SecretKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values. The
// secret key has no default and must be provided.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
			MaxUploadBytes: 16 << 20,
		},
		Database: DatabaseConfig{
			Type: DatabaseTypeSQLite,
			SQLite: SQLiteConfig{
				Path: "instance/notes_app.db",
			},
			Postgres: PostgresConfig{
				Host: "localhost",
				Port: 5432,
			},
		},
		Storage: StorageConfig{
			Backend:   StorageBackendFS,
			UploadDir: "./uploads",
		},
		Auth: AuthConfig{
			SessionTTL: 7 * 24 * time.Hour,
		},
	}
}
