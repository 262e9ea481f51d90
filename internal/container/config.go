// Package container provides dependency injection and lifecycle management
// for the claims workflow service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Lark API configuration
	Lark LarkConfig

	// OpenAI configuration
	OpenAI OpenAIConfig

	// Workflow configuration
	Workflow WorkflowConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or ":memory:"
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration

	// MigrationsDir replaces the embedded migrations when set
	MigrationsDir string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// AttachmentDir is the base directory for attachments
	AttachmentDir string

	// MaxUploadSize bounds one uploaded file in bytes
	MaxUploadSize int64

	// MaxPDFPages bounds the page count of uploaded PDFs, 0 for no limit
	MaxPDFPages int
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// LarkConfig holds Lark API settings. Without credentials notifications are
// only logged.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// OpenAIConfig holds OpenAI API settings. Without a key the advisor is off.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	PromptsPath string
	Timeout     time.Duration
}

// WorkflowConfig holds engine and dispatcher settings.
type WorkflowConfig struct {
	// OperationTimeout bounds every engine operation
	OperationTimeout time.Duration

	// HandlerTimeout bounds each asynchronous event handler
	HandlerTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/claims.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			AttachmentDir: "attachments",
			MaxUploadSize: 10 << 20,
			MaxPDFPages:   50,
		},
		Auth: AuthConfig{
			Issuer:   "claims-workflow",
			TokenTTL: 12 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Workflow: WorkflowConfig{
			OperationTimeout: 10 * time.Second,
			HandlerTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Storage.AttachmentDir == "" {
		return fmt.Errorf("storage.attachment_dir is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Workflow.OperationTimeout <= 0 {
		return fmt.Errorf("workflow.operation_timeout must be positive")
	}

	return nil
}
