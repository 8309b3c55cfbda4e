// Package config loads mdrsync settings from defaults, an mdrsync.yaml file,
// MDRSYNC_ environment variables and command-line flags.
package config

import (
	"strings"
	"time"
)

// Default values.
const (
	DefaultTableFile      = "dehub_mdr_clean.csv"
	DefaultSeparator      = ","
	DefaultStateFile      = ".mdrsync/state.db"
	DefaultMainSystemName = "i2b2"
	DefaultMainSystemType = "postgres"
	DefaultTimeout        = 60 * time.Second
	DefaultClientID       = "dehub-dev"
	DefaultScope          = "openid"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultOutput         = "auto"
)

// configFileNames are searched in order.
var configFileNames = []string{"mdrsync.yaml", "mdrsync.yml"}

// MDRConfig locates the metadata repository and the namespace to sync.
type MDRConfig struct {
	BaseURL             string        `koanf:"base_url" validate:"omitempty,url"`
	Namespace           string        `koanf:"namespace"`
	NamespaceDefinition string        `koanf:"namespace_definition"`
	Timeout             time.Duration `koanf:"timeout" validate:"gte=0"`
	RequestsPerSecond   float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst               int           `koanf:"burst" validate:"gte=0"`
}

// AuthConfig holds the password grant settings.
type AuthConfig struct {
	Bypass   bool   `koanf:"bypass"`
	TokenURL string `koanf:"token_url" validate:"omitempty,url"`
	ClientID string `koanf:"client_id"`
	Scope    string `koanf:"scope"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// TableConfig locates the flat table.
type TableConfig struct {
	Path      string `koanf:"path" validate:"required"`
	Separator string `koanf:"separator" validate:"separator"`
}

// MainSystemConfig names the authoritative source system.
type MainSystemConfig struct {
	Name string `koanf:"name" validate:"required"`
	Type string `koanf:"type" validate:"required"`
}

// Config holds all CLI configuration options.
type Config struct {
	MDR          MDRConfig        `koanf:"mdr"`
	Auth         AuthConfig       `koanf:"auth"`
	Table        TableConfig      `koanf:"table"`
	SQLDir       string           `koanf:"sql_dir"`
	MainSystem   MainSystemConfig `koanf:"main_system"`
	FHIRPaths    []string         `koanf:"fhir_paths"`
	StatePath    string           `koanf:"state_path"`
	LogLevel     string           `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string           `koanf:"log_format" validate:"oneof=text json"`
	Verbose      bool             `koanf:"verbose"`
	OutputFormat string           `koanf:"output" validate:"omitempty,oneof=auto text markdown json"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Scopes splits the configured scope into OAuth2 scopes.
func (a AuthConfig) Scopes() []string {
	if a.Scope == "" {
		return nil
	}
	return strings.Fields(a.Scope)
}
