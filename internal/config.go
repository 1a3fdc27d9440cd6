package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultfold/internal/folders"
	"github.com/starford/vaultfold/internal/vaultpath"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// hardMaxDepth is the traversal depth no configuration may exceed.
const hardMaxDepth = 10

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Limits LimitsConfig      `yaml:"limits"`
	Auth   AuthConfig        `yaml:"auth"`
	Events EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// OperationTimeout bounds each folder operation.
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.OperationTimeout, validation.Min(time.Duration(0))),
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

// VaultConfig holds the path to the Markdown vault directory and the
// folders no operation may touch.
type VaultConfig struct {
	Path      string   `yaml:"path"`
	Protected []string `yaml:"protected"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Protected, validation.Each(validation.Required)),
	)
}

// LimitsConfig holds the scan and paging limits.
type LimitsConfig struct {
	MaxDocumentsScanned int `yaml:"max_documents_scanned"`
	MaxTraversalDepth   int `yaml:"max_traversal_depth"`
	MaxPageSize         int `yaml:"max_page_size"`
	DefaultPageSize     int `yaml:"default_page_size"`
	MaxEntriesScanned   int `yaml:"max_entries_scanned"`
	RewriteWorkers      int `yaml:"rewrite_workers"`
}

// Validate validates the limits configuration.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxDocumentsScanned, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTraversalDepth, validation.Required, validation.Min(1), validation.Max(hardMaxDepth)),
		validation.Field(&c.MaxPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultPageSize, validation.Required, validation.Min(1), validation.Max(c.MaxPageSize)),
		validation.Field(&c.MaxEntriesScanned, validation.Required, validation.Min(1)),
		validation.Field(&c.RewriteWorkers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// Folders converts the limits into engine limits.
func (c *LimitsConfig) Folders() folders.Limits {
	return folders.Limits{
		MaxDocumentsScanned: c.MaxDocumentsScanned,
		MaxTraversalDepth:   c.MaxTraversalDepth,
		MaxPageSize:         c.MaxPageSize,
		DefaultPageSize:     c.DefaultPageSize,
		MaxEntriesScanned:   c.MaxEntriesScanned,
		RewriteWorkers:      c.RewriteWorkers,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig controls folder change notifications.
type EventsConfig struct {
	// TreeThrottle is the minimum interval between tree.updated events.
	TreeThrottle time.Duration `yaml:"tree_throttle"`
	// Watch enables reporting of folders changed outside the server.
	Watch bool `yaml:"watch"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TreeThrottle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	limits := folders.DefaultLimits()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			OperationTimeout: 30 * time.Second,
		},
		Vault: VaultConfig{
			Path:      "./vault",
			Protected: append([]string(nil), vaultpath.DefaultProtected...),
		},
		Limits: LimitsConfig{
			MaxDocumentsScanned: limits.MaxDocumentsScanned,
			MaxTraversalDepth:   limits.MaxTraversalDepth,
			MaxPageSize:         limits.MaxPageSize,
			DefaultPageSize:     limits.DefaultPageSize,
			MaxEntriesScanned:   limits.MaxEntriesScanned,
			RewriteWorkers:      limits.RewriteWorkers,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			TreeThrottle: 2 * time.Second,
			Watch:        true,
		},
	}
}
