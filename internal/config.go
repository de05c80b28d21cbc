package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/directive"
	"github.com/starford/refgraph/internal/resolve"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Corpus  CorpusConfig      `yaml:"corpus"`
	Policy  audit.Policy      `yaml:"policy"`
	History HistoryConfig     `yaml:"history"`
	Auth    AuthConfig        `yaml:"auth"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
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

// CorpusConfig describes the documentation tree and how it declares
// related articles.
type CorpusConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
	// Categories, when set, restricts the audit to these top-level directories.
	Categories       []string `yaml:"categories"`
	Component        string   `yaml:"component"`
	ImportPath       string   `yaml:"import_path"`
	RoutePrefix      string   `yaml:"route_prefix"`
	MinReferences    int      `yaml:"min_references"`
	MinCategoryLinks int      `yaml:"min_category_links"`
	SkipImportChecks bool     `yaml:"skip_import_checks"`
	Workers          int      `yaml:"workers"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Component, validation.Required),
		validation.Field(&c.MinReferences, validation.Min(0)),
		validation.Field(&c.MinCategoryLinks, validation.Min(0)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(64)),
	)
}

// AuditOptions converts the corpus settings into audit run options.
func (c *CorpusConfig) AuditOptions() audit.Options {
	return audit.Options{
		Component:        c.Component,
		ImportPath:       c.ImportPath,
		RoutePrefix:      c.RoutePrefix,
		MinReferences:    c.MinReferences,
		MinCategoryLinks: c.MinCategoryLinks,
		SkipImportChecks: c.SkipImportChecks,
	}
}

// HistoryConfig holds the SQLite run history configuration.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Keep is the number of runs retained; zero keeps all.
	Keep int `yaml:"keep"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Keep, validation.Min(0)),
	)
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

// WatchConfig controls re-auditing on corpus changes while serving.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Root:        "./docs",
			Extensions:  []string{".md", ".mdx"},
			Component:   directive.DefaultComponent,
			ImportPath:  directive.DefaultImportPath,
			RoutePrefix: resolve.DefaultPrefix,
		},
		Policy: audit.DefaultPolicy(),
		History: HistoryConfig{
			Enabled: true,
			Path:    "./refgraph.db",
			Keep:    100,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
	}
}
