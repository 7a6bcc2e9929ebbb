package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TOCBAR_"

var defaultOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// Store backends.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePathstore = "pathstore"
)

type Config struct {
	Port string `koanf:"port"`

	// Documents
	DocsDir          string `koanf:"docs_dir"`
	ContentRootClass string `koanf:"content_root_class"`
	StylesheetHref   string `koanf:"stylesheet_href"`
	MaxDocumentBytes int64  `koanf:"max_document_bytes"`

	// PDF
	PDFFallbackPdftotext bool `koanf:"pdf_fallback_pdftotext"`

	// Preference store
	StoreBackend    string `koanf:"store_backend"`
	SQLitePath      string `koanf:"sqlite_path"`
	PathstoreURL    string `koanf:"pathstore_url"`
	PathstoreAPIKey string `koanf:"pathstore_api_key"`

	DefaultLanguage string `koanf:"default_language"`

	// Sessions
	SessionTTL time.Duration `koanf:"session_ttl"`

	// Tracker tuning
	ZoneTop            float64       `koanf:"zone_top"`
	ZoneBottom         float64       `koanf:"zone_bottom"`
	FallbackTimeout    time.Duration `koanf:"fallback_timeout"`
	ScrollDebounce     time.Duration `koanf:"scroll_debounce"`
	RequireInteraction bool          `koanf:"require_interaction"`

	AllowedOrigins []string `koanf:"allowed_origins"`

	// Enables /api/sessions when set.
	AdminAPIKey string `koanf:"admin_api_key"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Port:                 "8090",
		DocsDir:              "./docs",
		ContentRootClass:     "markdown-body",
		StylesheetHref:       "tocbar.css",
		MaxDocumentBytes:     10 << 20,
		PDFFallbackPdftotext: true,
		StoreBackend:         StoreSQLite,
		SQLitePath:           "./data/tocbar.db",
		PathstoreURL:         "http://localhost:8080",
		DefaultLanguage:      "en",
		SessionTTL:           1 * time.Hour,
		ZoneTop:              0.2,
		ZoneBottom:           0.4,
		FallbackTimeout:      500 * time.Millisecond,
		ScrollDebounce:       150 * time.Millisecond,
		RequireInteraction:   true,
	}
}

// Load starts from Default, overlays the YAML file at path when it exists,
// then TOCBAR_* environment variables (TOCBAR_SESSION_TTL -> session_ttl).
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return cfg, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return cfg, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaultOrigins
	}
	return cfg, nil
}

var validBackends = map[string]bool{
	StoreMemory:    true,
	StoreSQLite:    true,
	StorePathstore: true,
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DocsDir == "" {
		return fmt.Errorf("docs_dir is required")
	}
	if c.ContentRootClass == "" {
		return fmt.Errorf("content_root_class is required")
	}
	if !validBackends[c.StoreBackend] {
		return fmt.Errorf("invalid store_backend %q: must be one of memory, sqlite, pathstore", c.StoreBackend)
	}
	if c.StoreBackend == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required for the sqlite backend")
	}
	if c.StoreBackend == StorePathstore && c.PathstoreURL == "" {
		return fmt.Errorf("pathstore_url is required for the pathstore backend")
	}
	if c.ZoneTop < 0 || c.ZoneBottom > 1 || c.ZoneTop >= c.ZoneBottom {
		return fmt.Errorf("reading zone must satisfy 0 <= zone_top < zone_bottom <= 1, got %v..%v", c.ZoneTop, c.ZoneBottom)
	}
	if c.FallbackTimeout <= 0 {
		return fmt.Errorf("fallback_timeout must be positive")
	}
	if c.ScrollDebounce < 0 {
		return fmt.Errorf("scroll_debounce must be non-negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.MaxDocumentBytes <= 0 {
		return fmt.Errorf("max_document_bytes must be positive")
	}
	return nil
}
