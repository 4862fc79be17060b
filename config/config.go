package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"eventmart/utils"
)

// Settings is the full on-disk configuration.
type Settings struct {
	Listen  string          `yaml:"listen"`
	DataDir string          `yaml:"dataDir"`
	Store   StoreSettings   `yaml:"store"`
	Session SessionSettings `yaml:"session"`
	Catalog CatalogSettings `yaml:"catalog"`
	Redis   RedisSettings   `yaml:"redis"`
	Log     LogSettings     `yaml:"log"`
}

// StoreSettings selects and configures the keyed store backend.
type StoreSettings struct {
	// Backend is "file" or "sqlite".
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlitePath"`
}

// SessionSettings configures session token issuing.
type SessionSettings struct {
	Secret          string `yaml:"secret"`
	TokenTTLMinutes int    `yaml:"tokenTtlMinutes"`
}

// CatalogSettings points at the remote worker-catalog backend.
type CatalogSettings struct {
	BaseURL        string   `yaml:"baseUrl"`
	APIKey         string   `yaml:"apiKey"`
	TimeoutSeconds int      `yaml:"timeoutSeconds"`
	Languages      []string `yaml:"languages"`
}

// RedisSettings configures the optional cross-process change relay.
type RedisSettings struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Channel string `yaml:"channel"`
}

// LogSettings configures the rotating process log. An empty File logs to
// stdout only.
type LogSettings struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Manager loads and saves Settings on an afero filesystem. A missing
// settings file yields defaults (with a freshly generated session
// secret), which are persisted so restarts keep the same secret.
type Manager struct {
	fs   afero.Fs
	path string

	mu     sync.RWMutex
	cached *Settings
}

// NewManager returns a manager for the settings file at path.
func NewManager(fs afero.Fs, path string) *Manager {
	return &Manager{fs: fs, path: path}
}

// Load returns the current settings, reading the file on first use.
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	if m.cached != nil {
		defer m.mu.RUnlock()
		return m.cached, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return m.cached, nil
	}

	settings := defaults()
	raw, err := afero.ReadFile(m.fs, m.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, settings); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", m.path, err)
		}
		applyDefaults(settings)
	case os.IsNotExist(err):
		// First run: persist the generated defaults.
		if err := m.write(settings); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read settings %s: %w", m.path, err)
	}

	if settings.Session.Secret == "" {
		secret, err := utils.GenerateAPIKey()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		settings.Session.Secret = secret
		if err := m.write(settings); err != nil {
			return nil, err
		}
	}

	m.cached = settings
	return settings, nil
}

// Save persists settings and replaces the cached copy.
func (m *Manager) Save(settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write(settings); err != nil {
		return err
	}
	m.cached = settings
	return nil
}

func (m *Manager) write(settings *Settings) error {
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	if err := afero.WriteFile(m.fs, m.path, raw, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", m.path, err)
	}
	return nil
}

func defaults() *Settings {
	s := &Settings{}
	applyDefaults(s)
	return s
}

func applyDefaults(s *Settings) {
	if s.Listen == "" {
		s.Listen = ":8485"
	}
	if s.DataDir == "" {
		s.DataDir = "./data"
	}
	if s.Store.Backend == "" {
		s.Store.Backend = "file"
	}
	if s.Store.SQLitePath == "" {
		s.Store.SQLitePath = filepath.Join(s.DataDir, "eventmart.db")
	}
	if s.Session.TokenTTLMinutes <= 0 {
		s.Session.TokenTTLMinutes = 12 * 60
	}
	if s.Catalog.TimeoutSeconds <= 0 {
		s.Catalog.TimeoutSeconds = 10
	}
	if len(s.Catalog.Languages) == 0 {
		s.Catalog.Languages = []string{"en", "hi", "es", "fr", "de"}
	}
	if s.Redis.Channel == "" {
		s.Redis.Channel = "eventmart:changes"
	}
	if s.Log.MaxSizeMB <= 0 {
		s.Log.MaxSizeMB = 20
	}
	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAgeDays <= 0 {
		s.Log.MaxAgeDays = 28
	}
}
