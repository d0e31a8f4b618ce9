package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/viewcapture/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "viewcapture", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile means
// the default path. A missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Int("targets", len(m.config.Targets)).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk and fills missing values with defaults
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Reload re-reads the configuration file
func (m *Manager) Reload() error {
	return m.load()
}

// Validate checks the values the capture pipeline relies on
func (c *Config) Validate() error {
	switch c.Capture.DefaultTarget {
	case TargetScene, TargetGame, TargetEditor:
	default:
		return fmt.Errorf("capture.default_target %q is not one of scene, game, editor", c.Capture.DefaultTarget)
	}

	switch c.Capture.PNGCompression {
	case CompressionDefault, CompressionSpeed, CompressionBest, CompressionNone:
	default:
		return fmt.Errorf("capture.png_compression %q is not one of default, speed, best, none", c.Capture.PNGCompression)
	}

	if c.Capture.MaxWidth <= 0 || c.Capture.MaxHeight <= 0 {
		return fmt.Errorf("capture max size must be positive, got %dx%d", c.Capture.MaxWidth, c.Capture.MaxHeight)
	}

	for name, rule := range c.Targets {
		for _, p := range append(append([]string{}, rule.TitlePatterns...), rule.ClassPatterns...) {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("target %s: invalid pattern %q: %w", name, p, err)
			}
		}
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return m.config.clone()
}

// Target returns the rule for a target name
func (m *Manager) Target(name string) (TargetRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return TargetRule{}, false
	}
	rule, ok := m.config.Targets[name]
	return rule, ok
}

// Override applies an in-memory change that is not written to disk, used
// for command line flags.
func (m *Manager) Override(fn func(cfg *Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		m.config = Defaults()
	}
	fn(m.config)
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg.clone()
	m.mu.Unlock()
	return m.Save()
}

// GetViper returns a viper instance reading the same file, for dotted key
// access from the config command.
func (m *Manager) GetViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.configPath, err)
	}
	return v, nil
}

// SetValue writes a dotted key through viper and reloads the result
func (m *Manager) SetValue(key string, value interface{}) error {
	v, err := m.GetViper()
	if err != nil {
		return err
	}
	v.Set(key, value)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return m.Update(&cfg)
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
