package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults point at the local development ports of the three agent
// services.
const (
	defaultRAGURL         = "http://localhost:8001/ask"
	defaultDataSourcesURL = "http://localhost:8005/chat"
	defaultQuantURL       = "http://localhost:8009/analyze"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	RAGURL         string `json:"rag_url,omitempty"`          // Secondary Research agent /ask endpoint
	DataSourcesURL string `json:"data_sources_url,omitempty"` // data-source agent /chat endpoint
	QuantURL       string `json:"quant_url,omitempty"`        // quantitative agent /analyze endpoint
	DataDir        string `json:"data_dir,omitempty"`         // session database and export location
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return &Manager{
		configDir: filepath.Join(configDir, "marlin"),
	}, nil
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk, applies environment
// overrides, and fills defaults. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config json: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg, m.configDir)
	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARLIN_RAG_URL"); v != "" {
		cfg.RAGURL = v
	}
	if v := os.Getenv("MARLIN_DATA_SOURCES_URL"); v != "" {
		cfg.DataSourcesURL = v
	}
	if v := os.Getenv("MARLIN_QUANT_URL"); v != "" {
		cfg.QuantURL = v
	}
	if v := os.Getenv("MARLIN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.RAGURL == "" {
		cfg.RAGURL = defaultRAGURL
	}
	if cfg.DataSourcesURL == "" {
		cfg.DataSourcesURL = defaultDataSourcesURL
	}
	if cfg.QuantURL == "" {
		cfg.QuantURL = defaultQuantURL
	}
	if cfg.DataDir == "" {
		cfg.DataDir = configDir
	}
}
