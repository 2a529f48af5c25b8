// Package config loads the application configuration file: connected
// provider accounts and trigger source settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/helixcrm/helix/pkg/models"
)

// QueueConfig configures the redis trigger queue consumer.
type QueueConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// AppConfig is the structure of the helix.yaml file.
type AppConfig struct {
	Providers []models.ProviderConfig `yaml:"providers"`
	Queue     *QueueConfig            `yaml:"queue,omitempty"`
}

// Load reads and parses the configuration file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].ID == "" {
			return nil, fmt.Errorf("provider at position %d has no id", i)
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads the file when it exists and falls back to an
// empty configuration otherwise.
func LoadOrDefault(path string) *AppConfig {
	cfg, err := Load(path)
	if err != nil {
		return &AppConfig{}
	}

	return cfg
}

// QueueSourceConfig converts the queue section into the map shape the
// queue source consumes.
func (c *AppConfig) QueueSourceConfig() map[string]any {
	if c.Queue == nil {
		return nil
	}

	return map[string]any{
		"addr":     c.Queue.Addr,
		"password": c.Queue.Password,
		"db":       c.Queue.DB,
		"queue":    c.Queue.Queue,
	}
}
