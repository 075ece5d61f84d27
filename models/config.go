// Package models defines data structures for configuration, run options and
// the vectors exchanged with the trainee service.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when --config is not given. A missing file is not an error.
const DefaultConfigPath = "collector.yaml"

// Config holds the collect command's settings. CLI flags override every field.
type Config struct {
	BaseURL      string `yaml:"base_url"`
	Pages        string `yaml:"pages"`
	PagesFile    string `yaml:"pages_file"`
	Ruleset      string `yaml:"ruleset"`
	Wait         string `yaml:"wait"`
	RetryOnError bool   `yaml:"retry_on_error"`

	BridgeURL   string        `yaml:"bridge_url"`
	OutputDir   string        `yaml:"output_dir"`
	Database    string        `yaml:"database"`
	MetricsAddr string        `yaml:"metrics_addr"`
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Wait:        "0",
		BridgeURL:   "ws://127.0.0.1:8765/bridge",
		OutputDir:   ".",
		PageTimeout: 9999 * time.Second, // effectively none
	}
}

// LoadConfig reads a YAML config file over DefaultConfig. When the file does not
// exist and allowMissing is set, the defaults are returned unchanged.
func LoadConfig(path string, allowMissing bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FormState converts the page-list related settings to the resolver's input.
// When PagesFile is set its content is appended to Pages.
func (c Config) FormState() (FormState, error) {
	pages := c.Pages
	if c.PagesFile != "" {
		data, err := os.ReadFile(c.PagesFile)
		if err != nil {
			return FormState{}, fmt.Errorf("failed to read pages file %s: %w", c.PagesFile, err)
		}
		if pages != "" {
			pages += "\n"
		}
		pages += string(data)
	}

	return FormState{
		BaseURL:      c.BaseURL,
		Pages:        pages,
		Ruleset:      c.Ruleset,
		Wait:         c.Wait,
		RetryOnError: c.RetryOnError,
	}, nil
}
