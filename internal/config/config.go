package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/vvka-141/vload/pkg/vload"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Dialect  string `yaml:"dialect,omitempty"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Database string `yaml:"database"`
	TLSMode  string `yaml:"tls_mode,omitempty"`
}

type MarkerConfig struct {
	Table           string `yaml:"table,omitempty"`
	UseDBTimestamps *bool  `yaml:"use_db_timestamps,omitempty"`
	LocalTmpDir     string `yaml:"local_tmp_dir,omitempty"`
}

type CopyConfig struct {
	ColumnSeparator string   `yaml:"column_separator,omitempty"`
	NullValues      []string `yaml:"null_values,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Marker     MarkerConfig     `yaml:"marker"`
	Copy       CopyConfig       `yaml:"copy"`
	Timeout    string           `yaml:"timeout"`
}

const ConfigFileName = "vload.yaml"

func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MarkerSettings merges the marker section over vload.DefaultMarkerConfig.
// A nil receiver yields the defaults.
func (c *ProjectConfig) MarkerSettings() vload.MarkerConfig {
	settings := vload.DefaultMarkerConfig()
	if c == nil {
		return settings
	}
	if c.Marker.Table != "" {
		settings.Table = c.Marker.Table
	}
	if c.Marker.UseDBTimestamps != nil {
		settings.UseDBTimestamps = *c.Marker.UseDBTimestamps
	}
	settings.StagingDir = c.Marker.LocalTmpDir
	return settings
}
