// Package config reads the optional sparketl.yaml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vvka-141/sparketl/pkg/sparketl"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

type PathsConfig struct {
	SongData string `yaml:"song_data"`
	LogData  string `yaml:"log_data"`
}

type LookupConfig struct {
	CacheTTL  string `yaml:"cache_ttl"`
	CacheSize int    `yaml:"cache_size"`
	Strict    bool   `yaml:"strict"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Paths      PathsConfig      `yaml:"paths"`
	Lookup     LookupConfig     `yaml:"lookup"`
	Timeout    string           `yaml:"timeout"`
}

const ConfigFileName = "sparketl.yaml"

// Load reads sparketl.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a project config from an explicit path.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sparketl.ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout)
}

// CacheTTLDuration parses Lookup.CacheTTL. An empty value yields zero.
func (c *ProjectConfig) CacheTTLDuration() (time.Duration, error) {
	return parseDuration("lookup.cache_ttl", c.Lookup.CacheTTL)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", sparketl.ErrInvalidConfig, field, err)
	}
	return d, nil
}
