package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds persistent defaults loaded from config files.
type Config struct {
	Serve    ServeConfig    `yaml:"serve"`
	Buffer   BufferConfig   `yaml:"buffer"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ServeConfig holds collector server defaults.
type ServeConfig struct {
	Addr     string `yaml:"addr"`
	AuditLog string `yaml:"audit_log"`
	Kafka    string `yaml:"kafka"`
	Topic    string `yaml:"topic"`
}

// BufferConfig holds ring buffer defaults.
type BufferConfig struct {
	Size     string `yaml:"size"`
	MinLevel string `yaml:"min_level"`
	Check    bool   `yaml:"check"`
}

// DeployConfig holds Kubernetes deploy defaults.
type DeployConfig struct {
	Namespace string `yaml:"namespace"`
	Image     string `yaml:"image"`
	CPU       string `yaml:"cpu"`
	Memory    string `yaml:"memory"`
}

// DefaultsConfig holds global defaults.
type DefaultsConfig struct {
	Server  string `yaml:"server"`
	Timeout string `yaml:"timeout"`
	Verbose bool   `yaml:"verbose"`
}

// Load reads config from ~/.ringlog/config.yaml then CWD .ringlog.yaml.
// CWD config values override home config. Missing files are not errors.
// Environment variables (RINGLOG_*) override config file values.
func Load() *Config {
	cfg := &Config{}

	// home config
	if home, err := os.UserHomeDir(); err == nil {
		_ = loadFile(filepath.Join(home, ".ringlog", "config.yaml"), cfg)
	}

	// CWD config overrides
	_ = loadFile(".ringlog.yaml", cfg)

	// env overrides
	applyEnv(cfg)

	return cfg
}

// LoadFrom reads config from a specific path. Used for testing.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RINGLOG_SERVE_ADDR"); v != "" {
		cfg.Serve.Addr = v
	}
	if v := os.Getenv("RINGLOG_SERVE_AUDIT_LOG"); v != "" {
		cfg.Serve.AuditLog = v
	}
	if v := os.Getenv("RINGLOG_SERVE_KAFKA"); v != "" {
		cfg.Serve.Kafka = v
	}
	if v := os.Getenv("RINGLOG_SERVE_TOPIC"); v != "" {
		cfg.Serve.Topic = v
	}
	if v := os.Getenv("RINGLOG_BUFFER_SIZE"); v != "" {
		cfg.Buffer.Size = v
	}
	if v := os.Getenv("RINGLOG_BUFFER_MIN_LEVEL"); v != "" {
		cfg.Buffer.MinLevel = v
	}
	if v := os.Getenv("RINGLOG_BUFFER_CHECK"); v != "" {
		cfg.Buffer.Check = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("RINGLOG_DEPLOY_NAMESPACE"); v != "" {
		cfg.Deploy.Namespace = v
	}
	if v := os.Getenv("RINGLOG_DEPLOY_IMAGE"); v != "" {
		cfg.Deploy.Image = v
	}
	if v := os.Getenv("RINGLOG_DEPLOY_CPU"); v != "" {
		cfg.Deploy.CPU = v
	}
	if v := os.Getenv("RINGLOG_DEPLOY_MEMORY"); v != "" {
		cfg.Deploy.Memory = v
	}
	if v := os.Getenv("RINGLOG_SERVER"); v != "" {
		cfg.Defaults.Server = v
	}
	if v := os.Getenv("RINGLOG_TIMEOUT"); v != "" {
		cfg.Defaults.Timeout = v
	}
	if v := os.Getenv("RINGLOG_VERBOSE"); v != "" {
		cfg.Defaults.Verbose = strings.EqualFold(v, "true") || v == "1"
	}
}
