package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SMTPConfig holds outbound mail settings. Host left empty disables real
// delivery; callers wire a no-op sender instead.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	ListenAddr         string     `yaml:"listen_addr"`
	DBPath             string     `yaml:"db_path"`
	GenerativeTimeoutS int        `yaml:"generative_timeout_secs"`
	InboxPollS         int        `yaml:"inbox_poll_secs"`
	SMTP               SMTPConfig `yaml:"smtp"`
}

// Load reads a config from path. A missing file returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func (c *AppConfig) GenerativeTimeout() time.Duration {
	return time.Duration(c.GenerativeTimeoutS) * time.Second
}

// InboxPollInterval is how often the inbound mailbox is drained.
func (c *AppConfig) InboxPollInterval() time.Duration {
	return time.Duration(c.InboxPollS) * time.Second
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "procureflow.db"
	}
	if cfg.GenerativeTimeoutS <= 0 {
		cfg.GenerativeTimeoutS = 10
	}
	if cfg.InboxPollS <= 0 {
		cfg.InboxPollS = 30
	}
	if cfg.SMTP.Port <= 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "procurement@localhost"
	}
}
