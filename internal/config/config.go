package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/postconfctl/internal/postconf"
)

const (
	DefaultPath       = "/etc/postconfctl/config.toml"
	DefaultServerAddr = "127.0.0.1:9125"
	DefaultSSHTimeout = 10 * time.Second
)

type Config struct {
	Postconf PostconfConfig `toml:"postconf"`
	SSH      SSHConfig      `toml:"ssh"`
	Server   ServerConfig   `toml:"server"`
	Journal  JournalConfig  `toml:"journal"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type PostconfConfig struct {
	Binary string `toml:"binary"`
	Grep   string `toml:"grep"`
	Match  string `toml:"match"`
}

// SSHConfig targets a remote Postfix host. An empty Host means local.
type SSHConfig struct {
	Host                        string   `toml:"host"`
	Port                        string   `toml:"port"`
	User                        string   `toml:"user"`
	KeyPath                     string   `toml:"key_path"`
	KnownHosts                  string   `toml:"known_hosts"`
	InsecureSkipHostKeyChecking bool     `toml:"insecure_skip_host_key_checking"`
	Timeout                     Duration `toml:"timeout"`
}

// ServerConfig configures the HTTP agent. An empty Token leaves the action
// route unauthenticated.
type ServerConfig struct {
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
}

type JournalConfig struct {
	Path string `toml:"path"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a config for a local postconf with every optional feature off.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// LoadConfig reads path, applies defaults and validates. When allowMissing
// is set a missing file yields Default().
func LoadConfig(path string, allowMissing bool) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Postconf.Binary) == "" {
		cfg.Postconf.Binary = postconf.DefaultBinary
	}
	if strings.TrimSpace(cfg.Postconf.Grep) == "" {
		cfg.Postconf.Grep = postconf.DefaultGrep
	}
	if strings.TrimSpace(cfg.Postconf.Match) == "" {
		cfg.Postconf.Match = postconf.MatchSubstring
	}
	if cfg.SSH.Timeout.Duration <= 0 {
		cfg.SSH.Timeout.Duration = DefaultSSHTimeout
	}
	if strings.TrimSpace(cfg.Server.ID) == "" {
		cfg.Server.ID = "postconfctl"
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
}

func Validate(cfg Config) error {
	if _, err := postconf.ParseMatcher(cfg.Postconf.Match); err != nil {
		return fmt.Errorf("postconf config invalid: %w", err)
	}
	if err := ValidateSSH(cfg.SSH); err != nil {
		return fmt.Errorf("ssh config invalid: %w", err)
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	return nil
}

func ValidateSSH(cfg SSHConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil
	}
	if strings.TrimSpace(cfg.User) == "" {
		return fmt.Errorf("user is required when host is set")
	}
	if strings.TrimSpace(cfg.KeyPath) == "" {
		return fmt.Errorf("key_path is required when host is set")
	}
	return nil
}
