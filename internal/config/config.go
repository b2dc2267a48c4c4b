package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath         = "/etc/emodul/config.yaml"
	DefaultHTTPAddr     = "0.0.0.0:8080"
	DefaultPollInterval = 60 * time.Second
	DefaultLanguage     = "en"
	DefaultTopicPrefix  = "emodul"
	DefaultHassPrefix   = "homeassistant"
)

// EmodulConfig holds the cloud account settings. Credentials usually come
// from the environment rather than the file.
type EmodulConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base_url"`
	Language string `yaml:"language"`

	// TokenTTLSeconds forces a periodic re-login; zero trusts the token
	// until the server rejects it.
	TokenTTLSeconds int `yaml:"token_ttl_seconds"`
}

// PollConfig controls the module polling loop.
type PollConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`

	// Modules restricts polling to the listed udids. Empty polls every
	// active controller on the account.
	Modules []string `yaml:"modules"`
}

// MQTTConfig enables the Home Assistant bridge when a broker is set.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

type Config struct {
	Emodul   EmodulConfig `yaml:"emodul"`
	Poll     PollConfig   `yaml:"poll"`
	MQTT     MQTTConfig   `yaml:"mqtt"`
	HTTPAddr string       `yaml:"http_addr"`
	LogLevel string       `yaml:"log_level"`
}

// Load parses the yaml config file, layers environment overrides on top,
// applies defaults, and validates. A missing file is fine as long as the
// environment supplies the credentials.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// env-only setup
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Emodul.Username, "EMODUL_USERNAME")
	setString(&cfg.Emodul.Password, "EMODUL_PASSWORD")
	setString(&cfg.Emodul.BaseURL, "EMODUL_BASE_URL")
	setString(&cfg.Emodul.Language, "EMODUL_LANGUAGE")
	setString(&cfg.HTTPAddr, "EMODUL_HTTP_ADDR")
	setString(&cfg.LogLevel, "EMODUL_LOG_LEVEL")
	setString(&cfg.MQTT.Broker, "EMODUL_MQTT_BROKER")
	setString(&cfg.MQTT.Username, "EMODUL_MQTT_USERNAME")
	setString(&cfg.MQTT.Password, "EMODUL_MQTT_PASSWORD")
	setInt(&cfg.Poll.IntervalSeconds, "EMODUL_POLL_INTERVAL_SECONDS")
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Emodul.Language == "" {
		cfg.Emodul.Language = DefaultLanguage
	}
	if cfg.Poll.IntervalSeconds == 0 {
		cfg.Poll.IntervalSeconds = int(DefaultPollInterval / time.Second)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = DefaultHassPrefix
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "emodul-bridge"
	}
}

// Validate enforces required invariants beyond yaml typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.Emodul.Username == "" {
		return fmt.Errorf("emodul.username is required (or EMODUL_USERNAME)")
	}
	if cfg.Emodul.Password == "" {
		return fmt.Errorf("emodul.password is required (or EMODUL_PASSWORD)")
	}
	if cfg.Poll.IntervalSeconds < 10 {
		return fmt.Errorf("poll.interval_seconds must be at least 10, got %d", cfg.Poll.IntervalSeconds)
	}
	return nil
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// TokenTTL returns the configured token lifetime, zero when unset.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Emodul.TokenTTLSeconds) * time.Second
}
