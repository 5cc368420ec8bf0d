package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override configuration keys
const EnvPrefix = "PHISHSENSE"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from config.yaml and the environment
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from path, or searches the default locations when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/phishsense/")
		v.AddConfigPath("$HOME/.phishsense")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.threshold", 0.5)

	// Model artifacts
	v.SetDefault("model.dir", "./models")
	v.SetDefault("model.url.classifier", "url_model.json")
	v.SetDefault("model.url.vectorizer", "url_vectorizer.json")
	v.SetDefault("model.email.classifier", "email_model.json")
	v.SetDefault("model.email.vectorizer", "email_vectorizer.json")
	v.SetDefault("model.fallback_score", 0.5)
	v.SetDefault("model.preload", true)

	// Datasets
	v.SetDefault("datasets.suspicious_words", "./data/suspicious_words.txt")
	v.SetDefault("datasets.shorteners", "./data/shorteners.txt")
	v.SetDefault("datasets.phishing_phrases", "./data/phishing_phrases.csv")

	// Scan history
	v.SetDefault("history.type", "jsonl")
	v.SetDefault("history.dir", "./data")
	v.SetDefault("history.global_file", "scans.jsonl")
	v.SetDefault("history.session_file", "session_scans.jsonl")
	v.SetDefault("history.session_id", "")
	v.SetDefault("history.sqlite_path", "./data/scans.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/phishsense")
	v.SetDefault("history.redis.address", "localhost:6379")
	v.SetDefault("history.redis.password", "")
	v.SetDefault("history.redis.db", 0)
	v.SetDefault("history.redis.key_prefix", "phishsense")
	v.SetDefault("history.retry.max_retries", 3)
	v.SetDefault("history.retry.base_delay", "100ms")

	// Server defaults
	v.SetDefault("server.frontends", []string{"http"})
	v.SetDefault("server.max_body_size", 65536)
	v.SetDefault("server.http.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.http.max_upload_bytes", 5*1024*1024)
	v.SetDefault("server.http.max_image_pixels", 16_000_000)
	v.SetDefault("server.smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.smtp.block_suspicious", false)
	v.SetDefault("server.smtp.headers.verdict", "X-Phish-Verdict")
	v.SetDefault("server.smtp.headers.score", "X-Phish-Score")
	v.SetDefault("server.smtp.headers.reason", "X-Phish-Reason")
	v.SetDefault("server.smtp.relay.enabled", true)
	v.SetDefault("server.smtp.relay.address", "localhost")
	v.SetDefault("server.smtp.relay.port", 10026)
	v.SetDefault("server.smtp.subject_prefix", "[PHISHING?] ")
	v.SetDefault("server.smtp.modify_subject", false)
	v.SetDefault("server.smtp.trusted_domains", []string{})
	v.SetDefault("server.smtp.log_scans", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets a 64-bit integer value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
