package config

import (
	"strings"
	"time"
)

// AnalysisConfig holds verdict settings
type AnalysisConfig struct {
	Threshold float64
}

// ModelConfig locates the trained model artifacts
type ModelConfig struct {
	Dir             string
	URLClassifier   string
	URLVectorizer   string
	EmailClassifier string
	EmailVectorizer string
	FallbackScore   float64
	Preload         bool
}

// DatasetConfig locates the word, shortener and phrase lists
type DatasetConfig struct {
	SuspiciousWords string
	Shorteners      string
	PhishingPhrases string
}

// RedisConfig represents the configuration for the Redis history backend
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RetryConfig controls retries against networked history backends
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// HistoryConfig represents the scan history configuration
type HistoryConfig struct {
	Type        string
	Dir         string
	GlobalFile  string
	SessionFile string
	SessionID   string
	SQLitePath  string
	MySQLDSN    string
	Redis       RedisConfig
	Retry       RetryConfig
}

// HTTPConfig represents the HTTP API configuration
type HTTPConfig struct {
	ListenAddress  string
	MaxUploadBytes int64
	MaxImagePixels int64
}

// SMTPHeaders names the headers the SMTP filter adds
type SMTPHeaders struct {
	Verdict string
	Score   string
	Reason  string
}

// SMTPConfig represents the SMTP content filter configuration
type SMTPConfig struct {
	ListenAddress   string
	BlockSuspicious bool
	Headers         SMTPHeaders
	RelayEnabled    bool
	RelayAddress    string
	RelayPort       int
	SubjectPrefix   string
	ModifySubject   bool
	TrustedDomains  []string
	LogScans        bool
}

// ServerConfig represents the daemon configuration
type ServerConfig struct {
	Frontends   []string
	MaxBodySize int
	HTTP        HTTPConfig
	SMTP        SMTPConfig
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetAnalysis returns the analysis configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Threshold: c.GetFloat64("analysis.threshold"),
	}
}

// GetModel returns the model artifact configuration
func (c *Config) GetModel() ModelConfig {
	return ModelConfig{
		Dir:             c.GetString("model.dir"),
		URLClassifier:   c.GetString("model.url.classifier"),
		URLVectorizer:   c.GetString("model.url.vectorizer"),
		EmailClassifier: c.GetString("model.email.classifier"),
		EmailVectorizer: c.GetString("model.email.vectorizer"),
		FallbackScore:   c.GetFloat64("model.fallback_score"),
		Preload:         c.GetBool("model.preload"),
	}
}

// GetDatasets returns the dataset configuration
func (c *Config) GetDatasets() DatasetConfig {
	return DatasetConfig{
		SuspiciousWords: c.GetString("datasets.suspicious_words"),
		Shorteners:      c.GetString("datasets.shorteners"),
		PhishingPhrases: c.GetString("datasets.phishing_phrases"),
	}
}

// GetHistory returns the scan history configuration
func (c *Config) GetHistory() HistoryConfig {
	baseDelay, err := c.GetDuration("history.retry.base_delay")
	if err != nil {
		baseDelay = 100 * time.Millisecond
	}
	return HistoryConfig{
		Type:        strings.ToLower(c.GetString("history.type")),
		Dir:         c.GetString("history.dir"),
		GlobalFile:  c.GetString("history.global_file"),
		SessionFile: c.GetString("history.session_file"),
		SessionID:   c.GetString("history.session_id"),
		SQLitePath:  c.GetString("history.sqlite_path"),
		MySQLDSN:    c.GetString("history.mysql_dsn"),
		Redis: RedisConfig{
			Address:   c.GetString("history.redis.address"),
			Password:  c.GetString("history.redis.password"),
			DB:        c.GetInt("history.redis.db"),
			KeyPrefix: c.GetString("history.redis.key_prefix"),
		},
		Retry: RetryConfig{
			MaxRetries: c.GetInt("history.retry.max_retries"),
			BaseDelay:  baseDelay,
		},
	}
}

// GetServer returns the daemon configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Frontends:   c.GetStringSlice("server.frontends"),
		MaxBodySize: c.GetInt("server.max_body_size"),
		HTTP: HTTPConfig{
			ListenAddress:  c.GetString("server.http.listen_address"),
			MaxUploadBytes: c.GetInt64("server.http.max_upload_bytes"),
			MaxImagePixels: c.GetInt64("server.http.max_image_pixels"),
		},
		SMTP: SMTPConfig{
			ListenAddress:   c.GetString("server.smtp.listen_address"),
			BlockSuspicious: c.GetBool("server.smtp.block_suspicious"),
			Headers: SMTPHeaders{
				Verdict: c.GetString("server.smtp.headers.verdict"),
				Score:   c.GetString("server.smtp.headers.score"),
				Reason:  c.GetString("server.smtp.headers.reason"),
			},
			RelayEnabled:   c.GetBool("server.smtp.relay.enabled"),
			RelayAddress:   c.GetString("server.smtp.relay.address"),
			RelayPort:      c.GetInt("server.smtp.relay.port"),
			SubjectPrefix:  c.GetString("server.smtp.subject_prefix"),
			ModifySubject:  c.GetBool("server.smtp.modify_subject"),
			TrustedDomains: c.GetStringSlice("server.smtp.trusted_domains"),
			LogScans:       c.GetBool("server.smtp.log_scans"),
		},
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
