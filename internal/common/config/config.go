// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Queue       QueueConfig       `mapstructure:"queue"`
	NLU         NLUConfig         `mapstructure:"nlu"`
	Email       EmailConfig       `mapstructure:"email"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig holds the chat API listener settings.
type HTTPConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	ReadTimeout    int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig holds the request queue tuning knobs. The visibility timeout is
// the exclusivity period for a dequeued-but-unacked message; max_receives is
// the redelivery budget before a message dead-letters.
type QueueConfig struct {
	Key               string `mapstructure:"key"`
	VisibilityTimeout int    `mapstructure:"visibility_timeout"` // milliseconds
	MaxReceives       int    `mapstructure:"max_receives"`
	BatchSize         int    `mapstructure:"batch_size"`
	PollInterval      int    `mapstructure:"poll_interval"` // milliseconds
}

func (q QueueConfig) VisibilityWindow() time.Duration {
	return time.Duration(q.VisibilityTimeout) * time.Millisecond
}

func (q QueueConfig) PollEvery() time.Duration {
	return time.Duration(q.PollInterval) * time.Millisecond
}

// NLUConfig holds settings for the external slot-recognition oracle.
type NLUConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// EmailConfig holds the SES settings for outbound recommendations.
type EmailConfig struct {
	AWSRegion string `mapstructure:"aws_region"`
	FromEmail string `mapstructure:"from_email"`
	Enabled   bool   `mapstructure:"enabled"`
}

// AlertsConfig holds settings for dead-letter alerting.
type AlertsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
	TopicARN  string `mapstructure:"topic_arn"`
}

// FulfillmentConfig holds the worker pipeline settings.
type FulfillmentConfig struct {
	SearchLimit    int  `mapstructure:"search_limit"`
	RenderLimit    int  `mapstructure:"render_limit"`
	RetryOnNoMatch bool `mapstructure:"retry_on_no_match"`
	Concurrency    int  `mapstructure:"concurrency"`
	Timeout        int  `mapstructure:"timeout"` // milliseconds, per request
}

func (f FulfillmentConfig) RequestTimeout() time.Duration {
	return time.Duration(f.Timeout) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
