// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "frontline"
	DefaultPGSSLMode       = "disable"
	DefaultDirectoryDriver = "memory"
	DefaultPageSize        = 30
	DefaultSMTPPort        = 587
	DefaultKafkaTopic      = "frontline-analytics"
	DefaultApplication     = "frontline-demo"

	DefaultOverrideBody   = `You opted into receiving communications from us online. Would you like to receive more information from us? Reply "Yes" to continue`
	DefaultProhibitedTerm = "backline"
	DefaultAffirmative    = "yes"
	DefaultAlertSubject   = "[Frontline Demo] Non-Compliant Word(s) Alert"
	DefaultOptInEvent     = "Consent Given"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Twilio    TwilioConfig    `toml:"twilio"`
	Directory DirectoryConfig `toml:"directory"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Email     EmailConfig     `toml:"email"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Consent   ConsentConfig   `toml:"consent"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and webhook validation settings.
// PublicURL is the externally visible base URL Twilio signs requests against.
type ServerConfig struct {
	Addr                string `toml:"addr"`
	PublicURL           string `toml:"public_url"`
	ValidateSignature   bool   `toml:"validate_signature"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// TwilioConfig holds the account credentials used for the Conversations API.
type TwilioConfig struct {
	AccountSID string `toml:"account_sid"`
	AuthToken  string `toml:"auth_token"`
}

// DirectoryConfig selects the customer directory backend.
// Driver is "memory" (seeded from a YAML file) or "postgres".
type DirectoryConfig struct {
	Driver   string `toml:"driver"`
	SeedPath string `toml:"seed_path"`
	PageSize int    `toml:"page_size"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// EmailConfig selects the compliance alert mail driver ("smtp", "mailgun" or "none").
type EmailConfig struct {
	Driver  string        `toml:"driver"`
	From    string        `toml:"from"`
	SMTP    SMTPConfig    `toml:"smtp"`
	Mailgun MailgunConfig `toml:"mailgun"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	TLS      bool   `toml:"tls"`
}

type MailgunConfig struct {
	Domain string `toml:"domain"`
	APIKey string `toml:"api_key"`
}

// AnalyticsConfig selects the analytics sink ("segment", "kafka" or "none").
type AnalyticsConfig struct {
	Driver      string        `toml:"driver"`
	Application string        `toml:"application"`
	Segment     SegmentConfig `toml:"segment"`
	Kafka       KafkaConfig   `toml:"kafka"`
}

type SegmentConfig struct {
	WriteKey string `toml:"write_key"`
	Endpoint string `toml:"endpoint"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// ConsentConfig holds the consent gate and compliance filter rules.
type ConsentConfig struct {
	ProhibitedTerms   []string `toml:"prohibited_terms"`
	AffirmativeTokens []string `toml:"affirmative_tokens"`
	OverrideBody      string   `toml:"override_body"`
	AlertRecipient    string   `toml:"alert_recipient"`
	AlertSubject      string   `toml:"alert_subject"`
	OptInEvent        string   `toml:"opt_in_event"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:                DefaultHTTPAddr,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
		},
		Directory: DirectoryConfig{
			Driver:   DefaultDirectoryDriver,
			PageSize: DefaultPageSize,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Email: EmailConfig{
			Driver: "none",
			SMTP: SMTPConfig{
				Port: DefaultSMTPPort,
				TLS:  true,
			},
		},
		Analytics: AnalyticsConfig{
			Driver:      "none",
			Application: DefaultApplication,
			Kafka: KafkaConfig{
				Topic: DefaultKafkaTopic,
			},
		},
		Consent: ConsentConfig{
			ProhibitedTerms:   []string{DefaultProhibitedTerm},
			AffirmativeTokens: []string{DefaultAffirmative},
			OverrideBody:      DefaultOverrideBody,
			AlertSubject:      DefaultAlertSubject,
			OptInEvent:        DefaultOptInEvent,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
