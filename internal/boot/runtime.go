// Package boot provides runtime configuration resolved once at startup.
package boot

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/memohai/frontline/internal/config"
)

// RuntimeConfig holds parsed runtime settings (server address, webhook signing, credentials).
// Values may be overridden by environment variables (e.g. HTTP_ADDR, TWILIO_AUTH_TOKEN).
// Services never read the environment; they receive these values through their constructors.
type RuntimeConfig struct {
	ServerAddr        string
	PublicURL         string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ValidateSignature bool
	TwilioAccountSID  string
	TwilioAuthToken   string
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	return resolveRuntimeConfig(cfg, os.Getenv)
}

func resolveRuntimeConfig(cfg config.Config, getenv func(string) string) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		ServerAddr:        cfg.Server.Addr,
		PublicURL:         strings.TrimRight(strings.TrimSpace(cfg.Server.PublicURL), "/"),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		ValidateSignature: cfg.Server.ValidateSignature,
		TwilioAccountSID:  cfg.Twilio.AccountSID,
		TwilioAuthToken:   cfg.Twilio.AuthToken,
	}

	if value := getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}
	if value := getenv("PUBLIC_URL"); value != "" {
		ret.PublicURL = strings.TrimRight(value, "/")
	}
	if value := getenv("TWILIO_ACCOUNT_SID"); value != "" {
		ret.TwilioAccountSID = value
	}
	if value := getenv("TWILIO_AUTH_TOKEN"); value != "" {
		ret.TwilioAuthToken = value
	}

	if ret.ValidateSignature && strings.TrimSpace(ret.TwilioAuthToken) == "" {
		return nil, errors.New("twilio auth token is required when signature validation is enabled")
	}
	return ret, nil
}
