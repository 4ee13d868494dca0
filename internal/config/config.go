// Package config loads the monitoring process settings from flags, environment
// variables (SAFEMODE_*) and an optional config file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/leinardi/safemode-monitoring/internal/auth"
	"github.com/leinardi/safemode-monitoring/internal/logger"
	"github.com/leinardi/safemode-monitoring/internal/monitoring"
	"github.com/leinardi/safemode-monitoring/internal/server"
)

// EnvPrefix is prepended to every environment variable (SAFEMODE_PASSCODE, ...).
const EnvPrefix = "SAFEMODE"

// Keys shared by flags, environment and config file.
const (
	KeyListenAddr     = "listen-addr"
	KeyMetricsPath    = "metrics-path"
	KeyPasscode       = "passcode"
	KeyPasscodeHeader = "passcode-header"
	KeyBearerPasscode = "bearer-passcode"
	KeyJWTSecret      = "jwt-secret"
	KeyJWTIssuer      = "jwt-issuer"
	KeyJWTAudience    = "jwt-audience"
	KeyJWTLeeway      = "jwt-leeway"
	KeyConstLabel     = "const-label"
	KeyRuntimeMetrics = "runtime-metrics"
	KeyLogFormat      = "log-format"
	KeyLogLevel       = "log-level"
	KeyLogTime        = "log-time"
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the resolved process configuration.
type Config struct {
	ListenAddr  string
	MetricsPath string

	Passcode       string
	PasscodeHeader string
	BearerPasscode string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	JWTLeeway      time.Duration

	ConstLabels    []string
	RuntimeMetrics bool

	LogFormat string
	LogLevel  string
	LogTime   bool
}

// RegisterFlags declares every setting on flags with its default.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyListenAddr, "0.0.0.0:9000", "IP address and port to bind")
	flags.String(KeyMetricsPath, monitoring.DefaultPath, "Route of the metrics action")
	flags.String(KeyPasscode, "", "System passcode accepted in the passcode header (empty disables)")
	flags.String(KeyPasscodeHeader, auth.DefaultPasscodeHeader, "Header carrying the system passcode")
	flags.String(KeyBearerPasscode, "", "Static token accepted as 'Authorization: Bearer' (empty disables)")
	flags.String(KeyJWTSecret, "", "HS256 secret for bearer JWTs (empty disables)")
	flags.String(KeyJWTIssuer, "", "Required JWT issuer (optional)")
	flags.String(KeyJWTAudience, "", "Required JWT audience (optional)")
	flags.Duration(KeyJWTLeeway, 0, "Clock skew tolerated on JWT time claims")
	flags.StringSlice(KeyConstLabel, nil, "Constant label added to every metric, key=value (repeatable)")
	flags.Bool(KeyRuntimeMetrics, true, "Expose Go runtime and process metrics")
	flags.String(KeyLogFormat, logger.FormatPlain, "Either json, text or plain")
	flags.String(KeyLogLevel, "info", "Either debug, info, warn, error")
	flags.Bool(KeyLogTime, false, "Include timestamp in logs")
}

// NewViper returns a viper instance bound to flags and SAFEMODE_* variables.
// configFile is optional.
func NewViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	settings := viper.New()
	settings.SetEnvPrefix(EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	if flags != nil {
		bindErr := settings.BindPFlags(flags)
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if configFile != "" {
		settings.SetConfigFile(configFile)

		readErr := settings.ReadInConfig()
		if readErr != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, readErr)
		}
	}

	return settings, nil
}

// Load resolves and validates the configuration.
func Load(settings *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:     strings.TrimSpace(settings.GetString(KeyListenAddr)),
		MetricsPath:    strings.TrimSpace(settings.GetString(KeyMetricsPath)),
		Passcode:       settings.GetString(KeyPasscode),
		PasscodeHeader: settings.GetString(KeyPasscodeHeader),
		BearerPasscode: settings.GetString(KeyBearerPasscode),
		JWTSecret:      settings.GetString(KeyJWTSecret),
		JWTIssuer:      settings.GetString(KeyJWTIssuer),
		JWTAudience:    settings.GetString(KeyJWTAudience),
		JWTLeeway:      settings.GetDuration(KeyJWTLeeway),
		ConstLabels:    splitConstLabels(settings.GetStringSlice(KeyConstLabel)),
		RuntimeMetrics: settings.GetBool(KeyRuntimeMetrics),
		LogFormat:      settings.GetString(KeyLogFormat),
		LogLevel:       settings.GetString(KeyLogLevel),
		LogTime:        settings.GetBool(KeyLogTime),
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return Config{}, validateErr
	}

	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at startup.
func (cfg Config) Validate() error {
	switch {
	case cfg.ListenAddr == "":
		return fmt.Errorf("%w: %s must not be empty", ErrInvalid, KeyListenAddr)
	case !strings.HasPrefix(cfg.MetricsPath, "/"):
		return fmt.Errorf("%w: %s must start with '/': %q", ErrInvalid, KeyMetricsPath, cfg.MetricsPath)
	case cfg.MetricsPath == server.HealthzPath:
		return fmt.Errorf("%w: %s collides with %s", ErrInvalid, KeyMetricsPath, server.HealthzPath)
	case cfg.LogFormat != "" && !logger.ValidFormat(cfg.LogFormat):
		return fmt.Errorf("%w: %s must be json, text or plain: %q", ErrInvalid, KeyLogFormat, cfg.LogFormat)
	case cfg.JWTLeeway < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyJWTLeeway)
	}

	patternErr := server.CheckPattern(cfg.MetricsPath)
	if patternErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, KeyMetricsPath, patternErr)
	}

	return nil
}

// splitConstLabels accepts both repeated flags and comma-separated values.
// Viper splits environment values on whitespace only, so
// SAFEMODE_CONST_LABEL=instance=node-1,zone=a arrives as a single entry.
func splitConstLabels(entries []string) []string {
	var pairs []string

	for _, entry := range entries {
		for _, pair := range strings.Split(entry, ",") {
			pair = strings.TrimSpace(pair)
			if pair != "" {
				pairs = append(pairs, pair)
			}
		}
	}

	return pairs
}

// AnySchemeConfigured reports whether at least one credential scheme can
// accept requests. Without one, every request is denied.
func (cfg Config) AnySchemeConfigured() bool {
	return strings.TrimSpace(cfg.Passcode) != "" ||
		strings.TrimSpace(cfg.BearerPasscode) != "" ||
		cfg.JWTSecret != ""
}
