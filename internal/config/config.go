package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("yac-auth version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	IdP     IdPConfig     `mapstructure:"idp"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Mail    MailConfig    `mapstructure:"mail"`
	Events  EventsConfig  `mapstructure:"events"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// IdPConfig points at the user pool and the app client the service acts as.
type IdPConfig struct {
	Region       string        `mapstructure:"region"`
	UserPoolID   string        `mapstructure:"user_pool_id"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Domain       string        `mapstructure:"domain"` // hosted UI base URL, e.g. https://auth.example.com
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
}

type AuthConfig struct {
	// PasswordSecret derives the placeholder password no user ever knows.
	PasswordSecret     string        `mapstructure:"password_secret"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
	FirstPartyClientID string        `mapstructure:"first_party_client_id"`
	LoginUIURL         string        `mapstructure:"login_ui_url"`
}

type MailDriver string

const (
	MailDriverSES MailDriver = "ses"
	MailDriverLog MailDriver = "log"
)

type MailConfig struct {
	Driver  MailDriver `mapstructure:"driver"`
	From    string     `mapstructure:"from"`
	Subject string     `mapstructure:"subject"`
}

type EventsDriver string

const (
	EventsDriverKafka EventsDriver = "kafka"
	EventsDriverLog   EventsDriver = "log"
	EventsDriverNone  EventsDriver = "none"
)

type EventsConfig struct {
	Driver  EventsDriver `mapstructure:"driver"`
	Brokers []string     `mapstructure:"brokers"`
	Topic   string       `mapstructure:"topic"`
}

// InitFlags registers the command line flags understood by Load (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file (defaults to ./config.yaml or /etc/yac-auth/config.yaml)")
	fs.Int("server.port", 0, "HTTP listen port")
	fs.String("logging.level", "", "Log level (debug|info|warn|error)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("idp.http_timeout", 10*time.Second)
	v.SetDefault("auth.call_timeout", 15*time.Second)
	v.SetDefault("mail.driver", string(MailDriverSES))
	v.SetDefault("events.driver", string(EventsDriverLog))
	v.SetDefault("events.topic", "yac.identity")
}

// Load reads configuration from an optional yaml file, YAC_AUTH_* environment
// variables and the flags in fs (which may be nil).
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("YAC_AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := bindChangedFlags(v, fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/yac-auth")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine, env vars may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{
		"idp.region", "idp.user_pool_id", "idp.client_id", "idp.client_secret", "idp.domain",
		"auth.password_secret", "auth.first_party_client_id", "auth.login_ui_url",
		"mail.from", "mail.subject", "events.brokers", "server.allow_origins",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Events.Brokers = splitList(cfg.Events.Brokers)
	cfg.Server.AllowOrigins = splitList(cfg.Server.AllowOrigins)

	return &cfg, nil
}

// bindChangedFlags binds only flags set on the command line so unset flags
// don't shadow file and env values with their zero defaults.
func bindChangedFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || !f.Changed {
			return
		}
		err = v.BindPFlag(f.Name, f)
	})
	return err
}

// splitList accepts both yaml lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports the first missing required setting for the HTTP service.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"idp.region", c.IdP.Region},
		{"idp.user_pool_id", c.IdP.UserPoolID},
		{"idp.client_id", c.IdP.ClientID},
		{"idp.client_secret", c.IdP.ClientSecret},
		{"idp.domain", c.IdP.Domain},
		{"auth.password_secret", c.Auth.PasswordSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required, please adjust the config or set YAC_AUTH_%s", r.key, envName(r.key))
		}
	}

	switch c.Mail.Driver {
	case MailDriverSES:
		if c.Mail.From == "" {
			return fmt.Errorf("mail.from is required when mail.driver is %q", MailDriverSES)
		}
	case MailDriverLog:
	default:
		return fmt.Errorf("unsupported mail.driver %q", c.Mail.Driver)
	}

	switch c.Events.Driver {
	case EventsDriverKafka:
		if len(c.Events.Brokers) == 0 || c.Events.Topic == "" {
			return fmt.Errorf("events.brokers and events.topic are required when events.driver is %q", EventsDriverKafka)
		}
	case EventsDriverLog, EventsDriverNone:
	default:
		return fmt.Errorf("unsupported events.driver %q", c.Events.Driver)
	}

	if c.Auth.CallTimeout <= 0 {
		return fmt.Errorf("auth.call_timeout must be positive")
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
