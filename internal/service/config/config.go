package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	HTTPPort string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	APIKey   string `mapstructure:"API_KEY"`

	// empty keeps the ledger in memory
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	NPHIESEndpoint    string        `mapstructure:"NPHIES_ENDPOINT"`
	NPHIESCertFile    string        `mapstructure:"NPHIES_CERT_FILE"`
	NPHIESKeyFile     string        `mapstructure:"NPHIES_KEY_FILE"`
	NPHIESCAFile      string        `mapstructure:"NPHIES_CA_FILE"`
	NPHIESBearerToken string        `mapstructure:"NPHIES_BEARER_TOKEN"`
	NPHIESTimeout     time.Duration `mapstructure:"NPHIES_TIMEOUT"`
	NPHIESRetryMax    int           `mapstructure:"NPHIES_RETRY_MAX"`

	ProviderLicense string `mapstructure:"PROVIDER_LICENSE"`
	ProviderBaseURL string `mapstructure:"PROVIDER_BASE_URL"`
	SenderEndpoint  string `mapstructure:"SENDER_ENDPOINT"`
	PayersFile      string `mapstructure:"PAYERS_FILE"`

	TeamsWebhookURL    string `mapstructure:"TEAMS_WEBHOOK_URL"`
	TeamsWebhookSecret string `mapstructure:"TEAMS_WEBHOOK_SECRET"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "API_KEY", "DATABASE_URL",
	"NPHIES_ENDPOINT", "NPHIES_CERT_FILE", "NPHIES_KEY_FILE", "NPHIES_CA_FILE",
	"NPHIES_BEARER_TOKEN", "NPHIES_TIMEOUT", "NPHIES_RETRY_MAX",
	"PROVIDER_LICENSE", "PROVIDER_BASE_URL", "SENDER_ENDPOINT", "PAYERS_FILE",
	"TEAMS_WEBHOOK_URL", "TEAMS_WEBHOOK_SECRET",
}

// NewConfigFromEnv reads the environment, falling back to a .env file in the
// working directory when one exists.
func NewConfigFromEnv() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NPHIES_ENDPOINT", "https://hsb.nphies.sa")
	v.SetDefault("NPHIES_TIMEOUT", "30s")
	v.SetDefault("NPHIES_RETRY_MAX", 3)
	v.SetDefault("PROVIDER_BASE_URL", "http://provider.com.sa/")
	v.SetDefault("SENDER_ENDPOINT", "http://provider.com.sa/nphies")

	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, errors.Wrapf(err, "bind %s", k)
		}
	}

	// a missing .env is fine
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.Env == EnvDevelopment
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate rejects settings the gateway cannot run with. Production additionally
// needs an API key, a provider license and client certificates.
func (c Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("PORT must not be empty")
	}
	if c.NPHIESTimeout < 0 {
		return fmt.Errorf("NPHIES_TIMEOUT must not be negative, got %s", c.NPHIESTimeout)
	}
	if c.NPHIESRetryMax < 0 {
		return fmt.Errorf("NPHIES_RETRY_MAX must not be negative, got %d", c.NPHIESRetryMax)
	}
	for name, raw := range map[string]string{
		"NPHIES_ENDPOINT":   c.NPHIESEndpoint,
		"PROVIDER_BASE_URL": c.ProviderBaseURL,
		"TEAMS_WEBHOOK_URL": c.TeamsWebhookURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s is not an absolute url: %q", name, raw)
		}
	}
	if (c.NPHIESCertFile == "") != (c.NPHIESKeyFile == "") {
		return errors.New("NPHIES_CERT_FILE and NPHIES_KEY_FILE must be set together")
	}

	if !c.IsProduction() {
		return nil
	}
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if c.ProviderLicense == "" {
		missing = append(missing, "PROVIDER_LICENSE")
	}
	if c.NPHIESCertFile == "" {
		missing = append(missing, "NPHIES_CERT_FILE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required when ENV=%s", strings.Join(missing, ", "), EnvProduction)
	}
	return nil
}
