// Package config loads process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"onboarding-proxy/internal/logger"
)

const (
	DefaultPort           = "3000"
	DefaultInteractionTTL = 30 * 24 * time.Hour
)

// Config is passed explicitly into constructors; nothing below cmd reads the
// environment.
type Config struct {
	Port string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	// ParamPrefix enables reading the API key from SSM when OpenAIAPIKey is unset.
	ParamPrefix string

	// InteractionTable enables the DynamoDB interaction log.
	InteractionTable string
	InteractionTTL   time.Duration

	AllowOrigins []string

	// Lambda is set when running inside the AWS Lambda runtime.
	Lambda bool

	Log logger.Config
}

// UseParamStoreKey reports whether the API key must be fetched from SSM.
func (c *Config) UseParamStoreKey() bool {
	return c.OpenAIAPIKey == "" && c.ParamPrefix != ""
}

// NeedsAWS reports whether any AWS client has to be built.
func (c *Config) NeedsAWS() bool {
	return c.UseParamStoreKey() || c.InteractionTable != ""
}

// Load reads optional dotenv files (".env" when none are given) and then the
// environment. Variables already set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", DefaultPort)
	v.SetDefault("interaction_ttl", DefaultInteractionTTL)
	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	cfg := &Config{
		Port:             strings.TrimSpace(v.GetString("port")),
		OpenAIAPIKey:     strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIBaseURL:    strings.TrimSpace(v.GetString("openai_base_url")),
		ParamPrefix:      strings.TrimSpace(v.GetString("param_prefix")),
		InteractionTable: strings.TrimSpace(v.GetString("interaction_table")),
		InteractionTTL:   v.GetDuration("interaction_ttl"),
		AllowOrigins:     splitList(v.GetString("cors_allow_origins")),
		Lambda:           v.GetString("aws_lambda_runtime_api") != "",
		Log: logger.Config{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("config: invalid PORT %q", c.Port)
	}
	if c.InteractionTTL <= 0 {
		return fmt.Errorf("config: INTERACTION_TTL must be positive, got %s", c.InteractionTTL)
	}
	if len(c.AllowOrigins) == 0 {
		c.AllowOrigins = []string{"*"}
	}
	return nil
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
