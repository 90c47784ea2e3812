package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// DefaultBackendBaseURL is used when neither the config file nor the
// environment names a backend.
const DefaultBackendBaseURL = "http://localhost:8000"

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Backend struct {
		BaseURL string        `mapstructure:"baseURL"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`
	Session struct {
		TTL          time.Duration `mapstructure:"ttl"`
		Cleanup      time.Duration `mapstructure:"cleanup"`
		CookieSecure bool          `mapstructure:"cookieSecure"`
	} `mapstructure:"session"`
	RateLimit struct {
		GeneratePerMinute int `mapstructure:"generatePerMinute"`
	} `mapstructure:"ratelimit"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
	} `mapstructure:"observability"`
}

func InitConfig() (Config, error) {
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// POSTER_BACKEND_BASEURL, POSTER_SERVER_HTTPPORT, ...
	v.SetEnvPrefix("POSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// API_URL mirrors the variable the previous frontend build read.
	if err := v.BindEnv("backend.baseURL", "POSTER_BACKEND_BASEURL", "API_URL"); err != nil {
		return Config{}, fmt.Errorf("failed to bind backend env: %w", err)
	}

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.applyDefaults()
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

func (c *Config) applyDefaults() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendBaseURL
	}
	if c.Server.HTTPPort == "" {
		c.Server.HTTPPort = "8080"
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 60 * time.Second
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.Cleanup <= 0 {
		c.Session.Cleanup = 10 * time.Minute
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "go-map-poster"
	}
}
