package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Orchestrator struct {
		BaseURL        string `mapstructure:"base_url"`
		Workflow       string `mapstructure:"workflow"`
		RequestSeconds int    `mapstructure:"request_seconds"`
	} `mapstructure:"orchestrator"`

	Campaign struct {
		TickMillis         int  `mapstructure:"tick_millis"`
		PollAfterResume    bool `mapstructure:"poll_after_resume"`
		PollTimeoutSeconds int  `mapstructure:"poll_timeout_seconds"`
		PollIntervalMillis int  `mapstructure:"poll_interval_millis"`
	} `mapstructure:"campaign"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`
}

func Load() Config {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetDefault("campaign.poll_after_resume", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

func validate(c *Config) {
	if c.Server.Addr == "" { c.Server.Addr = ":8090" }
	if c.Orchestrator.BaseURL == "" { c.Orchestrator.BaseURL = "http://localhost:8080" }
	if c.Orchestrator.Workflow == "" { c.Orchestrator.Workflow = "lead_outreach" }
	if c.Orchestrator.RequestSeconds <= 0 { c.Orchestrator.RequestSeconds = 10 }
	if c.Campaign.TickMillis <= 0 { c.Campaign.TickMillis = 1500 }
	if c.Campaign.PollTimeoutSeconds <= 0 { c.Campaign.PollTimeoutSeconds = 8 }
	if c.Campaign.PollIntervalMillis <= 0 { c.Campaign.PollIntervalMillis = 500 }
	if c.Postgres.Port == 0 { c.Postgres.Port = 5432 }
	if c.Postgres.SSLMode == "" { c.Postgres.SSLMode = "disable" }
	if c.Postgres.MaxOpenConns == 0 { c.Postgres.MaxOpenConns = 10 }
	if c.Postgres.MaxIdleConns == 0 { c.Postgres.MaxIdleConns = 10 }
}

// ArchiveEnabled reports whether the optional report archive is configured.
func (c Config) ArchiveEnabled() bool { return c.Postgres.Host != "" }

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Orchestrator.RequestSeconds) * time.Second
}

func (c Config) TickInterval() time.Duration { return time.Duration(c.Campaign.TickMillis) * time.Millisecond }

func (c Config) PollTimeout() time.Duration {
	return time.Duration(c.Campaign.PollTimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Campaign.PollIntervalMillis) * time.Millisecond
}
