// Package config provides YAML-based configuration loading for EstimAIte.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/estimaite/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the top-level EstimAIte configuration, loaded from config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Rooms     RoomsConfig     `yaml:"rooms"`
	Logging   LoggingConfig   `yaml:"logging"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Telegraph TelegraphConfig `yaml:"telegraph"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles room creation and feedback per client IP. A
// negative per_second disables the limit.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RoomsConfig tunes the in-memory room store.
type RoomsConfig struct {
	TTL                 time.Duration `yaml:"ttl"`
	VoteDuration        time.Duration `yaml:"vote_duration"`
	DuplicateJoinWindow time.Duration `yaml:"duplicate_join_window"`
	ReaperSchedule      string        `yaml:"reaper_schedule"`
	Policy              string        `yaml:"policy"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeedbackConfig selects the database backing the feedback inbox.
type FeedbackConfig struct {
	Driver string      `yaml:"driver"`
	DSN    string      `yaml:"dsn"`
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings used when no explicit DSN is given.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// TelegraphConfig holds chat announcement settings. An empty platform
// disables announcements.
type TelegraphConfig struct {
	Platform  string        `yaml:"platform"`
	ChannelID string        `yaml:"channel_id"`
	Slack     SlackConfig   `yaml:"slack"`
	Discord   DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack-specific credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
}

// DiscordConfig holds Discord-specific credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, then unmarshals YAML bytes into a
// validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RateLimit.PerSecond == 0 {
		c.Server.RateLimit.PerSecond = 1
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Rooms.TTL == 0 {
		c.Rooms.TTL = 30 * time.Minute
	}
	if c.Rooms.VoteDuration == 0 {
		c.Rooms.VoteDuration = 5 * time.Minute
	}
	if c.Rooms.DuplicateJoinWindow == 0 {
		c.Rooms.DuplicateJoinWindow = time.Second
	}
	if c.Rooms.ReaperSchedule == "" {
		c.Rooms.ReaperSchedule = "@every 30m"
	}
	if c.Rooms.Policy == "" {
		c.Rooms.Policy = "anyone"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = logging.FormatConsole
	}
	if c.Feedback.Driver == "" {
		c.Feedback.Driver = "sqlite"
	}
	if c.Feedback.Driver == "sqlite" && c.Feedback.DSN == "" {
		c.Feedback.DSN = "estimaite.db"
	}
	if c.Feedback.Driver == "mysql" {
		if c.Feedback.MySQL.Host == "" {
			c.Feedback.MySQL.Host = "127.0.0.1"
		}
		if c.Feedback.MySQL.Port == 0 {
			c.Feedback.MySQL.Port = 3306
		}
		if c.Feedback.MySQL.User == "" {
			c.Feedback.MySQL.User = "root"
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	for _, origin := range c.Server.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Sprintf("server.allowed_origins %q must be * or start with http:// or https://", origin))
		}
	}
	if c.Server.RateLimit.Burst < 0 {
		errs = append(errs, "server.rate_limit.burst must not be negative")
	}
	if c.Rooms.TTL < 0 {
		errs = append(errs, "rooms.ttl must be positive")
	}
	if c.Rooms.VoteDuration < time.Second {
		errs = append(errs, "rooms.vote_duration must be at least 1s")
	}
	if c.Rooms.DuplicateJoinWindow < 0 {
		errs = append(errs, "rooms.duplicate_join_window must not be negative")
	}
	if _, err := cron.ParseStandard(c.Rooms.ReaperSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("rooms.reaper_schedule %q: %v", c.Rooms.ReaperSchedule, err))
	}
	switch c.Rooms.Policy {
	case "anyone", "moderator":
	default:
		errs = append(errs, fmt.Sprintf("rooms.policy %q must be anyone or moderator", c.Rooms.Policy))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level %q is unknown", c.Logging.Level))
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Feedback.Driver {
	case "sqlite":
	case "mysql":
		if c.Feedback.DSN == "" && c.Feedback.MySQL.Database == "" {
			errs = append(errs, "feedback.mysql.database is required when feedback.dsn is empty")
		}
	default:
		errs = append(errs, fmt.Sprintf("feedback.driver %q must be sqlite or mysql", c.Feedback.Driver))
	}
	switch c.Telegraph.Platform {
	case "":
	case "slack":
		if c.Telegraph.Slack.BotToken == "" {
			errs = append(errs, "telegraph.slack.bot_token is required")
		}
	case "discord":
		if c.Telegraph.Discord.BotToken == "" {
			errs = append(errs, "telegraph.discord.bot_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("telegraph.platform %q must be slack or discord", c.Telegraph.Platform))
	}
	if c.Telegraph.Platform != "" && c.Telegraph.ChannelID == "" {
		errs = append(errs, "telegraph.channel_id is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
