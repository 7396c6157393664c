package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	AllowedOrigins []string

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisURL           string
	RedisPassword      string
	EventStream        string
	EventConsumerGroup string

	ReconnectSecret string

	Game GameConfig
}

// GameConfig holds the session tunables.
type GameConfig struct {
	MatchmakingTimeout time.Duration
	DisconnectGrace    time.Duration
	BotThinkDelay      time.Duration
	FinishedRetention  time.Duration
	BotName            string
}

// fileConfig is the optional HCL file layout:
//
//	server { port = 8080  log_level = "debug" }
//	game   { matchmaking_timeout = "10s"  bot_name = "BOT" }
type fileConfig struct {
	Server *serverBlock `hcl:"server,block"`
	Game   *gameBlock   `hcl:"game,block"`
}

type serverBlock struct {
	Port           int      `hcl:"port,optional"`
	LogLevel       string   `hcl:"log_level,optional"`
	LogFormat      string   `hcl:"log_format,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
}

type gameBlock struct {
	MatchmakingTimeout string `hcl:"matchmaking_timeout,optional"`
	DisconnectGrace    string `hcl:"disconnect_grace,optional"`
	BotThinkDelay      string `hcl:"bot_think_delay,optional"`
	FinishedRetention  string `hcl:"finished_retention,optional"`
	BotName            string `hcl:"bot_name,optional"`
}

func Default() *Config {
	return &Config{
		Port:                 "8080",
		LogLevel:             "info",
		LogFormat:            "text",
		AllowedOrigins:       []string{"http://localhost:5173"},
		DBMaxOpenConns:       25,
		DBMaxIdleConns:       25,
		DBConnMaxLifetimeMin: 5,
		RedisURL:             "redis://localhost:6379/0",
		EventStream:          "game-events",
		EventConsumerGroup:   "analytics",
		ReconnectSecret:      "change-me-in-production",
		Game: GameConfig{
			MatchmakingTimeout: 10 * time.Second,
			DisconnectGrace:    30 * time.Second,
			BotThinkDelay:      800 * time.Millisecond,
			FinishedRetention:  5 * time.Minute,
			BotName:            "BOT",
		},
	}
}

// LoadConfig layers the HCL file at path (when given) and then the
// environment over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn("config file not found, using defaults", "path", path)
		return nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return fmt.Errorf("decode %s: %s", path, diags.Error())
	}

	if s := fc.Server; s != nil {
		if s.Port != 0 {
			c.Port = strconv.Itoa(s.Port)
		}
		if s.LogLevel != "" {
			c.LogLevel = s.LogLevel
		}
		if s.LogFormat != "" {
			c.LogFormat = s.LogFormat
		}
		if len(s.AllowedOrigins) > 0 {
			c.AllowedOrigins = s.AllowedOrigins
		}
	}

	if g := fc.Game; g != nil {
		durations := []struct {
			raw string
			dst *time.Duration
		}{
			{g.MatchmakingTimeout, &c.Game.MatchmakingTimeout},
			{g.DisconnectGrace, &c.Game.DisconnectGrace},
			{g.BotThinkDelay, &c.Game.BotThinkDelay},
			{g.FinishedRetention, &c.Game.FinishedRetention},
		}
		for _, d := range durations {
			if d.raw == "" {
				continue
			}
			v, err := time.ParseDuration(d.raw)
			if err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
			*d.dst = v
		}
		if g.BotName != "" {
			c.Game.BotName = g.BotName
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = GetEnv("PORT", c.Port)
	c.LogLevel = GetEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = GetEnv("LOG_FORMAT", c.LogFormat)

	if origins := GetEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	c.DatabaseURL = withSimpleProtocol(GetEnv("DATABASE_URL", c.DatabaseURL))
	c.DBMaxOpenConns = GetEnvAsInt("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns)
	c.DBMaxIdleConns = GetEnvAsInt("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetimeMin = GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", c.DBConnMaxLifetimeMin)

	c.RedisURL = GetEnv("REDIS_URL", c.RedisURL)
	c.RedisPassword = GetEnv("REDIS_PASSWORD", c.RedisPassword)
	c.EventStream = GetEnv("EVENT_STREAM", c.EventStream)
	c.EventConsumerGroup = GetEnv("EVENT_CONSUMER_GROUP", c.EventConsumerGroup)

	c.ReconnectSecret = GetEnv("RECONNECT_SECRET", c.ReconnectSecret)

	c.Game.MatchmakingTimeout = GetEnvAsDuration("MATCHMAKING_TIMEOUT_SECONDS", time.Second, c.Game.MatchmakingTimeout)
	c.Game.DisconnectGrace = GetEnvAsDuration("DISCONNECT_GRACE_SECONDS", time.Second, c.Game.DisconnectGrace)
	c.Game.BotThinkDelay = GetEnvAsDuration("BOT_THINK_DELAY_MS", time.Millisecond, c.Game.BotThinkDelay)
	c.Game.FinishedRetention = GetEnvAsDuration("FINISHED_RETENTION_MINUTES", time.Minute, c.Game.FinishedRetention)
	c.Game.BotName = GetEnv("BOT_NAME", c.Game.BotName)
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}
	if c.Game.MatchmakingTimeout <= 0 || c.Game.DisconnectGrace <= 0 {
		return fmt.Errorf("game timers must be positive")
	}
	if c.Game.BotThinkDelay < 0 {
		return fmt.Errorf("bot think delay must not be negative")
	}
	if strings.TrimSpace(c.Game.BotName) == "" {
		return fmt.Errorf("bot name must not be empty")
	}
	return nil
}

func (c *Config) Address() string {
	return ":" + c.Port
}

// withSimpleProtocol keeps the pgx driver usable behind PgBouncer.
func withSimpleProtocol(dbURL string) string {
	if dbURL == "" {
		return dbURL
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return dbURL
	}
	q := u.Query()
	if q.Get("default_query_exec_mode") == "" {
		q.Set("default_query_exec_mode", "simple_protocol")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func splitList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn("invalid integer, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsDuration reads an integer count of unit.
func GetEnvAsDuration(key string, unit, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		log.Warn("invalid duration, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}
	return time.Duration(value) * unit
}
