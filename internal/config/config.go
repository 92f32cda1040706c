package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type BotConfig struct {
	Token    string  `yaml:"token" toml:"token"`
	Username string  `yaml:"username" toml:"username"`
	OwnerID  int64   `yaml:"owner_id" toml:"owner_id"`
	Workers  int     `yaml:"workers" toml:"workers"`
	StaffIDs []int64 `yaml:"staff_ids" toml:"staff_ids"`
	// LogChannel receives federation ban logs and startup notices. Zero disables it.
	LogChannel int64 `yaml:"log_channel" toml:"log_channel"`
}

type LogConfig struct {
	Level    string `yaml:"level" toml:"level"`       // trace|debug|info|warn|error
	Format   string `yaml:"format" toml:"format"`     // json|console
	Sampling bool   `yaml:"sampling" toml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URI  string `yaml:"uri" toml:"uri"`
	Name string `yaml:"name" toml:"name"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" toml:"addr"`
	Password string        `yaml:"password" toml:"password"`
	DB       int           `yaml:"db" toml:"db"`
	TTL      time.Duration `yaml:"ttl" toml:"ttl"`
}

type AntiFloodConfig struct {
	Limit  int           `yaml:"limit" toml:"limit"`
	Window time.Duration `yaml:"window" toml:"window"`
}

type SpamShieldConfig struct {
	SpamWatchToken string `yaml:"spamwatch_token" toml:"spamwatch_token"`
	SpamWatchURL   string `yaml:"spamwatch_url" toml:"spamwatch_url"`
	CASURL         string `yaml:"cas_url" toml:"cas_url"`
}

// SpamPredictConfig is the "ml" extra. The classifier stays disabled unless
// one of the provider keys is set.
type SpamPredictConfig struct {
	OpenAIKey string  `yaml:"openai_key" toml:"openai_key"`
	GeminiKey string  `yaml:"gemini_key" toml:"gemini_key"`
	Model     string  `yaml:"model" toml:"model"`
	Threshold float64 `yaml:"threshold" toml:"threshold"`
	MaxTokens int     `yaml:"max_tokens" toml:"max_tokens"`
}

type WebConfig struct {
	Port        int           `yaml:"port" toml:"port"`
	LoginSecret string        `yaml:"login_secret" toml:"login_secret"`
	JWTSecret   string        `yaml:"jwt_secret" toml:"jwt_secret"`
	SessionTTL  time.Duration `yaml:"session_ttl" toml:"session_ttl"`
}

type SchedulerConfig struct {
	SessionCheckpointCron string `yaml:"session_checkpoint_cron" toml:"session_checkpoint_cron"`
	StatsSnapshotCron     string `yaml:"stats_snapshot_cron" toml:"stats_snapshot_cron"`
}

type Config struct {
	Bot         BotConfig         `yaml:"bot" toml:"bot"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	Redis       RedisConfig       `yaml:"redis" toml:"redis"`
	AntiFlood   AntiFloodConfig   `yaml:"antiflood" toml:"antiflood"`
	SpamShield  SpamShieldConfig  `yaml:"spamshield" toml:"spamshield"`
	SpamPredict SpamPredictConfig `yaml:"spampredict" toml:"spampredict"`
	Web         WebConfig         `yaml:"web" toml:"web"`
	Scheduler   SchedulerConfig   `yaml:"scheduler" toml:"scheduler"`
}

// Load reads the config file (YAML or TOML, decided by extension), applies
// environment overrides and defaults, and validates required fields.
// A .env file next to the working directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required (or BOT_TOKEN)")
	}
	if cfg.Database.URI == "" {
		return nil, errors.New("database.uri is required (or DB_URI)")
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

// applyEnv keeps the original deployment contract: secrets may come from the
// process environment and win over the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("DB_URI"); v != "" {
		cfg.Database.URI = v
	}
	if v := os.Getenv("OWNER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bot.OwnerID = id
		}
	}
	if v := os.Getenv("LOG_CHANNEL"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Bot.LogChannel = id
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SW_API"); v != "" {
		cfg.SpamShield.SpamWatchToken = v
	}
	if v := os.Getenv("SP_OPENAI_KEY"); v != "" {
		cfg.SpamPredict.OpenAIKey = v
	}
	if v := os.Getenv("SP_GEMINI_KEY"); v != "" {
		cfg.SpamPredict.GeminiKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "anjani"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.AntiFlood.Limit <= 0 {
		cfg.AntiFlood.Limit = 5
	}
	if cfg.AntiFlood.Window <= 0 {
		cfg.AntiFlood.Window = 10 * time.Second
	}
	if cfg.SpamShield.SpamWatchURL == "" {
		cfg.SpamShield.SpamWatchURL = "https://api.spamwat.ch"
	}
	if cfg.SpamShield.CASURL == "" {
		cfg.SpamShield.CASURL = "https://api.cas.chat"
	}
	if cfg.SpamPredict.Model == "" {
		cfg.SpamPredict.Model = "gpt-4o-mini"
	}
	if cfg.SpamPredict.Threshold <= 0 {
		cfg.SpamPredict.Threshold = 0.9
	}
	if cfg.SpamPredict.MaxTokens <= 0 {
		cfg.SpamPredict.MaxTokens = 512
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 30 * time.Minute
	}
	if cfg.Scheduler.SessionCheckpointCron == "" {
		cfg.Scheduler.SessionCheckpointCron = "@every 15m"
	}
	if cfg.Scheduler.StatsSnapshotCron == "" {
		cfg.Scheduler.StatsSnapshotCron = "@daily"
	}
}

// MLEnabled reports whether the spam-prediction extra should be loaded.
func (c *Config) MLEnabled() bool {
	return c.SpamPredict.OpenAIKey != "" || c.SpamPredict.GeminiKey != ""
}
