package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Discord struct {
		BotToken  string `yaml:"bot_token" validate:"required"`
		GuildID   string `yaml:"guild_id" validate:"required"`
		ChannelID string `yaml:"channel_id"`
	} `yaml:"discord"`
	MarketData struct {
		BaseURL string `yaml:"base_url" validate:"required,url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"market_data"`
	LLM struct {
		BaseURL     string  `yaml:"base_url" validate:"required,url"`
		Model       string  `yaml:"model" validate:"required"`
		Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
		MaxTokens   int     `yaml:"max_tokens" validate:"gt=0"`
	} `yaml:"llm"`
	Conversation struct {
		MaxHistory     int `yaml:"max_history" validate:"gt=0"`
		IdleTimeoutMin int `yaml:"idle_timeout_minutes" validate:"gt=0"`
	} `yaml:"conversation"`
	Schedule struct {
		EarningsSyncCron string `yaml:"earnings_sync_cron"`
	} `yaml:"schedule"`
	Lifecycle struct {
		IdleShutdownMin int `yaml:"idle_shutdown_minutes" validate:"gt=0"`
	} `yaml:"lifecycle"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" validate:"required"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		cfg.Discord.BotToken = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		cfg.Discord.ChannelID = v
	}
	if v := os.Getenv("MARKET_DATA_BASE_URL"); v != "" {
		cfg.MarketData.BaseURL = v
	}
	if v := os.Getenv("MARKET_DATA_API_KEY"); v != "" {
		cfg.MarketData.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = t
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.1"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 200
	}
	if cfg.Conversation.MaxHistory == 0 {
		cfg.Conversation.MaxHistory = 10
	}
	if cfg.Conversation.IdleTimeoutMin == 0 {
		cfg.Conversation.IdleTimeoutMin = 15
	}
	if cfg.Schedule.EarningsSyncCron == "" {
		// Daily at 08:00, before US market open.
		cfg.Schedule.EarningsSyncCron = "0 0 8 * * *"
	}
	if cfg.Lifecycle.IdleShutdownMin == 0 {
		cfg.Lifecycle.IdleShutdownMin = 10
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tickersage.db"
	}

	return cfg, nil
}

// ConversationIdleTimeout is the idle expiry for per-user conversation state.
func (c *Config) ConversationIdleTimeout() time.Duration {
	return time.Duration(c.Conversation.IdleTimeoutMin) * time.Minute
}

// IdleShutdown is how long the process may go without inbound messages
// before it exits.
func (c *Config) IdleShutdown() time.Duration {
	return time.Duration(c.Lifecycle.IdleShutdownMin) * time.Minute
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}
