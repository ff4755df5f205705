package main

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	MiroToken   string `yaml:"miro_token"`
	MiroBoardID string `yaml:"miro_board_id"`
	MiroBaseURL string `yaml:"miro_base_url"` // override for testing, empty = api.miro.com

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	LLMModel        string `yaml:"llm_model"`

	DBPath         string `yaml:"db_path"`
	ChartOutputDir string `yaml:"chart_output_dir"`

	DigestSchedule  string `yaml:"digest_schedule"` // 5-field cron, empty disables the digest
	DigestChannelID string `yaml:"digest_channel_id"`

	Timezone string `yaml:"timezone"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.MiroToken, "MIRO_TOKEN")
	envOverride(&cfg.MiroBoardID, "MIRO_BOARD_ID")
	envOverride(&cfg.MiroBaseURL, "MIRO_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ChartOutputDir, "CHART_OUTPUT_DIR")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.DigestChannelID, "DIGEST_CHANNEL_ID")
	envOverride(&cfg.Timezone, "TIMEZONE")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./ganttbot.db"
	}
	if cfg.ChartOutputDir == "" {
		cfg.ChartOutputDir = "./charts"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultAnthropicModel
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
		"miro_token":      cfg.MiroToken,
		"miro_board_id":   cfg.MiroBoardID,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if cfg.Timezone != "Local" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		time.Local = loc
	}

	if cfg.DigestSchedule != "" && cfg.DigestChannelID == "" {
		log.Fatalf("digest_channel_id is required when digest_schedule is set")
	}

	return cfg
}

// SuggestionsEnabled reports whether the LLM suggestion button should be offered.
func (c Config) SuggestionsEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
