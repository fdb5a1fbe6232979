package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	defaultSchedule   = "0 9 * * *"
	defaultDataDir    = "./data"
	defaultReportsDir = "./data/reports"
	defaultAIBaseURL  = "https://api.openai.com/v1"
	defaultAIModel    = "gpt-4o-mini"
)

var repoLevels = map[string]bool{
	"all":                true,
	"merged_and_release": true,
	"release_only":       true,
}

// Load reads, strictly decodes, validates and defaults the config file.
// Any failure here is fatal for startup.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(path, b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parse(path string, b []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("trailing data after config document")
		}
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("AI_API_KEY")
	}
	if cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = os.Getenv("TG_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == "" {
		cfg.Telegram.ChatID = os.Getenv("TG_CHAT_ID")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = defaultReportsDir
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultAIModel
	}
	if cfg.Dashboard.Enabled && cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = "127.0.0.1:8180"
	}
	for i := range cfg.Repos {
		if cfg.Repos[i].Level == "" {
			cfg.Repos[i].Level = "all"
		}
		if cfg.Repos[i].Frequency == "" {
			cfg.Repos[i].Frequency = "1d"
		}
	}
}

func (c *Config) validate() error {
	if c.AI.APIKey == "" {
		return errors.New("ai.api_key is required (or set AI_API_KEY)")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return errors.New("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return errors.New("telegram.chat_id is required when telegram is enabled")
		}
	}
	for _, r := range c.Repos {
		if r.Owner == "" || r.Name == "" {
			return fmt.Errorf("repo %q: owner and name are required", r.FullName())
		}
		if !repoLevels[r.Level] {
			return fmt.Errorf("repo %s: unknown level %q", r.FullName(), r.Level)
		}
	}
	return nil
}

// Repo finds a tracked repo by its owner/name pair.
func (c *Config) Repo(fullName string) (RepoConfig, bool) {
	for _, r := range c.Repos {
		if r.FullName() == fullName {
			return r, true
		}
	}
	return RepoConfig{}, false
}
