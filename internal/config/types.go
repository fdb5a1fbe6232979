package config

// Config is the whole tracker configuration, loaded from one JSON or YAML
// file. Secrets may be omitted from the file and provided via environment
// variables instead (GITHUB_TOKEN, AI_API_KEY, TG_BOT_TOKEN, TG_CHAT_ID).
type Config struct {
	GitHubToken string `json:"github_token,omitempty"`

	// Schedule is a cron expression for the outer run loop.
	// Default: "0 9 * * *" (daily at 09:00).
	Schedule string `json:"schedule,omitempty"`

	DataDir    string `json:"data_dir,omitempty"`
	ReportsDir string `json:"reports_dir,omitempty"`

	// ProxyURL, when set, is applied to outbound Telegram and AI calls.
	ProxyURL string `json:"proxy_url,omitempty"`

	AI        AIConfig        `json:"ai"`
	Telegram  TelegramConfig  `json:"telegram"`
	Dashboard DashboardConfig `json:"dashboard,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`

	Repos []RepoConfig `json:"repos"`
}

// RepoConfig describes one tracked repository. Immutable for the duration
// of a run.
type RepoConfig struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`

	// Level: "all" | "merged_and_release" | "release_only".
	Level string `json:"level,omitempty"`

	// Frequency: "1d" | "2d" | "on_release".
	Frequency string `json:"frequency,omitempty"`

	// Keywords steer the summarizer's attention. They are an emphasis hint,
	// not a filter.
	Keywords []string `json:"keywords,omitempty"`

	// Notify enables the Telegram notification for this repo.
	Notify bool `json:"enable_tg,omitempty"`
}

func (r RepoConfig) FullName() string { return r.Owner + "/" + r.Name }

type AIConfig struct {
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"` // default: https://api.openai.com/v1
	Model       string  `json:"model,omitempty"`    // default: gpt-4o-mini
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// DashboardConfig controls the optional read-only HTTP API.
type DashboardConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8180"
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"` // nil means enabled
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (l LoggingConfig) ConsoleEnabled() bool { return l.Console == nil || *l.Console }
