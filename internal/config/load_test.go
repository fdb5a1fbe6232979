package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSONWithDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"github_token": "ghp_x",
		"ai": {"api_key": "sk-test"},
		"repos": [{"owner": "golang", "name": "go"}]
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != "0 9 * * *" {
		t.Fatalf("Schedule default = %q", cfg.Schedule)
	}
	if cfg.AI.BaseURL != "https://api.openai.com/v1" || cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("AI defaults = %+v", cfg.AI)
	}
	if cfg.Repos[0].Level != "all" || cfg.Repos[0].Frequency != "1d" {
		t.Fatalf("repo defaults = %+v", cfg.Repos[0])
	}
	if cfg.Repos[0].FullName() != "golang/go" {
		t.Fatalf("FullName = %q", cfg.Repos[0].FullName())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
github_token: ghp_x
ai:
  api_key: sk-test
telegram:
  enabled: true
  bot_token: "123:abc"
  chat_id: "-100200300"
repos:
  - owner: golang
    name: go
    level: release_only
    frequency: on_release
    keywords: [runtime, gc]
    enable_tg: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r := cfg.Repos[0]
	if r.Level != "release_only" || r.Frequency != "on_release" || !r.Notify {
		t.Fatalf("repo = %+v", r)
	}
	if len(r.Keywords) != 2 || r.Keywords[0] != "runtime" {
		t.Fatalf("keywords = %v", r.Keywords)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.ChatID != "-100200300" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("AI_API_KEY", "sk-env")

	path := writeConfig(t, "config.json", `{"repos": []}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHubToken != "ghp_env" || cfg.AI.APIKey != "sk-env" {
		t.Fatalf("env secrets not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.json", `{"ai": {"api_key": "x"}, "githb_token": "typo"}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoadValidation(t *testing.T) {
	// Neutralize ambient secrets so validation sees exactly the file content.
	t.Setenv("AI_API_KEY", "")
	t.Setenv("TG_BOT_TOKEN", "")
	t.Setenv("TG_CHAT_ID", "")

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"missing ai key",
			`{"repos": []}`,
			"ai.api_key",
		},
		{
			"telegram enabled without chat",
			`{"ai": {"api_key": "x"}, "telegram": {"enabled": true, "bot_token": "t"}}`,
			"chat_id",
		},
		{
			"repo without name",
			`{"ai": {"api_key": "x"}, "repos": [{"owner": "golang"}]}`,
			"owner and name",
		},
		{
			"bad level",
			`{"ai": {"api_key": "x"}, "repos": [{"owner": "a", "name": "b", "level": "everything"}]}`,
			"unknown level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "config.json", tc.body)
			_, err := Load(path)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
