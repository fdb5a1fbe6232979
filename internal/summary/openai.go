package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ghtracker/internal/config"
	"ghtracker/internal/github"
	"ghtracker/internal/storage"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
	digestMaxTokens    = 500
)

// OpenAIClient is a minimal chat-completions client. It works against any
// OpenAI-compatible endpoint via the configurable base URL.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

var _ Summarizer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg config.AIConfig, proxyURL string) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ai api key is empty")
	}

	transport := http.DefaultTransport
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: temp,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: 120 * time.Second, Transport: transport},
	}, nil
}

// Summarize generates the per-repo update summary.
func (c *OpenAIClient) Summarize(ctx context.Context, batch *github.UpdateBatch, history []storage.Summary) (string, error) {
	if batch.Empty() {
		return "", errors.New("empty batch")
	}
	return c.complete(ctx, systemPrompt, buildPrompt(batch, history), c.maxTokens)
}

// Digest condenses several per-repo summaries into one short message.
func (c *OpenAIClient) Digest(ctx context.Context, repoNames, summaries []string) (string, error) {
	if len(summaries) == 0 || len(summaries) != len(repoNames) {
		return "", errors.New("no summaries to digest")
	}
	return c.complete(ctx, "你是一个专业的技术文档助手。", buildDigestPrompt(repoNames, summaries), digestMaxTokens)
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": c.temperature,
		"max_tokens":  maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completions api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("completions api responded with status %s", resp.Status)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completions api returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
