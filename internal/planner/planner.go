// Package planner produces plans from natural-language goals. With an LLM
// configured it asks an OpenAI-compatible chat endpoint and validates the
// response against the plan contract; without one, or on any LLM failure,
// it falls back to a canned demo plan so plan creation never depends on
// upstream availability.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fangio/fangio/internal/schema"
)

// Defaults for the LLM backend.
const (
	DefaultBaseURL = "https://models.github.ai/inference"
	DefaultModel   = "openai/gpt-4o-mini"
)

// Config selects the plan-generation backend.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Status describes the active plan-generation backend.
type Status struct {
	Mode     string `json:"mode"` // live or demo
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Planner generates plans for goals.
type Planner struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New creates a Planner. Zero-value config fields fall back to defaults.
func New(cfg Config, log *slog.Logger) *Planner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Planner{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

// Status reports whether a live backend is configured. Informational only.
func (p *Planner) Status() Status {
	if p.cfg.APIKey == "" {
		return Status{Mode: "demo", Provider: "Demo Mode (no API key)", Model: "N/A (canned plans)"}
	}
	provider := "Custom OpenAI-compatible"
	if u, err := url.Parse(p.cfg.BaseURL); err == nil && u.Hostname() == "models.github.ai" {
		provider = "GitHub Models"
	}
	return Status{Mode: "live", Provider: provider, Model: p.cfg.Model}
}

// Generate produces a plan for the goal. The result always conforms to the
// plan contract; LLM failures degrade to the demo catalog rather than
// failing plan creation.
func (p *Planner) Generate(ctx context.Context, goal string) (*schema.Plan, error) {
	if p.cfg.APIKey == "" {
		return DemoPlan(goal), nil
	}

	plan, err := p.generateLLM(ctx, goal)
	if err != nil {
		p.log.Warn("LLM planning failed, falling back to demo plan", "error", err)
		return DemoPlan(goal), nil
	}
	return plan, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *Planner) generateLLM(ctx context.Context, goal string) (*schema.Plan, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: goal},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call LLM: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM API error: %s", resp.Status)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode LLM response: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no content in LLM response")
	}

	plan, err := schema.ValidatePlan([]byte(stripFences(chat.Choices[0].Message.Content)))
	if err != nil {
		return nil, fmt.Errorf("LLM response failed plan validation: %w", err)
	}
	return plan, nil
}

// stripFences removes markdown code fences an LLM may wrap JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func systemPrompt() string {
	return `You are an operations planning assistant. Given a goal, respond ONLY with a
JSON object conforming to this shape:
{"planId": string, "goal": string, "createdAt": ISO-8601 string, "steps": [
  {"id": string, "tool": string, "args": object, "risk": "low"|"medium"|"high",
   "description": string, "approved": boolean}]}
Available tools: docker.ps, docker.stats, docker.logs, docker.restart,
git.status, filesystem.search, http.probe. Mark destructive steps as medium
or high risk and leave them unapproved. Do not wrap the JSON in markdown.`
}
