// Package openai implements the Summarizer port against OpenAI-compatible
// chat-completions APIs, with a strict JSON-schema response so the editorial
// note always has its three fields.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
)

const systemPrompt = "You are writing a brief editorial note for a cardiology digest. " +
	"Return JSON with exactly three fields:\n" +
	"- study_type: Classify the design using one of these exact formats: " +
	"'RCT', 'Meta-analysis', 'Systematic review', 'Prospective cohort', " +
	"'Retrospective cohort', 'Case-control', 'Case series', 'Narrative review', " +
	"'Guideline', or 'Other'. Use sentence case (e.g., 'Meta-analysis' not 'META-ANALYSIS').\n" +
	"- finding: The primary result or conclusion. For trials and observational " +
	"studies, include effect size, CI, and p-value if reported. For reviews, " +
	"state the main synthesis or conclusion.\n" +
	"- so_what: One sentence on why a clinician should care. What does this " +
	"change, confirm, or challenge in practice?\n\n" +
	"If a detail is not in the abstract, write 'Not reported'. " +
	"Be precise. No hype words like 'breakthrough' or 'game-changing'. " +
	"Use only information from the provided abstract."

// summarySchema constrains the model output to the editorial-note shape.
var summarySchema = map[string]any{
	"name": "editorial_note",
	"schema": map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"study_type": map[string]any{"type": "string"},
			"finding":    map[string]any{"type": "string"},
			"so_what":    map[string]any{"type": "string"},
		},
		"required": []string{"study_type", "finding", "so_what"},
	},
	"strict": true,
}

// Summarizer calls the chat-completions endpoint once per article.
type Summarizer struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer builds a client from configuration.
func NewSummarizer(cfg config.OpenAIConfig) *Summarizer {
	return &Summarizer{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Summarize requests an editorial note for one article. Failures are
// per-article; the caller decides what omission means.
func (s *Summarizer) Summarize(ctx context.Context, a domain.Article) (domain.Summary, error) {
	if s.apiKey == "" || s.endpoint == "" || s.model == "" {
		return domain.Summary{}, fmt.Errorf("openai summarizer misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt(a)},
		},
		"response_format": map[string]any{
			"type":        "json_schema",
			"json_schema": summarySchema,
		},
		"temperature": 0.2,
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize %s: %w", a.PMID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Summary{}, fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.Summary{}, fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return domain.Summary{}, fmt.Errorf("empty completion for %s", a.PMID)
	}

	var summary domain.Summary
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &summary); err != nil {
		return domain.Summary{}, fmt.Errorf("parse editorial note: %w", err)
	}
	return summary, nil
}

func userPrompt(a domain.Article) string {
	pubTypes := "Not specified"
	if len(a.PubTypes) > 0 {
		pubTypes = strings.Join(a.PubTypes, ", ")
	}
	return fmt.Sprintf("TITLE: %s\nJOURNAL: %s\nPUB DATE: %s\nPUBLICATION TYPES: %s\nABSTRACT:\n%s\n",
		a.Title, a.Journal, a.PubDate.String(), pubTypes, a.Abstract)
}
