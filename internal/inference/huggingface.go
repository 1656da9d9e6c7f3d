// Package inference adapts hosted language models to the capabilities the
// nlp and analysis packages consume.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"chitieu/internal/nlp"
)

// DefaultHFBaseURL is the hosted Inference API endpoint.
const DefaultHFBaseURL = "https://api-inference.huggingface.co"

const (
	hfMaxRetries  = 2
	hfBaseBackoff = 200 * time.Millisecond
)

var ErrEmptyCompletion = errors.New("empty completion")

// HuggingFace calls the Inference API for token classification and text
// generation. A zero model name disables the matching capability.
type HuggingFace struct {
	baseURL    string
	token      string
	httpClient *http.Client
	backoff    func() retry.Backoff
}

type HFOption func(*HuggingFace)

func WithHTTPClient(c *http.Client) HFOption {
	return func(h *HuggingFace) { h.httpClient = c }
}

// WithBackoff replaces the retry policy, mainly for tests.
func WithBackoff(b func() retry.Backoff) HFOption {
	return func(h *HuggingFace) { h.backoff = b }
}

func NewHuggingFace(baseURL, token string, opts ...HFOption) *HuggingFace {
	if baseURL == "" {
		baseURL = DefaultHFBaseURL
	}
	h := &HuggingFace{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(hfMaxRetries, retry.NewExponential(hfBaseBackoff))
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EntityRecognizer binds the client to a token-classification model.
func (h *HuggingFace) EntityRecognizer(model string) *HFEntityRecognizer {
	return &HFEntityRecognizer{hf: h, model: model}
}

// Generator binds the client to a text-generation model.
func (h *HuggingFace) Generator(model string) *HFGenerator {
	return &HFGenerator{hf: h, model: model}
}

type HFEntityRecognizer struct {
	hf    *HuggingFace
	model string
}

func (r *HFEntityRecognizer) RecognizeEntities(ctx context.Context, text string) ([]nlp.Entity, error) {
	var entities []nlp.Entity
	body := map[string]any{
		"inputs":     text,
		"parameters": map[string]any{"aggregation_strategy": "simple"},
	}
	if err := r.hf.post(ctx, r.model, body, &entities); err != nil {
		return nil, fmt.Errorf("recognize entities: %w", err)
	}
	return entities, nil
}

type HFGenerator struct {
	hf    *HuggingFace
	model string
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (g *HFGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out []hfGeneration
	body := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens":   maxTokens,
			"return_full_text": false,
		},
	}
	if err := g.hf.post(ctx, g.model, body, &out); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(out) == 0 || strings.TrimSpace(out[0].GeneratedText) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(out[0].GeneratedText), nil
}

// post sends body to the model endpoint and decodes the JSON answer into out.
// 429 and 5xx answers (including 503 while a model loads) are retried.
func (h *HuggingFace) post(ctx context.Context, model string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := h.baseURL + "/models/" + model

	return retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if h.token != "" {
			req.Header.Set("Authorization", "Bearer "+h.token)
		}

		resp, err := h.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("call %s: %w", model, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{Model: model, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// StatusError is a non-200 answer from the Inference API.
type StatusError struct {
	Model string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model %s returned %d: %s", e.Model, e.Code, e.Body)
}
