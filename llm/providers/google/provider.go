// Package google implements the llm.Provider adapter for the Gemini
// generateContent API. The API keys travel as a query parameter and the
// system prompt maps onto systemInstruction.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the credentials and tuning for the Gemini adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider calls the Gemini generateContent API.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("provider", "google")),
	}
}

func (p *Provider) Name() string { return "google" }

type apiPart struct {
	Text string `json:"text"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiRequest struct {
	Contents          []apiContent `json:"contents"`
	SystemInstruction *apiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float32 `json:"temperature,omitempty"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type apiResponse struct {
	Candidates []struct {
		Content      apiContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Completion implements llm.Provider.
func (p *Provider) Completion(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	var body apiRequest
	body.Contents = []apiContent{{Role: "user", Parts: []apiPart{{Text: req.Prompt}}}}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &apiContent{Parts: []apiPart{{Text: req.SystemPrompt}}}
	}
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrAIProvider, "failed to encode request").
			WithProvider(p.Name()).WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(req.Model), url.QueryEscape(p.cfg.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrAIProvider, "failed to build request").
			WithProvider(p.Name()).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrAIProvider, "upstream call failed").
			WithProvider(p.Name()).WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyStatus(p.Name(), resp.StatusCode, readErrMsg(resp.Body))
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrAIProvider, "failed to decode response").
			WithProvider(p.Name()).WithCause(err)
	}
	if len(out.Candidates) == 0 {
		return nil, types.NewError(types.ErrAIProvider, "response contained no candidates").
			WithProvider(p.Name())
	}

	var content strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	return &llm.Completion{
		Content:    content.String(),
		Provider:   p.Name(),
		Model:      req.Model,
		TokensUsed: out.UsageMetadata.TotalTokenCount,
	}, nil
}

// HealthCheck implements llm.Provider with a models listing round-trip.
func (p *Provider) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1beta/models?key=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.QueryEscape(p.cfg.APIKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini health check failed: status=%d msg=%s", resp.StatusCode, readErrMsg(resp.Body))
	}
	return nil
}

func readErrMsg(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var e apiError
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(data)
}
