package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/automateai/agentrun/types"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPConnector performs parameterized REST calls. The api node executes
// through it so retry and telemetry wrapping apply uniformly instead of each
// node doing raw I/O.
type HTTPConnector struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPConnector creates the generic HTTP connector.
func NewHTTPConnector(logger *zap.Logger) *HTTPConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPConnector{
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: logger.With(zap.String("connector", "http")),
	}
}

func (c *HTTPConnector) Name() string        { return "http" }
func (c *HTTPConnector) Description() string { return "Generic HTTP/REST API call" }

func (c *HTTPConnector) ConfigSchema() *types.JSONSchema {
	return &types.JSONSchema{
		Type: types.SchemaTypeObject,
		Properties: map[string]*types.JSONSchema{
			"endpoint": {Type: types.SchemaTypeString, Description: "Request URL"},
			"method":   {Type: types.SchemaTypeString, Enum: []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
			"headers":  {Type: types.SchemaTypeObject},
			"body":     {Type: types.SchemaTypeObject, Description: "Request body; defaults to the node input"},
			"timeout":  {Type: types.SchemaTypeNumber, Description: "Per-call timeout in seconds"},
		},
		Required: []string{"endpoint"},
	}
}

// Validate implements Connector with a structural check of the endpoint.
func (c *HTTPConnector) Validate(config Config) bool {
	endpoint, _ := config["endpoint"].(string)
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

// Execute performs the configured HTTP call. Non-2xx statuses produce a
// failed result carrying the status, not an error.
func (c *HTTPConnector) Execute(ctx context.Context, config Config, input any) (*Result, error) {
	endpoint, _ := config["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("http connector requires an endpoint")
	}

	method := strings.ToUpper(stringOr(config, "method", http.MethodPost))

	var body io.Reader
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		payload := input
		if custom, ok := config["body"]; ok && custom != nil {
			payload = custom
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	if secs, ok := config["timeout"].(float64); ok && secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "agentrun/1.0")
	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if json.Unmarshal(raw, &parsed) != nil {
			parsed = string(raw)
		}
	} else {
		parsed = string(raw)
	}

	data := map[string]any{
		"statusCode": resp.StatusCode,
		"endpoint":   endpoint,
		"method":     method,
		"response":   parsed,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res := failureResult(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status))
		res.Data = data
		return res, nil
	}
	return successResult(data, map[string]any{"statusCode": resp.StatusCode}), nil
}

// Test performs a GET against the configured endpoint.
func (c *HTTPConnector) Test(ctx context.Context, config Config) (bool, error) {
	if !c.Validate(config) {
		return false, fmt.Errorf("invalid endpoint")
	}
	probe := Config{"endpoint": config["endpoint"], "method": "GET"}
	if h, ok := config["headers"]; ok {
		probe["headers"] = h
	}
	res, err := c.Execute(ctx, probe, nil)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

func stringOr(config Config, key, fallback string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
