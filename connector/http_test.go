package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPConnector_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	c := NewHTTPConnector(zap.NewNop())
	res, err := c.Execute(context.Background(), Config{"endpoint": srv.URL, "method": "GET"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 200, data["statusCode"])
	assert.Equal(t, map[string]any{"hello": "world"}, data["response"])
}

func TestHTTPConnector_PostSendsInputAsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "v", body["k"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPConnector(zap.NewNop())
	res, err := c.Execute(context.Background(),
		Config{"endpoint": srv.URL}, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestHTTPConnector_ConfigBodyOverridesInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "custom", body["source"])
		assert.NotContains(t, body, "k")
	}))
	defer srv.Close()

	c := NewHTTPConnector(zap.NewNop())
	res, err := c.Execute(context.Background(), Config{
		"endpoint": srv.URL,
		"method":   "POST",
		"body":     map[string]any{"source": "custom"},
	}, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestHTTPConnector_CustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c := NewHTTPConnector(zap.NewNop())
	res, err := c.Execute(context.Background(), Config{
		"endpoint": srv.URL,
		"method":   "GET",
		"headers":  map[string]any{"Authorization": "Bearer tok"},
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestHTTPConnector_Non2xxIsFailedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewHTTPConnector(zap.NewNop())
	res, err := c.Execute(context.Background(), Config{"endpoint": srv.URL, "method": "GET"}, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "403")

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 403, data["statusCode"])
}

func TestHTTPConnector_Validate(t *testing.T) {
	c := NewHTTPConnector(zap.NewNop())
	assert.True(t, c.Validate(Config{"endpoint": "https://api.example.com"}))
	assert.True(t, c.Validate(Config{"endpoint": "http://localhost:8080"}))
	assert.False(t, c.Validate(Config{"endpoint": "ftp://files.example.com"}))
	assert.False(t, c.Validate(Config{}))
}

func TestHTTPConnector_MissingEndpoint(t *testing.T) {
	c := NewHTTPConnector(zap.NewNop())
	_, err := c.Execute(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
