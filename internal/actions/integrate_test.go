package actions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helion-data/scanflow/pkg/schema"
)

func TestIntegrationHandler_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","count":3}`))
	}))
	defer srv.Close()

	h := NewIntegrationHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), Input{
		Params: map[string]any{"url": srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out.Outputs["status_code"])

	body, ok := out.Outputs["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", body["status"])
}

func TestIntegrationHandler_PostBodyAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	h := NewIntegrationHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), Input{
		Params: map[string]any{
			"method": "post",
			"url":    srv.URL,
			"body":   map[string]any{"name": "asset-1"},
			"auth":   map[string]any{"type": "bearer", "token": "secret"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, out.Outputs["status_code"])
}

func TestIntegrationHandler_ErrorStatusWarnsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewIntegrationHandler(HTTPConfig{})
	out, err := h.Execute(context.Background(), Input{
		Params: map[string]any{"url": srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, out.Outputs["status_code"])
	assert.NotEmpty(t, out.Warnings)
}

func TestIntegrationHandler_FailOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewIntegrationHandler(HTTPConfig{})
	_, err := h.Execute(context.Background(), Input{
		Params: map[string]any{"url": srv.URL, "fail_on_error_status": true},
	})
	require.Error(t, err)

	// Client errors are not worth retrying.
	var ferr *schema.FlowError
	require.ErrorAs(t, err, &ferr)
	assert.False(t, ferr.Retryable)
}

func TestIntegrationHandler_InvalidURL(t *testing.T) {
	h := NewIntegrationHandler(HTTPConfig{})
	_, err := h.Execute(context.Background(), Input{
		Params: map[string]any{"url": "ftp://example.com/file"},
	})
	assert.Error(t, err)

	_, err = h.Execute(context.Background(), Input{Params: map[string]any{}})
	assert.Error(t, err)
}

func TestLookupPath(t *testing.T) {
	m := map[string]any{
		"steps": map[string]any{
			"scan": map[string]any{"total": 7},
		},
	}
	assert.Equal(t, 7, lookupPath(m, "steps.scan.total"))
	assert.Nil(t, lookupPath(m, "steps.scan.missing"))
	assert.Nil(t, lookupPath(m, "steps.scan.total.deeper"))
}
