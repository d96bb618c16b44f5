package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contabilidad/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*config.WebNotiConfig)) *WebNotiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.WebNotiConfig{UpstreamURL: srv.URL + "/", UpstreamToken: "tok-123"}
	if mutate != nil {
		mutate(cfg)
	}
	client, err := NewWebNotiClient(cfg)
	require.NoError(t, err)
	return client
}

func TestNewWebNotiClient(t *testing.T) {
	_, err := NewWebNotiClient(nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewWebNotiClient(&config.WebNotiConfig{UpstreamURL: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)

	c, err := NewWebNotiClient(&config.WebNotiConfig{UpstreamURL: "https://noti.example.com/api/", RatePerSecond: 2})
	require.NoError(t, err)
	assert.Equal(t, "https://noti.example.com/api", c.baseURL)
	assert.Equal(t, defaultTimeout, c.client.Timeout)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
}

func TestWebNotiClient_Send(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"n-1","queued":true}`))
	}, nil)

	resp, err := client.Send(context.Background(), json.RawMessage(`{"to":"ops","message":"hola"}`))

	require.NoError(t, err)
	assert.Equal(t, "/send", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"to":"ops","message":"hola"}`, gotBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"n-1","queued":true}`, string(resp.Body))
}

func TestWebNotiClient_Subscribe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscribe", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("subscribed"))
	}, nil)

	resp, err := client.Subscribe(context.Background(), json.RawMessage(`{"endpoint":"https://x"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `"subscribed"`, string(resp.Body))
}

func TestWebNotiClient_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, nil)

	_, err := client.Send(context.Background(), json.RawMessage(`{}`))

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	assert.Equal(t, "bad gateway", upstream.Body)
	assert.Equal(t, "webnoti upstream returned 502: bad gateway", upstream.Error())
}

func TestWebNotiClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, func(cfg *config.WebNotiConfig) {
		cfg.Timeout = 20 * time.Millisecond
	})

	_, err := client.Send(context.Background(), json.RawMessage(`{}`))

	require.Error(t, err)
	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func TestWebNotiClient_RateLimitHonorsContext(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}, func(cfg *config.WebNotiConfig) {
		cfg.RatePerSecond = 0.001
		cfg.RateBurst = 1
	})

	resp, err := client.Send(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "null", string(resp.Body))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Send(ctx, json.RawMessage(`{}`))

	assert.ErrorContains(t, err, "webnoti rate limit")
	assert.Equal(t, 1, calls)
}
