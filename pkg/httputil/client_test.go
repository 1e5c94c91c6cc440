package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hotscore/pkg/config"
	"github.com/wonny/hotscore/pkg/logger"
)

func newTestClient() *Client {
	return New(config.ClientConfig{Timeout: 5 * time.Second}, logger.Nop()).
		WithRetry(2, time.Millisecond)
}

func TestNew_Defaults(t *testing.T) {
	c := New(config.ClientConfig{}, logger.Nop())
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 3, c.retryConfig.MaxRetries)
	assert.Nil(t, c.limiter)

	c = New(config.ClientConfig{RequestsPerSecond: 5}, logger.Nop())
	require.NotNil(t, c.limiter)
}

func TestPostJSON_RetriesWithBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"batchSize":5}`, string(body))

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"processed":5}`))
	}))
	defer srv.Close()

	resp, err := newTestClient().PostJSON(context.Background(), srv.URL, map[string]int{"batchSize": 5})
	require.NoError(t, err)

	var out struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, DecodeJSON(resp, &out))
	assert.Equal(t, 5, out.Processed)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad batch"})
	}))
	defer srv.Close()

	resp, err := newTestClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)

	var out map[string]interface{}
	err = DecodeJSON(resp, &out)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad batch")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := newTestClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_DisableRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := newTestClient().DisableRetry().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient().WithRateLimit(0.01)

	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	// 두 번째 요청은 100초 뒤에야 허용되므로 컨텍스트 만료로 실패
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, srv.URL)
	assert.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(500))
	assert.True(t, IsRetryableError(503))
	assert.True(t, IsRetryableError(429))
	assert.False(t, IsRetryableError(400))
	assert.False(t, IsRetryableError(409))
	assert.False(t, IsRetryableError(200))
}
