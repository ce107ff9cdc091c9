package requester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type searchEnvelope struct {
	Response struct {
		RowCount int `json:"rowCount"`
	} `json:"response"`
}

func TestGetJSONDecodesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "hash:0a*", r.URL.Query().Get("q"))
		require.Equal(t, "secret", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": {"rowCount": 7}}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "secret", MaxRetries: 1}, zap.NewNop())

	params := url.Values{}
	params.Set("q", "hash:0a*")
	var out searchEnvelope
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, params, &out))
	require.Equal(t, 7, out.Response.RowCount)
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"response": {"rowCount": 1}}`))
	}))
	defer srv.Close()

	client := New(Config{MaxRetries: 3}, zap.NewNop())

	var out searchEnvelope
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, url.Values{}, &out))
	require.Equal(t, 3, calls)
	require.Equal(t, 1, out.Response.RowCount)
}

func TestGetJSONExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Config{MaxRetries: 2}, zap.NewNop())

	var out searchEnvelope
	err := client.GetJSON(context.Background(), srv.URL, url.Values{}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "retries exhausted after 2 attempts")
	require.Equal(t, 2, calls)
}

func TestGetJSONRetriesDecodeFailures(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		_, _ = w.Write([]byte(`{"response": {"rowCount": 4}}`))
	}))
	defer srv.Close()

	client := New(Config{MaxRetries: 2}, zap.NewNop())

	var out searchEnvelope
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, url.Values{}, &out))
	require.Equal(t, 4, out.Response.RowCount)
}

func TestGetJSONHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{MaxRetries: 5}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out searchEnvelope
	start := time.Now()
	err := client.GetJSON(ctx, srv.URL, url.Values{}, &out)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second, "cancellation must short-circuit the retry loop")
}

func TestGetJSONPacesRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"rowCount": 0}}`))
	}))
	defer srv.Close()

	client := New(Config{Delay: 100 * time.Millisecond, MaxRetries: 1}, zap.NewNop())

	var out searchEnvelope
	start := time.Now()
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, url.Values{}, &out))
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, url.Values{}, &out))
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestBackoffDurationGrowsAndCaps(t *testing.T) {
	t.Parallel()

	policy := newBackoffPolicy()
	for attempt := 1; attempt < 10; attempt++ {
		d := policy.duration(attempt)
		require.Greater(t, d, time.Duration(0))
		require.LessOrEqual(t, d, policy.maxDelay)
	}
}
