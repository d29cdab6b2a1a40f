package solr

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClientValidatesConfig verifies that an incomplete config is rejected
func TestNewClientValidatesConfig(t *testing.T) {
	config := DefaultClientConfig()
	_, err := NewClient(config)
	assert.Error(t, err)

	config = testConfig("http://leader/solr", "http://follower/solr")
	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, config, client.Config())
}

// TestConfigCopyIsImmutable verifies that changing the returned config does not affect the client
func TestConfigCopyIsImmutable(t *testing.T) {
	config := testConfig("http://leader/solr", "http://follower/solr")
	client, err := NewClient(config)
	require.NoError(t, err)

	copied := client.Config()
	copied.LeaderURL = "http://elsewhere/solr"
	config.LeaderCore = "changed"

	assert.Equal(t, "http://leader/solr", client.Config().LeaderURL)
	assert.Equal(t, "leader_core", client.Config().LeaderCore)
}

// TestDispatchRetriesTransientStatus verifies that 503 is retried until success
// and that exactly n+1 attempts are made
func TestDispatchRetriesTransientStatus(t *testing.T) {
	for retries := 0; retries <= 3; retries++ {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			var attempts atomic.Int32
			node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
				if int(attempts.Add(1)) <= retries {
					writeSolrError(w, http.StatusServiceUnavailable, "busy")
					return
				}
				_, _ = w.Write([]byte(`{"ok":true}`))
			})
			client := newTestClient(t, node, nil, retries)

			resp, err := client.Dispatch(context.Background(), Request{
				Method:   http.MethodGet,
				Template: SearchURL,
			})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(retries+1), attempts.Load())
		})
	}
}

// TestDispatchRetryStatuses verifies which statuses are retried
func TestDispatchRetryStatuses(t *testing.T) {
	tests := []struct {
		status   int
		attempts int
	}{
		{http.StatusRequestEntityTooLarge, 3},
		{http.StatusTooManyRequests, 3},
		{http.StatusBadGateway, 3},
		{http.StatusServiceUnavailable, 3},
		{http.StatusGatewayTimeout, 3},
		{http.StatusBadRequest, 1},
		{http.StatusNotFound, 1},
		{http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var attempts atomic.Int32
			node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				writeSolrError(w, tt.status, "failed")
			})
			client := newTestClient(t, node, nil, 2)

			_, err := client.Dispatch(context.Background(), Request{
				Method:   http.MethodPost,
				Template: SearchURL,
				JSON:     map[string]any{"query": "*:*"},
			})
			require.Error(t, err)

			solrErr := AsSolrError(err)
			assert.Equal(t, tt.status, solrErr.StatusCode)
			assert.Equal(t, "failed", solrErr.Message)
			assert.Equal(t, int32(tt.attempts), attempts.Load())
		})
	}
}

// TestDispatchNonRetryableStatus verifies that a 404 is raised after one attempt with the parsed message
func TestDispatchNonRetryableStatus(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeSolrError(w, http.StatusNotFound, "Not Found")
	})
	client := newTestClient(t, node, nil, 5)

	_, err := client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
	require.Error(t, err)

	var solrErr *SolrError
	require.ErrorAs(t, err, &solrErr)
	assert.Equal(t, KindFailure, solrErr.Kind)
	assert.Equal(t, http.StatusNotFound, solrErr.StatusCode)
	assert.Equal(t, "Not Found", solrErr.Message)
	assert.Equal(t, int32(1), attempts.Load())
}

// TestDispatchRetryExhausted verifies that the last transient response is raised
func TestDispatchRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeSolrError(w, http.StatusTooManyRequests, "slow down")
	})
	client := newTestClient(t, node, nil, 2)

	_, err := client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
	solrErr := AsSolrError(err)
	require.NotNil(t, solrErr)
	assert.Equal(t, KindTransient, solrErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, solrErr.StatusCode)
	assert.Equal(t, "slow down", solrErr.Message)
	assert.Equal(t, int32(3), attempts.Load())
}

// TestDispatchPutIsNotRetried verifies that only GET and POST responses are retried
func TestDispatchPutIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeSolrError(w, http.StatusServiceUnavailable, "busy")
	})
	client := newTestClient(t, node, nil, 3)

	_, err := client.Dispatch(context.Background(), Request{
		Method:   http.MethodPut,
		Template: SynonymsURL + "/all",
		JSON:     map[string][]string{"a": {"b"}},
	})
	solrErr := AsSolrError(err)
	assert.Equal(t, http.StatusServiceUnavailable, solrErr.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

// TestDispatchFallbackMessage verifies the fallback message for bodies without error.msg
func TestDispatchFallbackMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html body", "<html><body>Internal Error</body></html>"},
		{"empty body", ""},
		{"json without msg", `{"error":{"code":500}}`},
		{"error is a string", `{"error":"boom"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tt.body))
			})
			client := newTestClient(t, node, nil, 0)

			_, err := client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
			solrErr := AsSolrError(err)
			assert.Equal(t, http.StatusInternalServerError, solrErr.StatusCode)
			assert.Equal(t, MsgRequestError, solrErr.Message)
		})
	}
}

// closedAddress returns the address of a port nobody listens on
func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// TestDispatchConnectionRefused verifies that a refused connection always yields 504
func TestDispatchConnectionRefused(t *testing.T) {
	addr := closedAddress(t)
	config := testConfig("http://"+addr+"/solr", "http://"+addr+"/other")
	config.RetryTotal = 1
	client, err := NewClient(config)
	require.NoError(t, err)

	requests := []Request{
		{Method: http.MethodGet, Template: SearchURL},
		{Method: http.MethodGet, Template: ReloadURL, Role: Follower},
		{Method: http.MethodPost, Template: UpdateURL, XML: deleteAllPayload},
		{Method: http.MethodPut, Template: SynonymsURL + "/all", JSON: map[string][]string{}},
	}

	for _, req := range requests {
		t.Run(req.Method+" "+req.Template, func(t *testing.T) {
			_, err := client.Dispatch(context.Background(), req)
			solrErr := AsSolrError(err)
			require.NotNil(t, solrErr)
			assert.Equal(t, KindConnection, solrErr.Kind)
			assert.Equal(t, http.StatusGatewayTimeout, solrErr.StatusCode)
			assert.Equal(t, MsgConnectionError, solrErr.Message)
		})
	}
}

// TestDispatchConnectionDropped verifies that a connection closed by the node is a connection error
func TestDispatchConnectionDropped(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		hijacker, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hijacker.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})
	client := newTestClient(t, node, nil, 2)

	_, err := client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
	solrErr := AsSolrError(err)
	assert.Equal(t, KindConnection, solrErr.Kind)
	assert.Equal(t, http.StatusGatewayTimeout, solrErr.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

// TestDispatchTimeout verifies that a read timeout is reported as an unexpected error
func TestDispatchTimeout(t *testing.T) {
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client := newTestClient(t, node, nil, 0)

	_, err := client.Dispatch(context.Background(), Request{
		Method:   http.MethodGet,
		Template: SearchURL,
		Timeout:  50 * time.Millisecond,
	})
	solrErr := AsSolrError(err)
	assert.Equal(t, KindUnexpected, solrErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, solrErr.StatusCode)
	assert.Equal(t, MsgRequestError, solrErr.Message)
}

// TestDispatchPrecondition verifies that invalid method/body combinations fail without sending anything
func TestDispatchPrecondition(t *testing.T) {
	node := newMockSolr(t, nil)
	client := newTestClient(t, node, nil, 3)

	tests := []struct {
		name string
		req  Request
	}{
		{"put without body", Request{Method: http.MethodPut, Template: SynonymsURL}},
		{"post without body", Request{Method: http.MethodPost, Template: UpdateURL}},
		{"put with xml", Request{Method: http.MethodPut, Template: UpdateURL, XML: "<delete/>"}},
		{"get with json", Request{Method: http.MethodGet, Template: SearchURL, JSON: map[string]any{"a": 1}}},
		{"json and xml", Request{Method: http.MethodPost, Template: UpdateURL, JSON: []any{}, XML: "<delete/>"}},
		{"nil map is no body", Request{Method: http.MethodPost, Template: SearchURL, JSON: map[string]any(nil)}},
		{"unsupported method", Request{Method: http.MethodDelete, Template: UpdateURL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Dispatch(context.Background(), tt.req)
			solrErr := AsSolrError(err)
			require.NotNil(t, solrErr)
			assert.Equal(t, KindPrecondition, solrErr.Kind)
			assert.Equal(t, http.StatusInternalServerError, solrErr.StatusCode)
			assert.Equal(t, MsgInvalidRequest, solrErr.Message)
		})
	}
	assert.Empty(t, node.received())
}

// TestDispatchEncoding verifies the wire encoding for every supported combination
func TestDispatchEncoding(t *testing.T) {
	node := newMockSolr(t, nil)
	client := newTestClient(t, node, nil, 0)
	ctx := context.Background()

	// GET with params
	_, err := client.Dispatch(ctx, Request{
		Method:   http.MethodGet,
		Template: ReplicationURL,
		Params:   url.Values{"command": {"details"}},
	})
	require.NoError(t, err)
	got := node.last(t)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/solr/leader_core/replication", got.Path)
	assert.Equal(t, "details", got.Query.Get("command"))
	assert.Empty(t, got.Body)

	// POST json
	_, err = client.Dispatch(ctx, Request{Method: http.MethodPost, Template: SearchURL, JSON: map[string]any{"query": "x"}})
	require.NoError(t, err)
	got = node.last(t)
	assert.Equal(t, ContentTypeJSON, got.ContentType)
	assert.JSONEq(t, `{"query":"x"}`, got.Body)

	// PUT json
	_, err = client.Dispatch(ctx, Request{Method: http.MethodPut, Template: SynonymsURL + "/all", JSON: map[string][]string{"a": {"b"}}})
	require.NoError(t, err)
	got = node.last(t)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, ContentTypeJSON, got.ContentType)
	assert.JSONEq(t, `{"a":["b"]}`, got.Body)

	// POST xml
	_, err = client.Dispatch(ctx, Request{Method: http.MethodPost, Template: UpdateURL, XML: deleteAllPayload})
	require.NoError(t, err)
	got = node.last(t)
	assert.Equal(t, ContentTypeXML, got.ContentType)
	assert.Equal(t, deleteAllPayload, got.Body)
	assert.Equal(t, "true", got.Query.Get("commit"))
	assert.Equal(t, "json", got.Query.Get("wt"))
}

// TestDispatchRetryBackoff verifies the exponential backoff between attempts
func TestDispatchRetryBackoff(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 3 {
			writeSolrError(w, http.StatusBadGateway, "bad gateway")
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	config := testConfig(node.baseURL(), node.baseURL())
	config.RetryTotal = 3
	config.RetryBackoffFactor = 5
	client, err := NewClient(config)
	require.NoError(t, err)
	sleeps := recordSleeps(client)

	_, err = client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, 10 * time.Second, 20 * time.Second}, *sleeps)
}

// TestDispatchRetryAfter verifies that a Retry-After header replaces the backoff
func TestDispatchRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			writeSolrError(w, http.StatusTooManyRequests, "slow down")
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	client := newTestClient(t, node, nil, 2)
	sleeps := recordSleeps(client)

	_, err := client.Dispatch(context.Background(), Request{Method: http.MethodGet, Template: SearchURL})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, *sleeps)
}

// TestDispatchCanceledContext verifies that a canceled context stops retrying
func TestDispatchCanceledContext(t *testing.T) {
	var attempts atomic.Int32
	node := newMockSolr(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		writeSolrError(w, http.StatusServiceUnavailable, "busy")
	})
	client := newTestClient(t, node, nil, 5)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := client.Dispatch(ctx, Request{Method: http.MethodGet, Template: SearchURL})
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

// TestDispatchWithRoundTripper verifies that a shared round tripper is used for every call
func TestDispatchWithRoundTripper(t *testing.T) {
	node := newMockSolr(t, nil)
	transport := &countingTransport{next: http.DefaultTransport}

	config := testConfig(node.baseURL(), node.baseURL())
	client, err := NewClient(config, WithRoundTripper(transport))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, client.Ping(context.Background(), Leader))
	}
	assert.Equal(t, int32(3), transport.calls.Load())
}

// TestDispatchRateLimit verifies that the rate limiter does not reject requests
func TestDispatchRateLimit(t *testing.T) {
	node := newMockSolr(t, nil)
	config := testConfig(node.baseURL(), node.baseURL())
	config.MaxRequestsPerSecond = 1000
	client, err := NewClient(config)
	require.NoError(t, err)
	require.NotNil(t, client.limiter)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.Ping(context.Background(), Follower))
	}
	assert.Len(t, node.received(), 5)
}

// countingTransport counts the round trips it forwards
type countingTransport struct {
	next  http.RoundTripper
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(req)
}
