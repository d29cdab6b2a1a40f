package solr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordedRequest is a request received by a mockSolr node
type recordedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        string
}

// mockSolr is a fake solr node that records every request it receives
type mockSolr struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

// newMockSolr starts a fake solr node. respond is called for every request,
// if it is nil the node answers with 200 and an empty json object.
func newMockSolr(t *testing.T, respond http.HandlerFunc) *mockSolr {
	t.Helper()
	m := &mockSolr{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.Query(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		m.mu.Unlock()

		if respond == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"responseHeader":{"status":0}}`)
			return
		}
		respond(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// baseURL returns the solr base url of the node
func (m *mockSolr) baseURL() string {
	return m.URL + "/solr"
}

// received returns a copy of all recorded requests
func (m *mockSolr) received() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.requests...)
}

// last returns the last recorded request
func (m *mockSolr) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := m.received()
	require.NotEmpty(t, reqs, "no request received")
	return reqs[len(reqs)-1]
}

// testConfig returns a config for the given leader and follower urls without backoff
func testConfig(leaderURL, followerURL string) ClientConfig {
	config := DefaultClientConfig()
	config.LeaderURL = leaderURL
	config.FollowerURL = followerURL
	config.LeaderCore = "leader_core"
	config.FollowerCore = "follower_core"
	config.RetryBackoffFactor = 0
	config.TimeoutSecond = 5
	return config
}

// newTestClient creates a client for the given nodes. The follower may be nil,
// in which case the leader serves both roles.
func newTestClient(t *testing.T, leader, follower *mockSolr, retries int) *Client {
	t.Helper()
	if follower == nil {
		follower = leader
	}
	config := testConfig(leader.baseURL(), follower.baseURL())
	config.RetryTotal = retries
	client, err := NewClient(config)
	require.NoError(t, err)
	return client
}

// recordSleeps replaces the sleep of the client and returns the recorded durations
func recordSleeps(c *Client) *[]time.Duration {
	var mu sync.Mutex
	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return sleeps
}

// writeSolrError writes a solr style error response
func writeSolrError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"responseHeader":{"status":%d},"error":{"msg":%q,"code":%d}}`, status, msg, status)
}
