package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/time/rate"
)

var Logger = logger.GetLogger("solr")

// Response is a successful (200) response from solr
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode decodes the json body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewSolrError(KindUnexpected, http.StatusInternalServerError, MsgRequestError, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// Map decodes the json body into a generic map
func (r *Response) Map() (map[string]any, error) {
	var m map[string]any
	if err := r.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Option configures a Client
type Option func(*Client)

// WithRoundTripper makes every call use rt instead of a new transport per call.
// This allows connection reuse, timeouts and retries are still per call.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.roundTripper = rt
	}
}

// Client is the transport client for a leader/follower solr deployment.
// It is safe for concurrent use, the configuration never changes after creation.
type Client struct {
	config       ClientConfig
	policy       retryPolicy
	limiter      *rate.Limiter
	roundTripper http.RoundTripper
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new client for the given configuration
//
// Usage:
//
//	config := solr.DefaultClientConfig()
//	config.LeaderURL = "http://solr-leader:8983/solr"
//	config.FollowerURL = "http://solr-follower:8983/solr"
//	config.LeaderCore, config.FollowerCore = "names", "names"
//
//	client, err := solr.NewClient(config)
func NewClient(config ClientConfig, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solr client config: %w", err)
	}

	c := &Client{
		config: config,
		policy: newRetryPolicy(config),
		sleep:  sleepContext,
	}
	if config.MaxRequestsPerSecond > 0 {
		burst := int(config.MaxRequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.MaxRequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the client configuration
func (c *Client) Config() ClientConfig {
	return c.config
}

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// Dispatch sends the request to the node of the requested role.
// Overload statuses and connection failures are retried according to the
// configured policy. Every failure is returned as *SolrError.
func (c *Client) Dispatch(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	enc, solrErr := req.encode(c.config)
	if solrErr != nil {
		Logger.Debugf("invalid request: %v (template: %s, params: %v)", solrErr, req.Template, req.Params)
		observeRequest(req, start, solrErr)
		return nil, solrErr
	}

	// one session per call, released on every exit path
	session, release := c.newSession()
	defer release()

	var last outcome
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				last = outcome{class: classUnexpected, err: err}
				break
			}
		}

		last = c.attempt(ctx, session, enc)
		if last.class == classSuccess {
			if attempt > 0 {
				Logger.Debugf("%s %s healed after %d retries", enc.method, enc.url, attempt)
			}
			observeRequest(req, start, nil)
			return &Response{StatusCode: last.status, Header: last.header, Body: last.body}, nil
		}

		if ctx.Err() != nil || !c.policy.shouldRetry(enc.method, attempt, last) {
			break
		}

		wait := c.policy.wait(attempt+1, last)
		Logger.Debugf("%s %s attempt %d/%d failed (status: %d, err: %v), retrying in %s",
			enc.method, enc.url, attempt+1, c.policy.total+1, last.status, last.err, wait)
		observeRetry(req)

		if err := c.sleep(ctx, wait); err != nil {
			break
		}
	}

	err := last.toError()
	Logger.Debugf("%s %s failed: %v (params: %v, body: %s)", enc.method, enc.url, err, req.Params, enc.body)
	observeRequest(req, start, err)
	return nil, err
}

// attempt sends the encoded request once
func (c *Client) attempt(ctx context.Context, session *http.Client, enc *encodedRequest) outcome {
	ctx, cancel := context.WithTimeout(ctx, enc.timeout)
	defer cancel()

	var body io.Reader
	if enc.body != nil {
		body = bytes.NewReader(enc.body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, enc.method, enc.url, body)
	if err != nil {
		return outcome{class: classUnexpected, err: err}
	}
	httpRequest.Header.Set("Accept", ContentTypeJSON)
	if enc.contentType != "" {
		httpRequest.Header.Set("Content-Type", enc.contentType)
	}

	httpResponse, err := session.Do(httpRequest)
	if err != nil {
		cls, dial := classify(0, err)
		return outcome{class: cls, err: err, dialFailed: dial}
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Warningf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(httpResponse.Body)
	cls, dial := classify(httpResponse.StatusCode, err)
	return outcome{
		class:      cls,
		status:     httpResponse.StatusCode,
		header:     httpResponse.Header,
		body:       data,
		err:        err,
		dialFailed: dial,
	}
}

// newSession creates the http client for a single call and the function that releases it
func (c *Client) newSession() (*http.Client, func()) {
	if c.roundTripper != nil {
		return &http.Client{Transport: c.roundTripper}, func() {}
	}

	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: t}, t.CloseIdleConnections
}
