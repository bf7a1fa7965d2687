package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

const (
	authHeaderKey   = "Authorization"
	requestIDHeader = "X-Request-ID"
	jsonContentType = "application/json"
	formContentType = "application/x-www-form-urlencoded"
)

// RESTTransport issues requests against the booking API and the auth API.
// It attaches the current bearer token on every send and recovers from 401s
// through a single shared refresh cycle.
type RESTTransport struct {
	baseURL        string
	authBaseURL    string
	httpClient     *http.Client
	retryClient    *retryablehttp.Client
	headers        map[string]string
	store          *session.TokenStore
	logger         types.Logger
	hooks          *types.Hooks
	refreshTimeout time.Duration

	cycle        refreshCycle
	refreshCalls atomic.Int64
}

// Request describes one API call
type Request struct {
	Method string
	Path   string
	// Form is sent URL-encoded when set
	Form url.Values
	// JSON is marshalled as the body when set and Form is nil
	JSON interface{}
	// Auth routes the request to the auth base URL
	Auth bool
	// SkipRefresh passes a 401 straight through (login, register, logout)
	SkipRefresh bool
	// Anonymous omits the bearer token
	Anonymous bool
}

// call is a prepared request that can be sent more than once
type call struct {
	method      string
	url         string
	body        []byte
	contentType string
	skipRefresh bool
	anonymous   bool
	retried     bool
}

// NewRESTTransport creates a new REST transport
func NewRESTTransport(opts *Options) *RESTTransport {
	if opts == nil {
		opts = &Options{}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	if opts.AuthBaseURL == "" {
		opts.AuthBaseURL = originOf(opts.BaseURL)
	}
	opts.AuthBaseURL = strings.TrimRight(opts.AuthBaseURL, "/")

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	if opts.Store == nil {
		opts.Store = session.NewTokenStore(nil, opts.Logger)
	}

	// The refresh endpoint authenticates with the cookie set at login,
	// kept in the session's jar so it is persisted with the token
	if opts.HTTPClient.Jar == nil {
		opts.HTTPClient.Jar = opts.Store.CookieJar()
	}

	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = types.DefaultRefreshTimeout
	}

	// Create retry client if configured
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
		retryClient.Logger = nil

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		}
	}

	// Set default headers
	headers := map[string]string{
		"Accept":     jsonContentType,
		"User-Agent": types.UserAgent,
	}

	// Merge custom headers
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &RESTTransport{
		baseURL:        opts.BaseURL,
		authBaseURL:    opts.AuthBaseURL,
		httpClient:     opts.HTTPClient,
		retryClient:    retryClient,
		headers:        headers,
		store:          opts.Store,
		logger:         opts.Logger,
		hooks:          opts.Hooks,
		refreshTimeout: opts.RefreshTimeout,
	}
}

// Do sends the request and decodes a successful JSON response into result.
// result may be nil.
func (t *RESTTransport) Do(ctx context.Context, req *Request, result interface{}) error {
	c, err := t.prepare(req)
	if err != nil {
		return err
	}

	body, err := t.execute(ctx, c)
	if err != nil {
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return err
	}

	if result != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return errors.Wrap(err, "failed to unmarshal response")
		}
	}

	return nil
}

// Store returns the token store the transport reads bearer tokens from
func (t *RESTTransport) Store() *session.TokenStore {
	return t.store
}

// BaseURL returns the booking API base URL
func (t *RESTTransport) BaseURL() string {
	return t.baseURL
}

// AuthBaseURL returns the auth API base URL
func (t *RESTTransport) AuthBaseURL() string {
	return t.authBaseURL
}

// RefreshCount returns how many refresh calls this transport has issued
func (t *RESTTransport) RefreshCount() int64 {
	return t.refreshCalls.Load()
}

// prepare resolves the URL and encodes the body once so the call can be replayed
func (t *RESTTransport) prepare(req *Request) (*call, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	base := t.baseURL
	if req.Auth {
		base = t.authBaseURL
	}

	c := &call{
		method:      req.Method,
		url:         base + req.Path,
		skipRefresh: req.SkipRefresh,
		anonymous:   req.Anonymous,
	}
	if c.method == "" {
		c.method = http.MethodGet
	}

	switch {
	case req.Form != nil:
		c.body = []byte(req.Form.Encode())
		c.contentType = formContentType
	case req.JSON != nil:
		body, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request")
		}
		c.body = body
		c.contentType = jsonContentType
	}

	return c, nil
}

// execute sends the call and hands 401s to the refresh cycle
func (t *RESTTransport) execute(ctx context.Context, c *call) ([]byte, error) {
	resp, err := t.send(ctx, c)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && !c.skipRefresh && !c.retried {
		return t.recover(ctx, c, resp.token, resp.err())
	}

	return resp.result()
}

// response is the buffered outcome of one send
type response struct {
	status    int
	body      []byte
	token     string
	requestID string
}

func (r *response) err() error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	err := handleHTTPError(r.status, r.body)
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		apiErr.RequestID = r.requestID
	}
	return err
}

func (r *response) result() ([]byte, error) {
	if err := r.err(); err != nil {
		return nil, err
	}
	return r.body, nil
}

// send performs one HTTP round trip with the token current at call time
func (t *RESTTransport) send(ctx context.Context, c *call) (*response, error) {
	var body io.Reader
	if c.body != nil {
		body = bytes.NewReader(c.body)
	}

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	// Set headers
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	if c.contentType != "" {
		httpReq.Header.Set("Content-Type", c.contentType)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	// Set auth header
	var token string
	if !c.anonymous {
		token = t.store.Token()
	}
	if token != "" {
		httpReq.Header.Set(authHeaderKey, fmt.Sprintf("Bearer %s", token))
	}

	// Call request hook
	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}

	// Log request
	if t.logger != nil {
		t.logger.Debug("API request", "method", c.method, "url", c.url, "retried", c.retried, "requestId", requestID)
	}

	// Execute request
	start := time.Now()
	resp, err := t.doRequest(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	// Call response hook
	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	// Read response
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	// Log response
	if t.logger != nil {
		t.logger.Debug("API response", "status", resp.StatusCode, "duration", duration, "size", len(respBody))
	}

	return &response{
		status:    resp.StatusCode,
		body:      respBody,
		token:     token,
		requestID: requestID,
	}, nil
}

// doRequest executes the HTTP request with retry if configured
func (t *RESTTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		// Convert to retryable request
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// classifyTransportError maps a failed round trip onto the error taxonomy
func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(types.ErrTimeout, err.Error())
	}

	return errors.Wrap(types.ErrNetwork, err.Error())
}

// originOf returns scheme://host of a URL, or the input when it does not parse
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// Options for REST transport
type Options struct {
	BaseURL     string
	AuthBaseURL string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
	Store       *session.TokenStore
	// RefreshTimeout bounds each call to the refresh endpoint
	RefreshTimeout time.Duration
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
