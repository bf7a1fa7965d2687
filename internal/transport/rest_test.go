package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

func TestNewRESTTransport_Defaults(t *testing.T) {
	tr := NewRESTTransport(nil)

	assert.Equal(t, types.DefaultBaseURL, tr.BaseURL())
	assert.Equal(t, "http://localhost:8547", tr.AuthBaseURL())
	assert.NotNil(t, tr.httpClient.Jar)
	assert.NotNil(t, tr.Store())
	assert.Nil(t, tr.retryClient)
	assert.Equal(t, types.DefaultRefreshTimeout, tr.refreshTimeout)
}

func TestNewRESTTransport_TrimsAndOverrides(t *testing.T) {
	tr := NewRESTTransport(&Options{
		BaseURL:     "https://api.example.com/v1/",
		AuthBaseURL: "https://auth.example.com/",
		Headers:     map[string]string{"X-Client": "cli"},
	})

	assert.Equal(t, "https://api.example.com/v1", tr.BaseURL())
	assert.Equal(t, "https://auth.example.com", tr.AuthBaseURL())
	assert.Equal(t, "cli", tr.headers["X-Client"])
	assert.Equal(t, types.UserAgent, tr.headers["User-Agent"])
}

func TestDo_FormBodyAndHeaders(t *testing.T) {
	var got *http.Request
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		writeJSON(w, http.StatusOK, map[string]interface{}{"available_slots": []interface{}{}})
	}))
	defer server.Close()

	store := session.NewTokenStore(nil, nil)
	store.Set(context.Background(), types.Session{AccessToken: "abc"})
	tr := NewRESTTransport(&Options{BaseURL: server.URL, Store: store})

	form := url.Values{}
	form.Set("VisitDate", "2030-01-02")
	form.Set("PartySize", "2")
	err := tr.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/Restaurant/R/AvailabilitySearch", Form: form}, nil)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/Restaurant/R/AvailabilitySearch", got.URL.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer abc", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, types.UserAgent, got.Header.Get("User-Agent"))
	assert.Equal(t, "PartySize=2&VisitDate=2030-01-02", body)
}

func TestDo_JSONBodyAnonymous(t *testing.T) {
	var got *http.Request
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		writeJSON(w, http.StatusOK, types.TokenResponse{AccessToken: "t", UserType: "customer"})
	}))
	defer server.Close()

	store := session.NewTokenStore(nil, nil)
	store.Set(context.Background(), types.Session{AccessToken: "stale"})
	tr := NewRESTTransport(&Options{BaseURL: server.URL + "/api", Store: store})

	var resp types.TokenResponse
	err := tr.Do(context.Background(), &Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		JSON:      map[string]string{"email": "a@b.co"},
		Auth:      true,
		Anonymous: true,
	}, &resp)

	require.NoError(t, err)
	assert.Equal(t, "/auth/login", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.JSONEq(t, `{"email":"a@b.co"}`, body)
	assert.Equal(t, "t", resp.AccessToken)
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{BaseURL: server.URL})
	require.NoError(t, tr.Do(context.Background(), &Request{Method: http.MethodPatch, Path: "/x"}, &struct{}{}))
	assert.Empty(t, auth)
}

func TestDo_NetworkError(t *testing.T) {
	tr := NewRESTTransport(&Options{BaseURL: "http://127.0.0.1:1"})

	err := tr.Do(context.Background(), &Request{Path: "/x"}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNetwork))
}

func TestDo_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := NewRESTTransport(&Options{BaseURL: server.URL}).Do(ctx, &Request{Path: "/slow"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_RetryConfigRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))
	defer server.Close()

	tr := NewRESTTransport(&Options{
		BaseURL:     server.URL,
		RetryConfig: &types.RetryConfig{MaxRetries: 3, RetryWait: time.Millisecond, MaxWait: 2 * time.Millisecond},
	})

	var out map[string]string
	require.NoError(t, tr.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/x", Form: url.Values{"a": {"b"}}}, &out))
	assert.Equal(t, "yes", out["ok"])
	assert.EqualValues(t, 3, hits.Load())
}

func TestDo_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewRESTTransport(&Options{BaseURL: server.URL}).Do(context.Background(), &Request{Path: "/x"}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrServerError))
	assert.Contains(t, err.Error(), "Bad Gateway")
	assert.EqualValues(t, 1, hits.Load())
}

func TestDo_Hooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Booking not found"})
	}))
	defer server.Close()

	var requests, responses, failures int
	tr := NewRESTTransport(&Options{
		BaseURL: server.URL,
		Hooks: &types.Hooks{
			OnRequest:  func(ctx context.Context, req *http.Request) { requests++ },
			OnResponse: func(ctx context.Context, resp *http.Response, d time.Duration) { responses++ },
			OnError:    func(ctx context.Context, err error) { failures++ },
		},
	})

	err := tr.Do(context.Background(), &Request{Path: "/Restaurant/R/Booking/NOPE"}, nil)

	require.Error(t, err)
	var apiErr *types.Error
	require.True(t, errors.As(err, &apiErr))
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, responses)
	assert.Equal(t, 1, failures)
}

func TestHandleHTTPError_Taxonomy(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		sentinel   error
		code       string
		detail     string
	}{
		{"401 invalid credentials", 401, `{"detail":"Invalid credentials"}`, types.ErrNotAuthenticated, "UNAUTHORIZED", "Invalid credentials"},
		{"403", 403, ``, types.ErrForbidden, "FORBIDDEN", ""},
		{"404 booking", 404, `{"detail":"Booking not found"}`, types.ErrNotFound, "NOT_FOUND", "Booking not found"},
		{"400 conflict", 400, `{"detail":"Customer already exists"}`, types.ErrValidation, "VALIDATION_ERROR", "Customer already exists"},
		{"422 field errors", 422, `{"detail":[{"loc":["body","PartySize"],"msg":"field required"},{"loc":["body","VisitDate"],"msg":"invalid date"}]}`, types.ErrValidation, "VALIDATION_ERROR", "PartySize: field required; VisitDate: invalid date"},
		{"429", 429, `{"message":"slow down"}`, types.ErrRateLimited, "RATE_LIMITED", "slow down"},
		{"408", 408, ``, types.ErrTimeout, "TIMEOUT", ""},
		{"504", 504, ``, types.ErrTimeout, "TIMEOUT", ""},
		{"500 with error key", 500, `{"error":"Database connection failed"}`, types.ErrServerError, "SERVER_ERROR", "Database connection failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleHTTPError(tt.statusCode, []byte(tt.body))

			var apiErr *types.Error
			require.True(t, errors.As(err, &apiErr))
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
			if tt.detail != "" {
				assert.Contains(t, err.Error(), tt.detail)
			}
		})
	}
}

func TestHandleHTTPError_ServerError_IncludesStatusCodeDescription(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		expectedDesc string
	}{
		{"500 Internal Server Error", 500, "Internal Server Error"},
		{"502 Bad Gateway", 502, "Bad Gateway"},
		{"503 Service Unavailable", 503, "Service Unavailable"},
		{"525 SSL Handshake Failed", 525, "SSL Handshake Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleHTTPError(tt.statusCode, []byte(`<html>error page</html>`))

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedDesc)
			assert.True(t, errors.Is(err, types.ErrServerError))
		})
	}
}

func TestHandleHTTPError_UnknownStatus(t *testing.T) {
	err := handleHTTPError(418, nil)
	assert.EqualError(t, err, "HTTP error: 418")
}
