package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/storage"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

// fakeAPI is a booking API whose protected routes accept exactly one bearer token
type fakeAPI struct {
	t *testing.T

	mu         sync.Mutex
	validToken string
	nextToken  string
	// served records "path auth-header" for every protected request answered 200
	served []string

	refreshCalls atomic.Int32
	unauthorized atomic.Int32

	// refreshGate, when set, blocks the refresh handler until closed
	refreshGate chan struct{}
	// refreshStatus overrides the refresh response status when non-zero
	refreshStatus int
	// requireCookie makes refresh demand the login cookie
	requireCookie bool
	// alwaysUnauthorized rejects every protected request
	alwaysUnauthorized bool

	server *httptest.Server
}

func newFakeAPI(t *testing.T, validToken, nextToken string) *fakeAPI {
	f := &fakeAPI{t: t, validToken: validToken, nextToken: nextToken}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", f.handleLogin)
	mux.HandleFunc("/auth/refresh", f.handleRefresh)
	mux.HandleFunc("/api/ConsumerApi/v1/", f.handleProtected)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) baseURL() string {
	return f.server.URL + "/api/ConsumerApi/v1"
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", Path: "/auth"})
	writeJSON(w, http.StatusOK, types.TokenResponse{AccessToken: f.token(), TokenType: "bearer", UserType: "customer"})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	f.mu.Lock()
	gate := f.refreshGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if f.refreshStatus != 0 {
		writeJSON(w, f.refreshStatus, map[string]string{"detail": "Invalid refresh token"})
		return
	}
	if f.requireCookie {
		if c, err := r.Cookie("refresh_token"); err != nil || c.Value != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Missing refresh cookie"})
			return
		}
	}

	f.mu.Lock()
	f.validToken = f.nextToken
	token := f.validToken
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, types.TokenResponse{AccessToken: token, TokenType: "bearer", UserType: "customer"})
}

func (f *fakeAPI) handleProtected(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	path := strings.TrimPrefix(r.URL.Path, "/api/ConsumerApi/v1")

	if f.alwaysUnauthorized || auth != "Bearer "+f.token() {
		f.unauthorized.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid or expired token"})
		return
	}

	if strings.HasSuffix(path, "/missing") {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Booking not found"})
		return
	}

	f.mu.Lock()
	f.served = append(f.served, path+" "+auth)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (f *fakeAPI) token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validToken
}

func (f *fakeAPI) servedRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.served...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestTransport builds a transport against f with the given stored session token
func newTestTransport(f *fakeAPI, token string) (*RESTTransport, *storage.MemoryStore) {
	backend := storage.NewMemoryStore()
	store := session.NewTokenStore(backend, nil)
	if token != "" {
		store.Set(context.Background(), types.Session{AccessToken: token, UserType: types.UserTypeCustomer, Email: "diner@example.com"})
	}

	return NewRESTTransport(&Options{
		BaseURL: f.baseURL(),
		Store:   store,
	}), backend
}
