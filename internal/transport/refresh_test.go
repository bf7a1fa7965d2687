package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/tablebook-go/internal/session"
	"github.com/eshaffer321/tablebook-go/internal/storage"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

func get(path string) *Request {
	return &Request{Method: http.MethodGet, Path: path}
}

// waitForQueue blocks until the refresh queue holds n requests
func waitForQueue(t *testing.T, tr *RESTTransport, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		tr.cycle.mu.Lock()
		defer tr.cycle.mu.Unlock()
		return len(tr.cycle.queue) == n
	}, 2*time.Second, time.Millisecond)
}

func loginRequest() *Request {
	return &Request{
		Method:      http.MethodPost,
		Path:        "/auth/login",
		JSON:        map[string]string{"email": "diner@example.com", "password": "pw", "user_type": "customer"},
		Auth:        true,
		SkipRefresh: true,
		Anonymous:   true,
	}
}

func TestRefresh_ReplaysWithNewToken(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, backend := newTestTransport(api, "abc")

	var result map[string]string
	err := tr.Do(context.Background(), get("/Restaurant/TheHungryUnicorn/Booking/ABC1234"), &result)

	require.NoError(t, err)
	assert.Equal(t, "/Restaurant/TheHungryUnicorn/Booking/ABC1234", result["path"])
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Equal(t, []string{"/Restaurant/TheHungryUnicorn/Booking/ABC1234 Bearer xyz"}, api.servedRequests())

	// Store and persisted token were updated, role and email kept
	sess := tr.Store().Get()
	assert.Equal(t, "xyz", sess.AccessToken)
	assert.Equal(t, types.UserTypeCustomer, sess.UserType)
	assert.Equal(t, "diner@example.com", sess.Email)
	v, _, _ := backend.Get(context.Background(), types.TokenKey)
	assert.Equal(t, "xyz", v)

	// New requests use the refreshed token without another refresh
	require.NoError(t, tr.Do(context.Background(), get("/Restaurant/TheHungryUnicorn/Booking/XYZ9999"), nil))
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Equal(t, "/Restaurant/TheHungryUnicorn/Booking/XYZ9999 Bearer xyz", api.servedRequests()[1])
	assert.EqualValues(t, 1, tr.RefreshCount())
}

func TestRefresh_SingleRefreshForConcurrentFailures(t *testing.T) {
	const n = 8

	api := newFakeAPI(t, "abc", "xyz")
	tr, _ := newTestTransport(api, "abc")

	// Token expires server-side; every in-flight request gets a 401
	api.mu.Lock()
	api.validToken = "expired"
	api.refreshGate = make(chan struct{})
	api.mu.Unlock()

	go func() {
		// Hold the refresh until every request has seen its 401
		deadline := time.Now().Add(2 * time.Second)
		for api.unauthorized.Load() < n && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		close(api.refreshGate)
	}()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.Do(context.Background(), get(fmt.Sprintf("/Restaurant/R/Booking/REF%d", i)), nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Len(t, api.servedRequests(), n)
	for _, s := range api.servedRequests() {
		assert.Contains(t, s, "Bearer xyz")
	}
}

func TestRefresh_TwoConcurrentFailuresOneRefreshPost(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, _ := newTestTransport(api, "abc")

	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, ref := range []string{"A", "B"} {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			<-start
			assert.NoError(t, tr.Do(context.Background(), get("/Restaurant/R/Booking/"+ref), nil))
		}(ref)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestRefresh_FIFOReplay(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	api.refreshGate = make(chan struct{})
	tr, _ := newTestTransport(api, "abc")

	var wg sync.WaitGroup
	do := func(path string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.Do(context.Background(), get(path), nil))
		}()
	}

	// The trigger starts the cycle, then A, B, C join in that order
	do("/trigger")
	waitForQueue(t, tr, 1)
	do("/A")
	waitForQueue(t, tr, 2)
	do("/B")
	waitForQueue(t, tr, 3)
	do("/C")
	waitForQueue(t, tr, 4)

	close(api.refreshGate)
	wg.Wait()

	assert.Equal(t, []string{
		"/trigger Bearer xyz",
		"/A Bearer xyz",
		"/B Bearer xyz",
		"/C Bearer xyz",
	}, api.servedRequests())
	assert.EqualValues(t, 1, api.refreshCalls.Load())
}

func TestRefresh_NoDoubleRetry(t *testing.T) {
	api := newFakeAPI(t, "abc", "xyz")
	api.alwaysUnauthorized = true
	tr, _ := newTestTransport(api, "abc")

	err := tr.Do(context.Background(), get("/Restaurant/R/Booking/ABC"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotAuthenticated))
	assert.False(t, errors.Is(err, types.ErrRefreshExhausted))
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.EqualValues(t, 2, api.unauthorized.Load())
	assert.Equal(t, 401, types.StatusCode(err))

	// Refresh itself succeeded, so the session holds the new token
	assert.Equal(t, "xyz", tr.Store().Token())
}

func TestRefresh_FailureRejectsAllAndClearsSession(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	api.refreshGate = make(chan struct{})
	api.refreshStatus = http.StatusUnauthorized
	tr, backend := newTestTransport(api, "abc")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tr.Do(context.Background(), get(fmt.Sprintf("/R%d", i)), nil)
		}(i)
		waitForQueue(t, tr, i+1)
	}
	close(api.refreshGate)
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrRefreshExhausted))
		// The original 401 is surfaced as well
		assert.True(t, errors.Is(err, types.ErrNotAuthenticated))

		var refreshErr *types.RefreshError
		require.True(t, errors.As(err, &refreshErr))
		assert.NotNil(t, refreshErr.Original)
	}

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Empty(t, api.servedRequests())
	assert.False(t, tr.Store().Get().Authenticated())
	assert.Empty(t, tr.Store().Get().Email)
	assert.Equal(t, 0, backend.Len())
}

func TestRefresh_EmptyTokenIsFailure(t *testing.T) {
	api := newFakeAPI(t, "xyz", "")
	tr, _ := newTestTransport(api, "abc")

	err := tr.Do(context.Background(), get("/R"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRefreshExhausted))
	assert.Contains(t, err.Error(), "no access token")
	assert.Empty(t, tr.Store().Token())
}

func TestRefresh_NetworkFailureIsFailure(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, _ := newTestTransport(api, "abc")
	// Protected routes answer from the fake, refresh goes nowhere
	tr.authBaseURL = "http://127.0.0.1:1"

	err := tr.Do(context.Background(), get("/R"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRefreshExhausted))
	assert.True(t, errors.Is(err, types.ErrNetwork))
	assert.Empty(t, tr.Store().Token())
}

func TestRefresh_NonAuthErrorsPassThrough(t *testing.T) {
	api := newFakeAPI(t, "abc", "xyz")
	tr, _ := newTestTransport(api, "abc")

	err := tr.Do(context.Background(), get("/Restaurant/R/Booking/missing"), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Contains(t, err.Error(), "Booking not found")
	assert.EqualValues(t, 0, api.refreshCalls.Load())
}

func TestRefresh_SkipRefreshPassesThrough(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, _ := newTestTransport(api, "abc")

	err := tr.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/R", SkipRefresh: true}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNotAuthenticated))
	assert.EqualValues(t, 0, api.refreshCalls.Load())
	assert.Equal(t, "abc", tr.Store().Token())
}

func TestRefresh_UsesLoginCookie(t *testing.T) {
	api := newFakeAPI(t, "abc", "xyz")
	api.requireCookie = true
	tr, _ := newTestTransport(api, "")

	var login types.TokenResponse
	require.NoError(t, tr.Do(context.Background(), loginRequest(), &login))
	tr.Store().SetToken(context.Background(), login.AccessToken)

	// Server rotates; the cookie from login authenticates the refresh
	api.mu.Lock()
	api.validToken = "rotated"
	api.nextToken = "xyz"
	api.mu.Unlock()

	require.NoError(t, tr.Do(context.Background(), get("/R"), nil))
	assert.Equal(t, "xyz", tr.Store().Token())
}

func TestRefresh_CancelledWaiterDoesNotBlockCycle(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	api.refreshGate = make(chan struct{})
	tr, _ := newTestTransport(api, "abc")

	triggerDone := make(chan error, 1)
	go func() {
		triggerDone <- tr.Do(context.Background(), get("/trigger"), nil)
	}()
	waitForQueue(t, tr, 1)

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		waiterDone <- tr.Do(ctx, get("/waiter"), nil)
	}()
	waitForQueue(t, tr, 2)

	cancel()
	assert.ErrorIs(t, <-waiterDone, context.Canceled)

	close(api.refreshGate)
	assert.NoError(t, <-triggerDone)
	assert.Equal(t, []string{"/trigger Bearer xyz"}, api.servedRequests())

	// The cycle went back to idle
	tr.cycle.mu.Lock()
	assert.False(t, tr.cycle.refreshing)
	assert.Empty(t, tr.cycle.queue)
	tr.cycle.mu.Unlock()
}

func TestRefresh_RotatedTokenReplaysWithoutRefresh(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, _ := newTestTransport(api, "xyz")

	// A 401 for a token that has since been replaced replays directly
	c, err := tr.prepare(get("/late"))
	require.NoError(t, err)
	body, err := tr.recover(context.Background(), c, "abc", nil)

	require.NoError(t, err)
	assert.Contains(t, string(body), "/late")
	assert.EqualValues(t, 0, api.refreshCalls.Load())
	assert.True(t, c.retried)
}

func TestRefresh_LoginCookieSurvivesReload(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, "abc", "xyz")
	api.requireCookie = true
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewRESTTransport(&Options{
		BaseURL: api.baseURL(),
		Store:   session.NewTokenStore(storage.NewFileStore(path), nil),
	})
	var login types.TokenResponse
	require.NoError(t, first.Do(ctx, loginRequest(), &login))
	first.Store().Set(ctx, types.Session{AccessToken: login.AccessToken, UserType: types.UserTypeCustomer, Email: "diner@example.com"})

	// A later process loads the same session file
	store := session.NewTokenStore(storage.NewFileStore(path), nil)
	require.Equal(t, "abc", store.Load(ctx).AccessToken)
	second := NewRESTTransport(&Options{BaseURL: api.baseURL(), Store: store})

	api.mu.Lock()
	api.validToken = "rotated"
	api.mu.Unlock()

	require.NoError(t, second.Do(ctx, get("/R"), nil))
	assert.Equal(t, "xyz", second.Store().Token())
	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Equal(t, []string{"/R Bearer xyz"}, api.servedRequests())
}

func TestRefresh_LogoutDuringRefreshStaysLoggedOut(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	api.refreshGate = make(chan struct{})
	tr, backend := newTestTransport(api, "abc")

	done := make(chan error, 1)
	go func() {
		done <- tr.Do(context.Background(), get("/R"), nil)
	}()
	waitForQueue(t, tr, 1)

	tr.Store().Clear(context.Background())
	close(api.refreshGate)

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRefreshExhausted))
	assert.True(t, errors.Is(err, types.ErrNotAuthenticated))

	assert.EqualValues(t, 1, api.refreshCalls.Load())
	assert.Empty(t, api.servedRequests())
	assert.Empty(t, tr.Store().Token())
	assert.Equal(t, 0, backend.Len())
}

func TestRefresh_EndedSessionPassesThrough(t *testing.T) {
	api := newFakeAPI(t, "xyz", "xyz")
	tr, _ := newTestTransport(api, "")

	// Sent with a token, answered after that session was cleared
	original := fmt.Errorf("late: %w", types.ErrNotAuthenticated)
	c, err := tr.prepare(get("/late"))
	require.NoError(t, err)
	_, err = tr.recover(context.Background(), c, "abc", original)

	assert.Equal(t, original, err)
	assert.EqualValues(t, 0, api.refreshCalls.Load())

	tr.cycle.mu.Lock()
	assert.False(t, tr.cycle.refreshing)
	tr.cycle.mu.Unlock()
}
