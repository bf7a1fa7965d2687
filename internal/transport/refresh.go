package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/pkg/errors"

	"github.com/eshaffer321/tablebook-go/internal/types"
)

const refreshEndpoint = "/auth/refresh"

var errSessionEnded = errors.New("session ended during refresh")

// refreshCycle is the per-transport refresh state.
// At most one refresh is in flight; every 401 seen while it runs joins queue.
type refreshCycle struct {
	mu         sync.Mutex
	refreshing bool
	queue      []*pendingRequest
}

// pendingRequest is a call waiting on the outcome of the in-flight refresh
type pendingRequest struct {
	ctx      context.Context
	call     *call
	original error
	done     chan outcome
}

type outcome struct {
	body []byte
	err  error
}

// recover handles a 401 for a call that has not been retried yet.
// staleToken is the token the failed send carried.
func (t *RESTTransport) recover(ctx context.Context, c *call, staleToken string, original error) ([]byte, error) {
	c.retried = true

	p := &pendingRequest{
		ctx:      ctx,
		call:     c,
		original: original,
		done:     make(chan outcome, 1),
	}

	t.cycle.mu.Lock()
	if t.cycle.refreshing {
		t.cycle.queue = append(t.cycle.queue, p)
		t.cycle.mu.Unlock()
		return p.wait()
	}

	current := t.store.Token()

	// A cycle finished between our send and its 401: the token has already been replaced
	if current != "" && current != staleToken {
		t.cycle.mu.Unlock()
		if t.logger != nil {
			t.logger.Debug("Replaying with rotated token", "url", c.url)
		}
		resp, err := t.send(ctx, c)
		if err != nil {
			return nil, err
		}
		return resp.result()
	}

	// The session we sent with ended meanwhile (failed refresh or logout)
	if current == "" && staleToken != "" {
		t.cycle.mu.Unlock()
		return nil, original
	}

	t.cycle.refreshing = true
	t.cycle.queue = append(t.cycle.queue, p)
	t.cycle.mu.Unlock()

	t.runCycle(ctx, staleToken)
	return p.wait()
}

// wait blocks until the cycle resolves the request or ctx ends.
// done is buffered so the cycle never blocks on an abandoned waiter.
func (p *pendingRequest) wait() ([]byte, error) {
	select {
	case out := <-p.done:
		return out.body, out.err
	case <-p.ctx.Done():
		return nil, p.ctx.Err()
	}
}

// runCycle performs the single refresh call, then resolves every queued request in FIFO order.
// staleToken is the token the triggering request carried.
func (t *RESTTransport) runCycle(ctx context.Context, staleToken string) {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout)
	defer cancel()

	token, err := t.refresh(refreshCtx)
	if err != nil {
		t.store.Clear(refreshCtx)

		rejected := t.drain(func(p *pendingRequest) outcome {
			return outcome{err: &types.RefreshError{Cause: err, Original: p.original}}
		})

		if t.logger != nil {
			t.logger.Warn("Token refresh failed, session cleared", "error", err, "rejected", rejected)
		}
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return
	}

	// Only a session still holding the stale token takes the new one,
	// so a refresh that lands after a logout does not log back in
	if !t.store.ReplaceToken(refreshCtx, staleToken, token) && t.store.Token() == "" {
		rejected := t.drain(func(p *pendingRequest) outcome {
			return outcome{err: &types.RefreshError{Cause: errSessionEnded, Original: p.original}}
		})
		if t.logger != nil {
			t.logger.Warn("Session ended during token refresh", "rejected", rejected)
		}
		return
	}

	replayed := t.drain(func(p *pendingRequest) outcome {
		if p.ctx.Err() != nil {
			return outcome{err: p.ctx.Err()}
		}
		resp, err := t.send(p.ctx, p.call)
		if err != nil {
			return outcome{err: err}
		}
		body, err := resp.result()
		return outcome{body: body, err: err}
	})

	if t.logger != nil {
		t.logger.Info("Token refreshed", "replayed", replayed)
	}
}

// drain resolves queued requests in enqueue order until the queue stays empty,
// then marks the cycle idle. Requests that join during the drain are resolved too.
func (t *RESTTransport) drain(resolve func(*pendingRequest) outcome) int {
	n := 0
	for {
		t.cycle.mu.Lock()
		batch := t.cycle.queue
		t.cycle.queue = nil
		if len(batch) == 0 {
			t.cycle.refreshing = false
			t.cycle.mu.Unlock()
			return n
		}
		t.cycle.mu.Unlock()

		for _, p := range batch {
			p.done <- resolve(p)
			n++
		}
	}
}

// refresh exchanges the refresh cookie for a new access token
func (t *RESTTransport) refresh(ctx context.Context) (string, error) {
	t.refreshCalls.Add(1)

	if t.logger != nil {
		t.logger.Debug("Refreshing access token")
	}

	c := &call{
		method:      http.MethodPost,
		url:         t.authBaseURL + refreshEndpoint,
		skipRefresh: true,
		anonymous:   true,
	}

	var tokenResp types.TokenResponse
	resp, err := t.send(ctx, c)
	if err != nil {
		return "", errors.Wrap(err, "refresh request failed")
	}
	body, err := resp.result()
	if err != nil {
		return "", err
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", errors.Wrap(err, "failed to parse refresh response")
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("no access token in refresh response")
	}

	return tokenResp.AccessToken, nil
}
