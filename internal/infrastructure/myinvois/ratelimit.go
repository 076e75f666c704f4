package myinvois

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EndpointKey identifies one throttled authority endpoint.
type EndpointKey string

const (
	EndpointLogin       EndpointKey = "login"
	EndpointSubmit      EndpointKey = "submit"
	EndpointStatus      EndpointKey = "submission-status"
	EndpointDetails     EndpointKey = "document-details"
	EndpointCancel      EndpointKey = "document-cancel"
	EndpointValidateTIN EndpointKey = "taxpayer-validate"
)

// defaultBudgets are the authority's documented per-endpoint requests/minute.
var defaultBudgets = map[EndpointKey]int{
	EndpointLogin:       12,
	EndpointSubmit:      100,
	EndpointStatus:      300,
	EndpointDetails:     125,
	EndpointCancel:      125,
	EndpointValidateTIN: 60,
}

const maxBackoff = 60 * time.Second

// Throttle enforces per-endpoint request budgets and retries throttled
// responses with exponential backoff. One instance is constructed in main and
// shared by every caller, so concurrent submissions serialize through the
// same budget; nothing is per-caller.
//
// Only 429 responses are retried, with no attempt ceiling; the authority
// eventually unblocks. Timeouts and transport errors are classified and
// surfaced, never retried here.
type Throttle struct {
	mu       sync.Mutex
	limiters map[EndpointKey]*rate.Limiter
	budgets  map[EndpointKey]int

	// test seams
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewThrottle builds a throttle with the documented budgets.
func NewThrottle() *Throttle {
	return NewThrottleWithBudgets(nil)
}

// NewThrottleWithBudgets overrides selected budgets; nil or missing keys keep
// the defaults. Tests use tiny budgets to measure spacing quickly.
func NewThrottleWithBudgets(overrides map[EndpointKey]int) *Throttle {
	budgets := make(map[EndpointKey]int, len(defaultBudgets))
	for k, v := range defaultBudgets {
		budgets[k] = v
	}
	for k, v := range overrides {
		if v > 0 {
			budgets[k] = v
		}
	}
	return &Throttle{
		limiters: make(map[EndpointKey]*rate.Limiter),
		budgets:  budgets,
		sleep:    sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
		},
	}
}

// MinInterval returns the spacing the budget imposes between calls.
func (t *Throttle) MinInterval(key EndpointKey) time.Duration {
	budget := t.budgets[key]
	if budget <= 0 {
		budget = 60
	}
	return time.Minute / time.Duration(budget)
}

func (t *Throttle) limiter(key EndpointKey) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.limiters[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(t.MinInterval(key)), 1)
	t.limiters[key] = l
	return l
}

// Do executes attempt under the endpoint's budget. It waits out the minimum
// interval, then on a 429 response reads the retry hint, backs off (hint or
// budget-derived default, jitter added, exponential growth capped at 60s)
// and tries again.
func (t *Throttle) Do(ctx context.Context, key EndpointKey, attempt func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	backoffStep := 0
	for {
		if err := t.limiter(key).Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := attempt(ctx)
		if err != nil {
			return nil, classifyTransportError(key, err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		hint := retryHint(resp)
		drainAndClose(resp)

		delay := hint
		if delay <= 0 {
			delay = t.MinInterval(key)
		}
		delay = growBackoff(delay, backoffStep)
		delay += t.jitter()
		backoffStep++

		if err := t.sleep(ctx, delay); err != nil {
			return nil, &RateLimitedError{Endpoint: string(key), RetryAfter: hint}
		}
	}
}

// retryHint reads Retry-After (delta seconds or an HTTP-date) and falls back
// to the rate-limit-reset header. Zero means no usable hint.
func retryHint(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	if v := resp.Header.Get("X-Rate-Limit-Reset"); v != "" {
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				return d
			}
		}
	}
	return 0
}

// growBackoff doubles the delay per consecutive throttle, capped at 60s.
func growBackoff(base time.Duration, step int) time.Duration {
	d := base
	for i := 0; i < step; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// classifyTransportError separates timeouts from other transport failures so
// callers can tell them apart; neither is retried automatically.
func classifyTransportError(key EndpointKey, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: string(key), Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Endpoint: string(key), Err: err}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drainAndClose(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
	}
}
