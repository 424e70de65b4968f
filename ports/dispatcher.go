package ports

import (
	"context"
	"fmt"
)

// Priority selects the pacing gap before a dispatched call. It is advisory
// only: it never changes queue position.
type Priority int

const (
	PriorityAgent Priority = iota
	PriorityUser
)

func (p Priority) String() string {
	if p == PriorityUser {
		return "user"
	}
	return "agent"
}

// DispatchCall performs one backend request against the given region and
// model. The dispatcher retries the same call on quota and transport
// failures, so the closure must be safe to re-run.
type DispatchCall func(ctx context.Context, region, model string) error

// DispatchOpts carries per-call dispatch parameters. FallbackModel, when
// non-empty, is tried once after the primary model exhausts its quota
// retries; only completion calls set it.
type DispatchOpts struct {
	Priority      Priority
	Model         string
	FallbackModel string
}

// Dispatcher is the single choke point for outbound backend calls: at most
// one request is in flight at any instant, and submission order is
// completion order.
type Dispatcher interface {
	Dispatch(ctx context.Context, opts DispatchOpts, call DispatchCall) error
}

// StatusError reports an HTTP-level failure from the backend so the
// dispatcher can classify it (429 vs 5xx vs terminal).
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// IsRateLimited reports whether err is a 429-class backend failure.
func IsRateLimited(err error) bool {
	var se *StatusError
	for err != nil {
		if s, ok := err.(*StatusError); ok {
			se = s
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return se != nil && se.Code == 429
}

// IsRetryable reports whether err is a transient transport failure worth
// retrying (5xx or network-level).
func IsRetryable(err error) bool {
	var se *StatusError
	for e := err; e != nil; {
		if s, ok := e.(*StatusError); ok {
			se = s
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if se != nil {
		return se.Code >= 500
	}
	return false
}
