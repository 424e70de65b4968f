// Package dispatch implements the rate-limited dispatcher: the single
// choke point for every outbound call to a generative backend.
//
// All requests ride one serialization chain, so at most one call is in
// flight at any instant and submission order is observation order on the
// backend, regardless of retry count. Pacing adapts to quota pressure
// through a penalty that rises on 429s and decays on success.
package dispatch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"reelforge/internal/errors"
	"reelforge/ports"
)

const (
	baseGapAgent = 12 * time.Second
	baseGapUser  = 6 * time.Second
	penaltyStep  = 5 * time.Second
	penaltyDecay = 2 * time.Second
	penaltyCap   = 60 * time.Second
	maxAttempts  = 5
	maxJitter    = 2 * time.Second
)

// Sleeper pauses for d or until ctx is done. Injected so tests can run the
// backoff schedule on a fake clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// Dispatcher serializes and paces backend calls. Regions rotate round-robin
// to shard quota across regional buckets; a designated fallback model takes
// one extra shot when the primary completion model runs out of quota.
type Dispatcher struct {
	regions []string
	log     *logrus.Logger

	sleep  Sleeper
	jitter func() time.Duration

	mu        sync.Mutex
	tail      chan struct{}
	penalty   time.Duration
	regionIdx int
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithSleeper replaces the real clock, for tests.
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithJitter replaces the backoff jitter source, for tests.
func WithJitter(j func() time.Duration) Option {
	return func(d *Dispatcher) { d.jitter = j }
}

// New creates a dispatcher rotating across the given regions.
func New(regions []string, log *logrus.Logger, opts ...Option) *Dispatcher {
	if len(regions) == 0 {
		regions = []string{"us-central1", "us-east5", "europe-west1"}
	}
	if log == nil {
		log = logrus.New()
	}
	sealed := make(chan struct{})
	close(sealed)
	d := &Dispatcher{
		regions: regions,
		log:     log,
		tail:    sealed,
		sleep: func(ctx context.Context, dur time.Duration) error {
			timer := time.NewTimer(dur)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Penalty returns the current adaptive penalty. Exposed for observability.
func (d *Dispatcher) Penalty() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.penalty
}

// Dispatch enqueues the call on the serialization chain and runs it with
// pacing, retry, and model fallback. Priority only shortens the pacing gap;
// it never reorders the queue.
func (d *Dispatcher) Dispatch(ctx context.Context, opts ports.DispatchOpts, call ports.DispatchCall) error {
	// Chain a segment onto the tail. The segment always settles, even when
	// the call fails or the context dies while waiting, so one bad request
	// can never wedge the queue.
	d.mu.Lock()
	prev := d.tail
	done := make(chan struct{})
	d.tail = done
	d.mu.Unlock()
	defer close(done)

	select {
	case <-prev:
	case <-ctx.Done():
		return errors.WithCode(errors.CodeAborted, ctx.Err())
	}
	if ctx.Err() != nil {
		return errors.WithCode(errors.CodeAborted, ctx.Err())
	}

	gap := baseGapAgent
	if opts.Priority == ports.PriorityUser {
		gap = baseGapUser
	}
	if err := d.sleep(ctx, gap+d.Penalty()); err != nil {
		return errors.WithCode(errors.CodeAborted, err)
	}

	err := d.attempt(ctx, opts.Model, call)
	if err != nil && errors.Is(err, errors.CodeQuotaExhausted) && opts.FallbackModel != "" {
		d.log.WithFields(logrus.Fields{
			"primary":  opts.Model,
			"fallback": opts.FallbackModel,
		}).Warn("[Dispatcher] primary model out of quota, trying fallback once")
		region := d.nextRegion()
		if fbErr := call(ctx, region, opts.FallbackModel); fbErr == nil {
			d.decayPenalty()
			return nil
		}
	}
	return err
}

// attempt runs the retry loop for a single model.
func (d *Dispatcher) attempt(ctx context.Context, model string, call ports.DispatchCall) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return errors.WithCode(errors.CodeAborted, ctx.Err())
		}
		region := d.nextRegion()
		err := call(ctx, region, model)
		if err == nil {
			d.decayPenalty()
			return nil
		}
		lastErr = err

		switch {
		case ports.IsRateLimited(err):
			d.raisePenalty()
			d.log.WithFields(logrus.Fields{
				"model":   model,
				"region":  region,
				"attempt": attempt,
				"penalty": d.Penalty(),
			}).Warn("[Dispatcher] 429 from backend, backing off")
		case ports.IsRetryable(err):
			d.log.WithFields(logrus.Fields{
				"model":   model,
				"region":  region,
				"attempt": attempt,
			}).WithError(err).Warn("[Dispatcher] transient transport failure, backing off")
		default:
			// Terminal: safety rejections, bad requests, parse failures.
			return err
		}

		if attempt < maxAttempts {
			backoff := time.Duration(1<<uint(attempt))*time.Second + d.jitter()
			if err := d.sleep(ctx, backoff); err != nil {
				return errors.WithCode(errors.CodeAborted, err)
			}
		}
	}

	if ports.IsRateLimited(lastErr) {
		return errors.QuotaExhausted(model, maxAttempts)
	}
	return errors.Transport(lastErr, maxAttempts)
}

func (d *Dispatcher) nextRegion() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	region := d.regions[d.regionIdx%len(d.regions)]
	d.regionIdx++
	return region
}

func (d *Dispatcher) raisePenalty() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.penalty += penaltyStep
	if d.penalty > penaltyCap {
		d.penalty = penaltyCap
	}
}

func (d *Dispatcher) decayPenalty() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.penalty -= penaltyDecay
	if d.penalty < 0 {
		d.penalty = 0
	}
}
