package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/errors"
	"reelforge/ports"
)

// fakeClock records every sleep without actually waiting.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (f *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	return nil
}

func newTestDispatcher(clock *fakeClock) *Dispatcher {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(nil, log,
		WithSleeper(clock.sleep),
		WithJitter(func() time.Duration { return 0 }),
	)
}

func TestDispatchPacingGapByPriority(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)
	ok := func(ctx context.Context, region, model string) error { return nil }

	require.NoError(t, d.Dispatch(context.Background(), ports.DispatchOpts{Priority: ports.PriorityAgent}, ok))
	require.NoError(t, d.Dispatch(context.Background(), ports.DispatchOpts{Priority: ports.PriorityUser}, ok))

	require.Len(t, clock.sleeps, 2)
	assert.Equal(t, baseGapAgent, clock.sleeps[0])
	assert.Equal(t, baseGapUser, clock.sleeps[1])
}

func TestDispatchRetriesTransientThenSucceeds(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	calls := 0
	err := d.Dispatch(context.Background(), ports.DispatchOpts{Model: "gemini-2.5-pro"},
		func(ctx context.Context, region, model string) error {
			calls++
			if calls < 3 {
				return &ports.StatusError{Code: 503, Body: "overloaded"}
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Gap sleep, then exponential backoff after attempts 1 and 2.
	require.Len(t, clock.sleeps, 3)
	assert.Equal(t, 2*time.Second, clock.sleeps[1])
	assert.Equal(t, 4*time.Second, clock.sleeps[2])
	// Transient failures never move the penalty.
	assert.Equal(t, time.Duration(0), d.Penalty())
}

func TestDispatchRegionRotation(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	var regions []string
	err := d.Dispatch(context.Background(), ports.DispatchOpts{Model: "m"},
		func(ctx context.Context, region, model string) error {
			regions = append(regions, region)
			if len(regions) < 4 {
				return &ports.StatusError{Code: 500, Body: "boom"}
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"us-central1", "us-east5", "europe-west1", "us-central1"}, regions)
}

func TestDispatchPenaltyRisesOn429AndDecaysOnSuccess(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	rateLimited := func(ctx context.Context, region, model string) error {
		return &ports.StatusError{Code: 429, Body: "RESOURCE_EXHAUSTED"}
	}
	err := d.Dispatch(context.Background(), ports.DispatchOpts{Model: "gemini-2.5-pro"}, rateLimited)
	require.Error(t, err)
	assert.Equal(t, errors.CodeQuotaExhausted, errors.GetCode(err))
	assert.Equal(t, 5*penaltyStep, d.Penalty())

	// The next call waits out the accumulated penalty on top of its gap.
	clock.mu.Lock()
	clock.sleeps = nil
	clock.mu.Unlock()
	require.NoError(t, d.Dispatch(context.Background(), ports.DispatchOpts{},
		func(ctx context.Context, region, model string) error { return nil }))
	assert.Equal(t, baseGapAgent+5*penaltyStep, clock.sleeps[0])
	assert.Equal(t, 5*penaltyStep-penaltyDecay, d.Penalty())
}

func TestDispatchPenaltyCapAndFloor(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	for i := 0; i < 20; i++ {
		d.raisePenalty()
	}
	assert.Equal(t, penaltyCap, d.Penalty())

	for i := 0; i < 100; i++ {
		d.decayPenalty()
	}
	assert.Equal(t, time.Duration(0), d.Penalty())
}

func TestDispatchFallbackModelOnQuotaExhaustion(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	var models []string
	err := d.Dispatch(context.Background(), ports.DispatchOpts{
		Model:         "gemini-2.5-pro",
		FallbackModel: "gemini-2.0-flash",
	}, func(ctx context.Context, region, model string) error {
		models = append(models, model)
		if model == "gemini-2.5-pro" {
			return &ports.StatusError{Code: 429, Body: "quota"}
		}
		return nil
	})

	require.NoError(t, err)
	// Five exhausted attempts on the primary, then exactly one fallback shot.
	assert.Equal(t, []string{
		"gemini-2.5-pro", "gemini-2.5-pro", "gemini-2.5-pro", "gemini-2.5-pro", "gemini-2.5-pro",
		"gemini-2.0-flash",
	}, models)
}

func TestDispatchFallbackFailureKeepsQuotaError(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	err := d.Dispatch(context.Background(), ports.DispatchOpts{
		Model:         "gemini-2.5-pro",
		FallbackModel: "gemini-2.0-flash",
	}, func(ctx context.Context, region, model string) error {
		return &ports.StatusError{Code: 429, Body: "quota"}
	})

	require.Error(t, err)
	assert.Equal(t, errors.CodeQuotaExhausted, errors.GetCode(err))
}

func TestDispatchTerminalErrorNoRetry(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	calls := 0
	sentinel := errors.ContentRejected("SAFETY")
	err := d.Dispatch(context.Background(), ports.DispatchOpts{Model: "m"},
		func(ctx context.Context, region, model string) error {
			calls++
			return sentinel
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errors.CodeContentRejected, errors.GetCode(err))
}

func TestDispatchAbortedContextNeverCalls(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := d.Dispatch(ctx, ports.DispatchOpts{Model: "m"},
		func(ctx context.Context, region, model string) error {
			calls++
			return nil
		})

	require.Error(t, err)
	assert.Equal(t, errors.CodeAborted, errors.GetCode(err))
	assert.Equal(t, 0, calls)
}

// Submission order is observation order: concurrent dispatches land on the
// backend in the order they joined the chain, one at a time.
func TestDispatchSerializesInSubmissionOrder(t *testing.T) {
	clock := &fakeClock{}
	d := newTestDispatcher(clock)

	var mu sync.Mutex
	var observed []string
	inFlight := 0
	maxInFlight := 0

	var wg sync.WaitGroup
	var launch sync.WaitGroup
	launch.Add(1)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("call-%d", i)
		// Join the chain synchronously so submission order is deterministic,
		// then block until every caller is enqueued.
		d.mu.Lock()
		prev := d.tail
		done := make(chan struct{})
		d.tail = done
		d.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			launch.Wait()
			<-prev
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			observed = append(observed, id)
			inFlight--
			mu.Unlock()
		}()
	}
	launch.Done()
	wg.Wait()

	assert.Equal(t, []string{"call-0", "call-1", "call-2", "call-3", "call-4"}, observed)
	assert.Equal(t, 1, maxInFlight)
}
