package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"reelforge/agents"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// State is the orchestrator's lifecycle position. Transitions are strictly
// forward; failed and aborted are terminal.
type State string

const (
	StateInit             State = "init"
	StateResearching      State = "researching"
	StateStrategizing     State = "strategizing"
	StateBoardroom        State = "boardroom"
	StateDrafting         State = "drafting"
	StateDesigning        State = "designing"
	StateAssembling       State = "assembling"
	StateAwaitingApproval State = "awaiting_approval"
	StateAnchoring        State = "anchoring"
	StateFinished         State = "finished"
	StateFailed           State = "failed"
	StateAborted          State = "aborted"
)

// Result is what a run hands back: the reviewable sequence plus the
// research and strategy that produced it. An aborted or failed run returns
// zero slots; partial sequences are never surfaced.
type Result struct {
	Artifact *models.SequenceArtifact `json:"artifact,omitempty"`
	Slots    []models.Slot            `json:"slots"`
	Dossier  *models.Dossier          `json:"dossier,omitempty"`
	Strategy *models.Strategy         `json:"strategy,omitempty"`
}

// Orchestrator drives one production run through the roster, the approval
// gate, and anchoring. One orchestrator per run; it is not reusable.
type Orchestrator struct {
	backend  ports.GenerativeBackend
	anchorer *Anchorer
	log      *logrus.Logger

	mu        sync.Mutex
	state     State
	cancelFn  context.CancelFunc
	approveCh chan struct{}
	approve   sync.Once
}

// NewOrchestrator builds a single-run driver.
func NewOrchestrator(backend ports.GenerativeBackend, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		anchorer:  NewAnchorer(backend, log),
		log:       log,
		state:     StateInit,
		approveCh: make(chan struct{}),
	}
}

// State reports the current lifecycle position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Approve releases the approval gate. Safe to call more than once; only the
// first call has an effect.
func (o *Orchestrator) Approve() {
	o.approve.Do(func() { close(o.approveCh) })
}

// Cancel requests a cooperative abort: no new model work starts, in-flight
// calls run to completion, and the run terminates at the next stage
// boundary. Cancelling a run parked at the approval gate aborts it.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelFn
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the full pipeline. It blocks until the run finishes, fails,
// or aborts, which includes waiting indefinitely at the approval gate.
func (o *Orchestrator) Run(ctx context.Context, productURL, referenceVideoURL string, obs ports.Observer) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancelFn = cancel
	o.mu.Unlock()

	run := &agents.Context{
		Dossier:  models.NewDossier(productURL, referenceVideoURL),
		Board:    agents.NewBlackboard(obs.Dialogue),
		Observer: obs,
	}

	roster := []struct {
		state State
		agent agents.Agent
	}{
		{StateResearching, agents.NewResearcher(o.backend, o.log)},
		{StateStrategizing, agents.NewStrategist(o.backend, o.log)},
		{StateBoardroom, agents.NewDirector(o.backend, o.log)},
		{StateDrafting, agents.NewAssistantDirector(o.backend, o.log)},
		{StateDesigning, agents.NewGraphicsSoundDesigner(o.backend, o.log)},
	}

	for _, stage := range roster {
		if ctx.Err() != nil {
			return o.terminate(run, obs, errors.Aborted(string(stage.state)))
		}
		o.setState(stage.state, obs)
		o.log.WithFields(logrus.Fields{"state": stage.state, "agent": stage.agent.Name()}).Info("[Orchestrator] stage start")
		if err := stage.agent.Execute(ctx, run); err != nil {
			return o.terminate(run, obs, err)
		}
	}

	// Assembly is pure and cheap but still honors the abort boundary.
	if ctx.Err() != nil {
		return o.terminate(run, obs, errors.Aborted(string(StateAssembling)))
	}
	o.setState(StateAssembling, obs)
	artifact, err := Assemble(run.DesignedBoxes, run.Dossier.ProductName, run.Sequence.Title)
	if err != nil {
		return o.terminate(run, obs, err)
	}
	run.Sequence = artifact

	// The gate holds until a human approves or the run is cancelled. There
	// is no timeout; an unattended run waits forever.
	o.setState(StateAwaitingApproval, obs)
	obs.Dialogue(models.DialogueEvent{
		Agent:     "System",
		Role:      "Orchestrator",
		Message:   fmt.Sprintf("Sequence %q assembled with %d shots. Awaiting approval.", artifact.Title, len(artifact.Slots)),
		Type:      models.DialogueFinding,
		Timestamp: time.Now(),
	})
	select {
	case <-o.approveCh:
	case <-ctx.Done():
		return o.terminate(run, obs, errors.Aborted(string(StateAwaitingApproval)))
	}

	if ctx.Err() != nil {
		return o.terminate(run, obs, errors.Aborted(string(StateAnchoring)))
	}
	o.setState(StateAnchoring, obs)
	refs := o.anchorer.FetchReferences(ctx, run.Dossier)
	o.anchorer.AnchorSequence(ctx, artifact, run.Dossier, refs, obs)
	if ctx.Err() != nil {
		return o.terminate(run, obs, errors.Aborted(string(StateAnchoring)))
	}
	if err := WriteConnectiveNarrative(ctx, o.backend, artifact); err != nil {
		// The narrative is presentation glue; the sequence stands without it.
		o.log.WithError(err).Warn("[Orchestrator] connective narrative skipped")
	}

	o.setState(StateFinished, obs)
	return &Result{
		Artifact: artifact,
		Slots:    artifact.Slots,
		Dossier:  run.Dossier,
		Strategy: run.Strategy,
	}, nil
}

func (o *Orchestrator) setState(s State, obs ports.Observer) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	obs.Progress(string(s))
}

// terminate marks the run failed or aborted, emits the closing dialogue
// event, and discards any partial sequence. The dossier and strategy
// survive for inspection; slots never do.
func (o *Orchestrator) terminate(run *agents.Context, obs ports.Observer, err error) (*Result, error) {
	final := StateFailed
	if errors.Is(err, errors.CodeAborted) {
		final = StateAborted
	}
	o.setState(final, obs)
	o.log.WithError(err).WithField("state", final).Error("[Orchestrator] run terminated")
	obs.Dialogue(models.DialogueEvent{
		Agent:     "System",
		Role:      "Orchestrator",
		Message:   fmt.Sprintf("Run %s: %v", final, err),
		Type:      models.DialogueFinding,
		Timestamp: time.Now(),
	})
	return &Result{
		Slots:    []models.Slot{},
		Dossier:  run.Dossier,
		Strategy: run.Strategy,
	}, err
}
