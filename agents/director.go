package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

const (
	directorName = "Director"
	directorRole = "Executive Producer"

	producerRole = "Creative Producer"
	cmoRole      = "CMO"
)

// Director chairs the boardroom protocol: three strictly-ordered turns
// (propose, critique, synthesize) that produce the run's executive
// directive. The protocol never retries across turns; a failed turn aborts
// the boardroom.
type Director struct {
	backend ports.GenerativeBackend
	log     *logrus.Logger
}

// NewDirector creates the boardroom chair.
func NewDirector(backend ports.GenerativeBackend, log *logrus.Logger) *Director {
	return &Director{backend: backend, log: log}
}

func (d *Director) Name() string { return directorName }

// proposeResult is the Creative Producer's turn output.
type proposeResult struct {
	Hooks []models.HookProposal `json:"hooks"`
}

// critiqueResult is the CMO's turn output.
type critiqueResult struct {
	SelectedHook   string   `json:"selectedHook"`
	StrategicLogic string   `json:"strategicLogic"`
	Edits          []string `json:"edits"`
}

// Execute runs the three boardroom turns and sets the directive.
func (d *Director) Execute(ctx context.Context, run *Context) error {
	// Turn 1: Propose.
	proposals, err := d.propose(ctx, run)
	if err != nil {
		return errors.BoardroomFailure("propose", err)
	}
	if len(proposals.Hooks) == 0 {
		return errors.BoardroomFailure("propose", fmt.Errorf("no hooks proposed"))
	}
	run.Say(directorName, producerRole, describeProposals(proposals.Hooks), models.DialogueDebate)

	// Turn 2: Critique.
	critique, err := d.critique(ctx, run, proposals.Hooks)
	if err != nil {
		return errors.BoardroomFailure("critique", err)
	}
	selected := critique.SelectedHook
	if !isProposed(proposals.Hooks, selected) {
		// Deterministic tie-break: an off-list pick falls back to the
		// first proposal.
		selected = proposals.Hooks[0].Title
	}
	run.Say(directorName, cmoRole,
		fmt.Sprintf("Selected hook: %q. %s", selected, critique.StrategicLogic),
		models.DialogueDebate)

	// Turn 3: Synthesize. Pure function, no model call.
	directive := synthesize(selected, critique.Edits, run.Strategy.Angle, run.Dossier.VisualDNA)
	run.Directive = &directive
	run.Say(directorName, directorRole,
		fmt.Sprintf("Directive locked: open with %q. Final vibe: %s", directive.SelectedHook, directive.FinalVibe),
		models.DialogueDebate)

	run.Board.Record(directorName, directorRole,
		fmt.Sprintf("Boardroom concluded. Hook %q with %d edits.", directive.SelectedHook, len(directive.Edits)),
		&directive)
	return nil
}

func (d *Director) propose(ctx context.Context, run *Context) (*proposeResult, error) {
	prompt := ai.Render(ai.BoardroomProposePrompt, map[string]string{
		"VISUAL_DNA":     run.Dossier.VisualDNA,
		"PRIOR_FINDINGS": priorFindings(run),
	})
	out, _, err := completeJSON[proposeResult](ctx, d.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.BoardroomProposeSystem,
	})
	return out, err
}

func (d *Director) critique(ctx context.Context, run *Context, hooks []models.HookProposal) (*critiqueResult, error) {
	proposalsJSON, _ := json.MarshalIndent(hooks, "", "  ")
	prompt := ai.Render(ai.BoardroomCritiquePrompt, map[string]string{
		"PROPOSALS":       string(proposalsJSON),
		"ANGLE":           run.Strategy.Angle,
		"TARGET_AUDIENCE": run.Strategy.TargetAudience,
	})
	out, _, err := completeJSON[critiqueResult](ctx, d.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.BoardroomCritiqueSystem,
	})
	return out, err
}

// synthesize combines the critique into the final directive.
func synthesize(selectedHook string, edits []string, angle, visualDNA string) models.Directive {
	if edits == nil {
		edits = []string{}
	}
	return models.Directive{
		SelectedHook: selectedHook,
		Edits:        edits,
		FinalVibe:    fmt.Sprintf("Combine %s with the visual depth of %s", angle, visualDNA),
	}
}

func isProposed(hooks []models.HookProposal, title string) bool {
	for _, h := range hooks {
		if h.Title == title {
			return true
		}
	}
	return false
}

func describeProposals(hooks []models.HookProposal) string {
	titles := make([]string, len(hooks))
	for i, h := range hooks {
		titles[i] = h.Title
	}
	return "Pitching hooks: " + strings.Join(titles, " | ")
}
