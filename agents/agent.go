package agents

import (
	"context"
	"strings"
	"time"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// Context is the ambient container the pipeline threads through every
// agent. The dossier is always present; the later fields fill in as the
// roster progresses.
type Context struct {
	Dossier   *models.Dossier
	Strategy  *models.Strategy
	Directive *models.Directive
	Draft     *models.SceneDraft
	Sequence  *models.SequenceArtifact

	// DesignedBoxes is the designer's raw output, staged here until the
	// assembler projects it onto the timeline.
	DesignedBoxes []models.Box

	Board    *Blackboard
	Observer ports.Observer
}

// Say emits a dialogue event on behalf of an agent.
func (c *Context) Say(agent, role, message string, kind models.DialogueType) {
	c.Observer.Dialogue(models.DialogueEvent{
		Agent:     agent,
		Role:      role,
		Message:   message,
		Type:      kind,
		Timestamp: time.Now(),
	})
}

// Agent is one step of the roster: a function from Context to Context,
// mutating the run state in place.
type Agent interface {
	Name() string
	Execute(ctx context.Context, run *Context) error
}

// completeJSON runs one JSON-mode completion and decodes the result. The
// raw completion text is returned alongside so callers can preview it in
// errors. A malformed response, whether the call or the decode tripped, is
// retried exactly once with a strengthened system directive; a second
// failure is fatal for the calling agent.
func completeJSON[T any](ctx context.Context, backend ports.GenerativeBackend, req ports.CompletionRequest) (*T, string, error) {
	req.JSONMode = true
	raw, err := backend.Completion(ctx, req)
	var out *T
	if err == nil {
		out, err = ai.Unmarshal[T](raw)
	}
	if err != nil && errors.Is(err, errors.CodeMalformedResponse) {
		retry := req
		retry.SystemInstruction += ai.StrengthenedJSONDirective
		raw, err = backend.Completion(ctx, retry)
		if err != nil {
			return nil, raw, err
		}
		out, err = ai.Unmarshal[T](raw)
	}
	if err != nil {
		return nil, raw, err
	}
	return out, raw, nil
}

// priorFindings renders the blackboard log for prompt injection, oldest
// first. Every agent after the researcher feeds this into its prompt so
// earlier findings are visible to later reasoning.
func priorFindings(run *Context) string {
	notes := run.Board.Notes()
	if len(notes) == 0 {
		return "(none yet)"
	}
	return strings.Join(notes, "\n")
}
