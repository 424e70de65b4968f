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
	assistantName = "AssistantDirector"
	assistantRole = "Scene Planner"
)

// AssistantDirector drafts the ten-scene concept list under the executive
// directive. The draft is free-form text per scene; the designer turns it
// into production boxes later.
type AssistantDirector struct {
	backend ports.GenerativeBackend
	log     *logrus.Logger
}

// NewAssistantDirector creates the roster's drafting agent.
func NewAssistantDirector(backend ports.GenerativeBackend, log *logrus.Logger) *AssistantDirector {
	return &AssistantDirector{backend: backend, log: log}
}

func (a *AssistantDirector) Name() string { return assistantName }

// Execute drafts exactly SceneCount scene concepts. A draft with any other
// count is underspecified and fatal; there is no partial acceptance.
func (a *AssistantDirector) Execute(ctx context.Context, run *Context) error {
	run.Say(assistantName, assistantRole,
		fmt.Sprintf("Breaking the directive into %d sequential scenes anchored to real features of %s...",
			models.SceneCount, run.Dossier.ProductName),
		models.DialogueThought)

	featuresJSON, _ := json.Marshal(run.Dossier.Features)
	editsJSON, _ := json.Marshal(run.Directive.Edits)
	prompt := ai.Render(ai.AssistantPrompt, map[string]string{
		"PRODUCT_NAME":    run.Dossier.ProductName,
		"FEATURES":        string(featuresJSON),
		"VISUAL_DNA":      run.Dossier.VisualDNA,
		"VIDEO_TYPE":      string(run.Strategy.VideoType),
		"ANGLE":           run.Strategy.Angle,
		"TARGET_AUDIENCE": run.Strategy.TargetAudience,
		"SELECTED_HOOK":   run.Directive.SelectedHook,
		"EDITS":           string(editsJSON),
		"FINAL_VIBE":      run.Directive.FinalVibe,
		"FEATURE_1":       featureAt(run.Dossier.Features, 0),
		"FEATURE_2":       featureAt(run.Dossier.Features, 1),
		"FEATURE_3":       featureAt(run.Dossier.Features, 2),
		"PAIN_POINT":      featureAt(run.Dossier.PainPoints, 0),
		"PRIOR_FINDINGS":  priorFindings(run),
	})

	draft, _, err := completeJSON[models.SceneDraft](ctx, a.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.AssistantSystem,
	})
	if err != nil {
		return errors.Wrap(err, "scene drafting failed")
	}
	if len(draft.Scenes) != models.SceneCount {
		return errors.Underspecified(len(draft.Scenes))
	}

	run.Draft = draft
	run.Board.Record(assistantName, assistantRole,
		fmt.Sprintf("Drafted %d scenes. Narrative logic: %s", len(draft.Scenes), firstSentence(draft.NarrativeLogic)),
		draft)
	return nil
}

// featureAt returns the nth item or a safe placeholder when the dossier is
// thin. The prompt still demands real features, so a placeholder only shows
// up after a recovered discovery failure.
func featureAt(items []string, i int) string {
	if i < len(items) {
		return items[i]
	}
	return "the product's core capability"
}

func firstSentence(s string) string {
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		return s[:idx+1]
	}
	return s
}
