package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

const (
	designerName = "GraphicsSoundDesigner"
	designerRole = "Graphics & Audio Architect"
)

// GraphicsSoundDesigner turns the scene draft into production boxes. It is
// the hybrid-protocol agent: every box carries a static anchor prompt and a
// separate motion prompt, never the same text.
type GraphicsSoundDesigner struct {
	backend ports.GenerativeBackend
	log     *logrus.Logger
}

// NewGraphicsSoundDesigner creates the roster's designing agent.
func NewGraphicsSoundDesigner(backend ports.GenerativeBackend, log *logrus.Logger) *GraphicsSoundDesigner {
	return &GraphicsSoundDesigner{backend: backend, log: log}
}

func (g *GraphicsSoundDesigner) Name() string { return designerName }

// designResult is the designer's required output shape.
type designResult struct {
	Title string       `json:"title"`
	Boxes []models.Box `json:"boxes"`
}

// Execute designs one box per drafted scene and stages the raw sequence on
// the run context. Visual DNA drift is repaired in place rather than
// retried: the DNA string is woven into any anchor prompt that lost it.
func (g *GraphicsSoundDesigner) Execute(ctx context.Context, run *Context) error {
	run.Say(designerName, designerRole,
		"Designing static anchors and motion arcs for every scene, locking the product's look across all shots...",
		models.DialogueThought)

	scenesJSON, _ := json.MarshalIndent(run.Draft.Scenes, "", "  ")
	painJSON, _ := json.Marshal(run.Dossier.PainPoints)
	strategyJSON, _ := json.Marshal(run.Strategy)
	prompt := ai.Render(ai.DesignerPrompt, map[string]string{
		"SCENES":         string(scenesJSON),
		"PRODUCT_NAME":   run.Dossier.ProductName,
		"VISUAL_DNA":     run.Dossier.VisualDNA,
		"PAIN_POINTS":    string(painJSON),
		"STRATEGY":       string(strategyJSON),
		"PRIOR_FINDINGS": priorFindings(run),
	})

	design, _, err := completeJSON[designResult](ctx, g.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.DesignerSystem,
	})
	if err != nil {
		return errors.Wrap(err, "sequence design failed")
	}
	if len(design.Boxes) != models.SceneCount {
		return errors.Underspecified(len(design.Boxes))
	}

	for i := range design.Boxes {
		box := &design.Boxes[i]
		box.ID = uuid.NewString()
		if box.Duration == 0 {
			box.Duration = models.BoxDurationSeconds
		}
		g.enforceVisualDNA(box, run.Dossier.VisualDNA)
		if err := box.Validate(); err != nil {
			return errors.Wrapf(err, "designed box %d invalid", i+1)
		}
		run.Say(designerName, designerRole,
			fmt.Sprintf("Box %d [%s] anchor: %s", i+1, box.Type, errors.Preview(box.ImagePrompt, 120)),
			models.DialoguePrompt)
	}

	// The opening box must carry the boardroom's hook into the motion
	// prompt, not just the concept text.
	first := &design.Boxes[0]
	if run.Directive != nil && !strings.Contains(first.VisualPrompt, run.Directive.SelectedHook) {
		first.VisualPrompt = fmt.Sprintf("OPENING HOOK: %q. %s", run.Directive.SelectedHook, first.VisualPrompt)
	}

	run.Sequence = &models.SequenceArtifact{Title: design.Title}
	run.Board.Record(designerName, designerRole,
		fmt.Sprintf("Designed %d production boxes for %q.", len(design.Boxes), design.Title),
		design.Boxes)
	run.DesignedBoxes = design.Boxes
	return nil
}

// enforceVisualDNA repairs DNA drift: if either prompt lost the dossier's
// visual description, it is appended verbatim.
func (g *GraphicsSoundDesigner) enforceVisualDNA(box *models.Box, dna string) {
	if dna == "" {
		return
	}
	clause := strings.ToLower(firstClause(dna))
	if !strings.Contains(strings.ToLower(box.ImagePrompt), clause) {
		g.log.WithField("box_type", box.Type).Debug("[Designer] anchor prompt drifted from visual DNA, repairing")
		box.ImagePrompt = strings.TrimRight(box.ImagePrompt, ". ") + ". Product appearance: " + dna
	}
	if !strings.Contains(strings.ToLower(box.VisualPrompt), clause) {
		box.VisualPrompt = strings.TrimRight(box.VisualPrompt, ". ") + ". The product keeps its exact appearance: " + dna
	}
}

// firstClause returns the DNA's leading clause, the cheapest drift check.
func firstClause(s string) string {
	for _, sep := range []string{",", ".", ";"} {
		if idx := strings.Index(s, sep); idx > 0 {
			return strings.TrimSpace(s[:idx])
		}
	}
	return strings.TrimSpace(s)
}
