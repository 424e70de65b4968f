package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

const (
	strategistName = "SocialStrategist"
	strategistRole = "Viral Marketing & Psychology Expert"
)

// Strategist maps the dossier onto a positioning strategy. One sub-skill,
// one completion call; the strategy is immutable once set.
type Strategist struct {
	backend ports.GenerativeBackend
	log     *logrus.Logger
}

// NewStrategist creates the roster's second agent.
func NewStrategist(backend ports.GenerativeBackend, log *logrus.Logger) *Strategist {
	return &Strategist{backend: backend, log: log}
}

func (s *Strategist) Name() string { return strategistName }

// Execute maps the dossier to a strategy and validates the result before
// anything downstream depends on it.
func (s *Strategist) Execute(ctx context.Context, run *Context) error {
	run.Say(strategistName, strategistRole,
		fmt.Sprintf("Analyzing product specs and user objections to map the perfect psychological trigger for %s...", run.Dossier.ProductName),
		models.DialogueThought)

	painJSON, _ := json.Marshal(run.Dossier.PainPoints)
	prompt := ai.Render(ai.StrategistPrompt, map[string]string{
		"PRODUCT_NAME":    run.Dossier.ProductName,
		"PAIN_POINTS":     string(painJSON),
		"SENTIMENT_SCORE": strconv.Itoa(run.Dossier.SentimentScore),
		"PRIOR_FINDINGS":  priorFindings(run),
	})

	strategy, raw, err := completeJSON[models.Strategy](ctx, s.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.StrategistSystem,
	})
	if err != nil {
		return errors.Wrap(err, "strategist completion failed")
	}
	if !strategy.Valid() {
		// Preview what the model actually said, not the decoded struct.
		return errors.InvalidStrategy(raw)
	}

	run.Strategy = strategy
	run.Board.Record(strategistName, strategistRole,
		fmt.Sprintf("Selected Angle: %q. Strategy targets: %s", strategy.Angle, strategy.TargetAudience),
		strategy)
	return nil
}
