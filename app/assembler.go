// Package app drives the production pipeline: the orchestrator walks the
// agent roster, the assembler projects designed boxes onto the timeline,
// and the anchorer pins every shot to a generated product image.
package app

import (
	"context"
	"fmt"
	"strings"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// Assemble deterministically projects designed boxes onto the reviewable
// sequence. No model calls: given the same boxes and product name it always
// produces the same artifact. Ranks are assigned from position, timeline
// segments from the per-box duration, and the connective narrative stays
// empty until after approval.
func Assemble(boxes []models.Box, productName, title string) (*models.SequenceArtifact, error) {
	artifact := &models.SequenceArtifact{
		Title: title,
		Slots: make([]models.Slot, 0, len(boxes)),
	}
	for i, box := range boxes {
		artifact.Slots = append(artifact.Slots, models.Slot{
			Rank:        i + 1,
			ProductName: productName,
			Box:         box,
			Segment: models.Segment{
				StartTime: "00:00",
				EndTime:   clockTime(box.Duration),
				Duration:  box.Duration,
			},
		})
	}
	if err := artifact.Validate(); err != nil {
		return nil, errors.Wrap(err, "assembled sequence invalid")
	}
	return artifact, nil
}

// WriteConnectiveNarrative fills in the glue script that ties the approved
// slots together. It runs after approval only: the narrative is presentation
// polish, never part of the reviewable artifact.
func WriteConnectiveNarrative(ctx context.Context, backend ports.GenerativeBackend, artifact *models.SequenceArtifact) error {
	var slots strings.Builder
	for _, slot := range artifact.Slots {
		fmt.Fprintf(&slots, "%d. [%s] %s\n", slot.Rank, slot.Box.Type, slot.Box.AudioScript)
	}
	prompt := ai.Render(ai.ConnectiveNarrativePrompt, map[string]string{
		"COUNT": fmt.Sprintf("%d", len(artifact.Slots)),
		"SLOTS": slots.String(),
	})
	narrative, err := backend.Completion(ctx, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.ConnectiveNarrativeSystem,
	})
	if err != nil {
		return errors.Wrap(err, "connective narrative failed")
	}
	artifact.ConnectiveNarrative = strings.TrimSpace(narrative)
	return nil
}

// clockTime renders a duration in the clip library's "MM:SS" convention.
func clockTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
