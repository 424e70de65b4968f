package ports

import "reelforge/models"

// DialogueSink consumes dialogue events for the UI. Events are fire and
// forget: never acknowledged, never retried.
type DialogueSink func(event models.DialogueEvent)

// ProgressSink consumes coarse stage-level status lines.
type ProgressSink func(status string)

// Observer bundles the two UI callbacks threaded through the pipeline so
// agents stay decoupled from the surface that renders them.
type Observer struct {
	OnDialogue DialogueSink
	OnProgress ProgressSink
}

// Dialogue emits an event if a sink is attached.
func (o Observer) Dialogue(event models.DialogueEvent) {
	if o.OnDialogue != nil {
		o.OnDialogue(event)
	}
}

// Progress emits a status line if a sink is attached.
func (o Observer) Progress(status string) {
	if o.OnProgress != nil {
		o.OnProgress(status)
	}
}
