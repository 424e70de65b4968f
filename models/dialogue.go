package models

import "time"

// DialogueType classifies a dialogue event for the boardroom monitor.
type DialogueType string

const (
	DialogueThought DialogueType = "thought"
	DialogueDebate  DialogueType = "debate"
	DialoguePrompt  DialogueType = "prompt"
	DialogueFinding DialogueType = "finding"
)

// DialogueEvent is one record emitted to the UI's dialogue stream.
// The stream is append-only; events are never acknowledged or retried.
type DialogueEvent struct {
	Agent     string       `json:"agent"`
	Role      string       `json:"role"`
	Message   string       `json:"message"`
	Type      DialogueType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
}
