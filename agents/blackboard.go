// Package agents holds the shared blackboard and the five-agent roster
// that turns a product URL into a reviewable production sequence.
package agents

import (
	"sync"
	"time"

	"reelforge/models"
	"reelforge/ports"
)

// Entry is one immutable blackboard record.
type Entry struct {
	Agent     string
	Note      string
	Payload   interface{}
	Timestamp time.Time
}

// Blackboard is the append-only shared memory agents communicate through.
// It keeps two projections: the flat ordered log of entries, and the latest
// payload per agent. Later agents may read anything recorded before them
// but can never mutate past entries.
type Blackboard struct {
	mu      sync.RWMutex
	entries []Entry
	latest  map[string]interface{}
	sink    ports.DialogueSink
	now     func() time.Time
}

// NewBlackboard creates an empty blackboard. Recording emits a finding
// event on the sink as a side effect, which is how the UI's dialogue stream
// observes agent hand-offs.
func NewBlackboard(sink ports.DialogueSink) *Blackboard {
	return &Blackboard{
		latest: make(map[string]interface{}),
		sink:   sink,
		now:    time.Now,
	}
}

// Record appends a finding. The payload becomes the agent's latest entry in
// the keyed projection.
func (b *Blackboard) Record(agent, role, note string, payload interface{}) {
	b.mu.Lock()
	entry := Entry{Agent: agent, Note: note, Payload: payload, Timestamp: b.now()}
	b.entries = append(b.entries, entry)
	if payload != nil {
		b.latest[agent] = payload
	}
	b.mu.Unlock()

	if b.sink != nil {
		b.sink(models.DialogueEvent{
			Agent:     agent,
			Role:      role,
			Message:   note,
			Type:      models.DialogueFinding,
			Timestamp: entry.Timestamp,
		})
	}
}

// Entries returns a copy of the ordered log.
func (b *Blackboard) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Latest returns the most recent payload an agent recorded.
func (b *Blackboard) Latest(agent string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.latest[agent]
	return v, ok
}

// Notes returns the flat list of "[agent] note" lines, oldest first. Agents
// inject these into prompts to discover prior findings.
func (b *Blackboard) Notes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, "["+e.Agent+"] "+e.Note)
	}
	return out
}
