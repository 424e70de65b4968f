package models

import "fmt"

// BoxType classifies the role a Box plays in the sequence.
type BoxType string

const (
	BoxIntro           BoxType = "INTRO"
	BoxUnboxing        BoxType = "UNBOXING"
	BoxFeature         BoxType = "FEATURE"
	BoxComparison      BoxType = "COMPARISON"
	BoxProblemSolution BoxType = "PROBLEM_SOLUTION"
	BoxOutro           BoxType = "OUTRO"
	BoxTestimonial     BoxType = "TESTIMONIAL"
	BoxAd              BoxType = "AD"
	BoxHook            BoxType = "HOOK"
	BoxCTA             BoxType = "CTA"
)

// BoxDurationSeconds is the fixed length of every shot except the outro,
// which may run shorter.
const BoxDurationSeconds = 8

// AnchorImage is a generated static anchor attached to a Box. The bytes are
// base64-encoded as returned by the image backend.
type AnchorImage struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

// Box is the production unit: one 8-second shot carrying both a static
// anchor prompt (for the image model) and a motion prompt (for the video
// model). The two are deliberately separate fields and never conflated.
type Box struct {
	ID                      string       `json:"id"`
	Type                    BoxType      `json:"type"`
	Duration                int          `json:"duration"`
	ImagePrompt             string       `json:"imagePrompt"`
	VisualPrompt            string       `json:"visualPrompt"`
	AudioScript             string       `json:"audioScript"`
	AmbientSoundDescription string       `json:"ambientSoundDescription"`
	Lighting                string       `json:"lighting"`
	Camera                  string       `json:"camera"`
	TechnicalReasoning      string       `json:"technicalReasoning"`
	AnchorImage             *AnchorImage `json:"anchorImage,omitempty"`
}

// Validate enforces the per-box duration rule: 8 seconds for everything,
// outros may be shorter.
func (b *Box) Validate() error {
	if b.Type != BoxOutro && b.Duration != BoxDurationSeconds {
		return fmt.Errorf("box type %s must run exactly %d seconds, got %d", b.Type, BoxDurationSeconds, b.Duration)
	}
	if b.Type == BoxOutro && b.Duration > BoxDurationSeconds {
		return fmt.Errorf("outro box exceeds %d seconds: %d", BoxDurationSeconds, b.Duration)
	}
	return nil
}

// Segment is the timeline window a slot occupies, in the clip library's
// "MM:SS" convention.
type Segment struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Duration  int    `json:"duration"`
}

// Slot is one entry of the assembled sequence: a Box tagged with its stable
// rank and the product it belongs to.
type Slot struct {
	Rank        int     `json:"rank"`
	ProductName string  `json:"productName"`
	Box         Box     `json:"box"`
	Segment     Segment `json:"segment"`
}

// SequenceArtifact is the deterministic, reviewable output of a run: a
// totally-ordered sequence of slots with ranks starting at 1.
type SequenceArtifact struct {
	Title               string `json:"title"`
	Slots               []Slot `json:"slots"`
	ConnectiveNarrative string `json:"connectiveNarrative"`
}

// Validate checks the artifact invariants: exactly ten slots with strictly
// increasing ranks 1..10, and valid per-box durations.
func (a *SequenceArtifact) Validate() error {
	if len(a.Slots) != SceneCount {
		return fmt.Errorf("sequence must contain exactly %d boxes, got %d", SceneCount, len(a.Slots))
	}
	for i, slot := range a.Slots {
		if slot.Rank != i+1 {
			return fmt.Errorf("slot %d has rank %d, want %d", i, slot.Rank, i+1)
		}
		if err := slot.Box.Validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}
