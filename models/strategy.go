package models

// VideoType is the chosen production format for the run.
type VideoType string

const (
	VideoTypeShowcase        VideoType = "SHOWCASE"
	VideoTypeUnboxing        VideoType = "UNBOXING"
	VideoTypeHowTo           VideoType = "HOW_TO"
	VideoTypeTroubleshooting VideoType = "TROUBLESHOOTING"
	VideoTypeComparison      VideoType = "COMPARISON"
)

// Strategy is the positioning chosen by the Strategist. Immutable after
// creation.
type Strategy struct {
	Angle          string    `json:"angle"`
	TargetAudience string    `json:"targetAudience"`
	VideoType      VideoType `json:"videoType"`
	Caption        string    `json:"caption"`
	Hashtags       []string  `json:"hashtags"`
	FirstComment   string    `json:"firstComment"`
	BestTime       string    `json:"bestTime"`
	Triggers       []string  `json:"triggers"`
}

// Valid reports whether the strategy carries the minimum the downstream
// agents depend on.
func (s *Strategy) Valid() bool {
	return s != nil && s.Angle != ""
}

// HookProposal is one candidate opening produced in the boardroom's Propose
// turn.
type HookProposal struct {
	Title string `json:"title"`
	Logic string `json:"logic"`
}

// Directive is the boardroom's executive decision: the hook the video opens
// with, the CMO's edits, and the agreed overall vibe.
type Directive struct {
	SelectedHook string   `json:"selectedHook"`
	Edits        []string `json:"edits"`
	FinalVibe    string   `json:"finalVibe"`
}

// SceneDraft is the AssistantDirector's output: exactly ten free-form
// 8-second scene concepts plus the narrative logic tying them together.
type SceneDraft struct {
	Scenes         []string `json:"scenes"`
	NarrativeLogic string   `json:"narrativeLogic"`
}

// SceneCount is the fixed length of every production sequence.
const SceneCount = 10
