package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// scriptedBackend replays completion responses in call order and serves
// canned media. Response functions may have side effects (e.g. cancelling
// the run mid-call) to exercise abort boundaries.
type scriptedBackend struct {
	mu          sync.Mutex
	completions []func(req ports.CompletionRequest) (string, error)
	requests    []ports.CompletionRequest
	imageCalls  int
}

func (b *scriptedBackend) push(fns ...func(req ports.CompletionRequest) (string, error)) {
	b.completions = append(b.completions, fns...)
}

func (b *scriptedBackend) pushJSON(payloads ...string) {
	for _, p := range payloads {
		payload := p
		b.push(func(ports.CompletionRequest) (string, error) { return payload, nil })
	}
}

func (b *scriptedBackend) Completion(ctx context.Context, req ports.CompletionRequest) (string, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	if len(b.completions) == 0 {
		b.mu.Unlock()
		return "", fmt.Errorf("scripted backend: unexpected completion %q", errors.Preview(req.Prompt, 60))
	}
	fn := b.completions[0]
	b.completions = b.completions[1:]
	b.mu.Unlock()
	return fn(req)
}

func (b *scriptedBackend) Image(ctx context.Context, req ports.ImageRequest) (*models.AnchorImage, error) {
	b.mu.Lock()
	b.imageCalls++
	b.mu.Unlock()
	return &models.AnchorImage{Base64: "aW1n", MimeType: "image/png"}, nil
}

func (b *scriptedBackend) Video(ctx context.Context, req ports.VideoRequest) (string, error) {
	return "https://videos.example/clip.mp4", nil
}

func (b *scriptedBackend) Speech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	return "data:audio/wav;base64,UklGRg==", nil
}

func (b *scriptedBackend) completionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func designerJSON() string {
	boxes := make([]string, models.SceneCount)
	for i := range boxes {
		boxType := "FEATURE"
		switch i {
		case 0:
			boxType = "HOOK"
		case models.SceneCount - 1:
			boxType = "OUTRO"
		}
		boxes[i] = fmt.Sprintf(`{"type": %q, "imagePrompt": "matte black steel mug, shot %d", "visualPrompt": "push-in %d", "audioScript": "line %d", "ambientSoundDescription": "room", "duration": 8, "lighting": "soft", "camera": "macro", "technicalReasoning": "r"}`, boxType, i+1, i+1, i+1)
	}
	return fmt.Sprintf(`{"title": "Aero Mug: The Drop", "boxes": [%s]}`, strings.Join(boxes, ","))
}

// pushHappyPath scripts a complete successful pipeline: discovery,
// sentiment, strategy, the two boardroom turns, the scene draft, the
// sequence design, and the post-approval connective narrative.
func pushHappyPath(b *scriptedBackend) {
	scenes := make([]string, models.SceneCount)
	for i := range scenes {
		scenes[i] = fmt.Sprintf(`"Scene %d: matte black steel"`, i+1)
	}
	b.pushJSON(
		`{"productName": "Aero Mug", "description": "Vacuum mug", "visualDna": "matte black steel", "features": ["leakproof", "insulated", "light"], "specs": {}, "referenceVideoUrls": [], "images": []}`,
		`{"painPoints": ["lid leaks"], "reviews": ["fine"], "sentimentScore": 70}`,
		`{"angle": "Authority", "targetAudience": "commuters", "videoType": "SHOWCASE", "caption": "c", "hashtags": [], "firstComment": "f", "bestTime": "18:00", "triggers": []}`,
		`{"hooks": [{"title": "The Drop Test", "logic": "physics"}, {"title": "Steam Reveal", "logic": "sensory"}, {"title": "Commute Rescue", "logic": "relatable"}]}`,
		`{"selectedHook": "The Drop Test", "strategicLogic": "fits authority", "edits": []}`,
		fmt.Sprintf(`{"scenes": [%s], "narrativeLogic": "hook to CTA"}`, strings.Join(scenes, ",")),
		designerJSON(),
	)
	b.push(func(req ports.CompletionRequest) (string, error) {
		return "Hey friends! [PAUSE] And that is not all. [PAUSE] Grab yours today.", nil
	})
}

func TestOrchestratorHappyPath(t *testing.T) {
	backend := &scriptedBackend{}
	pushHappyPath(backend)

	orc := NewOrchestrator(backend, quietLog())

	var mu sync.Mutex
	var events []models.DialogueEvent
	var states []string
	obs := ports.Observer{
		OnDialogue: func(e models.DialogueEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
		OnProgress: func(status string) {
			// The anchorer emits per-shot progress lines; only state
			// transitions matter here.
			if !strings.HasPrefix(status, "Anchoring shot") {
				mu.Lock()
				states = append(states, status)
				mu.Unlock()
			}
			if status == string(StateAwaitingApproval) {
				orc.Approve()
			}
		},
	}

	result, err := orc.Run(context.Background(), "https://shop.example/mug", "https://yt/ref", obs)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, orc.State())

	require.NotNil(t, result.Artifact)
	require.Len(t, result.Slots, models.SceneCount)
	require.NoError(t, result.Artifact.Validate())
	assert.Contains(t, result.Artifact.ConnectiveNarrative, "[PAUSE]")
	assert.Equal(t, "Aero Mug", result.Dossier.ProductName)
	assert.Equal(t, "Authority", result.Strategy.Angle)

	// Every approved slot got an anchor.
	for _, slot := range result.Slots {
		require.NotNil(t, slot.Box.AnchorImage)
	}
	assert.Equal(t, models.SceneCount, backend.imageCalls)

	// The state machine walked strictly forward through every stage.
	assert.Equal(t, []string{
		string(StateResearching), string(StateStrategizing), string(StateBoardroom),
		string(StateDrafting), string(StateDesigning), string(StateAssembling),
		string(StateAwaitingApproval), string(StateAnchoring), string(StateFinished),
	}, states)

	// Every agent spoke at least once on the dialogue stream.
	spoke := map[string]bool{}
	for _, e := range events {
		spoke[e.Agent] = true
	}
	for _, agent := range []string{"Researcher", "SocialStrategist", "Director", "AssistantDirector", "GraphicsSoundDesigner"} {
		assert.True(t, spoke[agent], "agent %s never spoke", agent)
	}
}

func TestOrchestratorStrategyFailureTerminatesRun(t *testing.T) {
	backend := &scriptedBackend{}
	backend.pushJSON(
		`{"productName": "Aero Mug", "description": "d", "visualDna": "dna", "features": [], "specs": {}, "referenceVideoUrls": [], "images": []}`,
		`{"painPoints": [], "reviews": [], "sentimentScore": 50}`,
		`{"angle": "", "targetAudience": ""}`,
	)

	orc := NewOrchestrator(backend, quietLog())
	var events []models.DialogueEvent
	var mu sync.Mutex
	obs := ports.Observer{OnDialogue: func(e models.DialogueEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}}

	result, err := orc.Run(context.Background(), "https://shop.example/mug", "", obs)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidStrategy, errors.GetCode(err))
	assert.Equal(t, StateFailed, orc.State())

	// Partial sequences are discarded; the dossier survives for inspection.
	assert.Empty(t, result.Slots)
	assert.Equal(t, "Aero Mug", result.Dossier.ProductName)

	// The run closes with a terminal system event.
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "System", last.Agent)
	assert.Contains(t, last.Message, string(StateFailed))
}

func TestOrchestratorCancelMidPipeline(t *testing.T) {
	backend := &scriptedBackend{}
	orc := NewOrchestrator(backend, quietLog())

	backend.pushJSON(
		`{"productName": "Aero Mug", "description": "d", "visualDna": "dna", "features": [], "specs": {}, "referenceVideoUrls": [], "images": []}`,
		`{"painPoints": [], "reviews": [], "sentimentScore": 50}`,
	)
	// Cancel lands while the strategist call is in flight; the call itself
	// completes, then the run stops at the next stage boundary.
	backend.push(func(ports.CompletionRequest) (string, error) {
		orc.Cancel()
		return `{"angle": "Authority", "targetAudience": "a", "videoType": "SHOWCASE", "caption": "c", "hashtags": [], "firstComment": "f", "bestTime": "b", "triggers": []}`, nil
	})

	result, err := orc.Run(context.Background(), "https://shop.example/mug", "", ports.Observer{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAborted, errors.GetCode(err))
	assert.Equal(t, StateAborted, orc.State())
	assert.Empty(t, result.Slots)

	// No work after the in-flight call: three completions, zero anchors.
	assert.Equal(t, 3, backend.completionCount())
	assert.Equal(t, 0, backend.imageCalls)
}

func TestOrchestratorApprovalGateBlocksUntilCancelled(t *testing.T) {
	backend := &scriptedBackend{}
	pushHappyPath(backend)

	orc := NewOrchestrator(backend, quietLog())
	gated := make(chan struct{})
	obs := ports.Observer{OnProgress: func(status string) {
		if status == string(StateAwaitingApproval) {
			close(gated)
		}
	}}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := orc.Run(context.Background(), "https://shop.example/mug", "", obs)
		done <- outcome{result, err}
	}()

	select {
	case <-gated:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the approval gate")
	}

	// The gate holds with no timeout of its own.
	select {
	case <-done:
		t.Fatal("run passed the approval gate without approval")
	case <-time.After(100 * time.Millisecond):
	}

	orc.Cancel()
	select {
	case out := <-done:
		require.Error(t, out.err)
		assert.Equal(t, errors.CodeAborted, errors.GetCode(out.err))
		assert.Empty(t, out.result.Slots)
		assert.Equal(t, StateAborted, orc.State())
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run never terminated")
	}
	assert.Equal(t, 0, backend.imageCalls)
}

func TestOrchestratorApproveIsIdempotent(t *testing.T) {
	backend := &scriptedBackend{}
	pushHappyPath(backend)

	orc := NewOrchestrator(backend, quietLog())
	obs := ports.Observer{OnProgress: func(status string) {
		if status == string(StateAwaitingApproval) {
			orc.Approve()
			orc.Approve()
		}
	}}

	_, err := orc.Run(context.Background(), "https://shop.example/mug", "", obs)
	require.NoError(t, err)
	assert.Equal(t, StateFinished, orc.State())
}
