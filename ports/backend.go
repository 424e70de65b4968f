package ports

import (
	"context"

	"reelforge/models"
)

// AspectRatio mirrors the generative platform's accepted ratios. Square is
// remapped to portrait for video, matching the vertical-first product.
type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectSquare    AspectRatio = "1:1"
)

// Tool is a capability the completion model may use during a call. Web
// search is the only tool the pipeline requests.
type Tool struct {
	WebSearch bool
}

// CompletionRequest describes one call to the text model.
//
// When JSONMode is set together with a web-search tool, the backend cannot
// use structured-output headers (the platform rejects the combination), so
// implementations must instead append an explicit JSON-only instruction to
// the system directive and extract the value from conversational output.
type CompletionRequest struct {
	Prompt            string
	SystemInstruction string
	Tools             []Tool
	JSONMode          bool
	Priority          Priority
}

// ImageRequest describes one static-anchor generation call. When reference
// images are present the implementation runs the two-step protocol: a
// completion call first extracts a hyper-detailed description of the
// references, then the image model is called with description + prompt.
type ImageRequest struct {
	Prompt          string
	AspectRatio     AspectRatio
	ReferenceImages []models.AnchorImage
	Priority        Priority
}

// VideoRequest describes one long-running video generation. OnProgress
// fires at each poll of the operation.
type VideoRequest struct {
	Prompt         string
	AspectRatio    AspectRatio
	AmbientSound   string
	ReferenceImage *models.AnchorImage
	OnProgress     func(status string)
	Priority       Priority
}

// SpeechRequest describes one text-to-speech call.
type SpeechRequest struct {
	Script string
	Voice  string
}

// GenerativeBackend is the capability contract the orchestrator talks to.
// Implementations hide transport, auth, and operation polling, and must
// route every outbound call through the dispatcher.
type GenerativeBackend interface {
	// Completion returns the model's text. With JSONMode set, the returned
	// string is the extracted first balanced JSON value.
	Completion(ctx context.Context, req CompletionRequest) (string, error)

	// Image returns the generated anchor image.
	Image(ctx context.Context, req ImageRequest) (*models.AnchorImage, error)

	// Video returns a playable video URL once the long-running operation
	// completes. Total wall-clock is capped at 180 seconds.
	Video(ctx context.Context, req VideoRequest) (string, error)

	// Speech returns a playable audio URL synthesized from the script.
	Speech(ctx context.Context, req SpeechRequest) (string, error)
}
