package vertex

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

const (
	videoPollInterval = 5 * time.Second
	videoDeadline     = 180 * time.Second
)

// predictRequest is the Imagen prediction wire shape.
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParams     `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParams struct {
	SampleCount      int    `json:"sampleCount"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	IncludeRaiReason bool   `json:"includeRaiReason"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
		RaiFilteredReason  string `json:"raiFilteredReason"`
	} `json:"predictions"`
}

// Image implements ports.GenerativeBackend.
//
// With reference images a two-step protocol runs first: a completion call
// forces the model to describe the exact product in the references, and the
// extracted description is prepended to the prompt so the generator cannot
// drift from the real product.
func (c *Client) Image(ctx context.Context, req ports.ImageRequest) (*models.AnchorImage, error) {
	prompt := req.Prompt
	if len(req.ReferenceImages) > 0 {
		detailed, err := c.describeReferences(ctx, req)
		if err != nil {
			// Reference analysis is best-effort; generation proceeds on the
			// original prompt.
			c.log.WithError(err).Warn("[Vertex] reference analysis failed, generating without it")
		} else if detailed != "" {
			prompt = detailed
		}
	}

	body := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParams{
			SampleCount:      1,
			AspectRatio:      string(req.AspectRatio),
			IncludeRaiReason: true,
		},
	}

	var out predictResponse
	err := c.dispatcher.Dispatch(ctx, ports.DispatchOpts{
		Priority: req.Priority,
		Model:    c.cfg.ImageModel,
	}, func(ctx context.Context, region, model string) error {
		return c.post(ctx, region, model, "predict", body, &out)
	})
	if err != nil {
		return nil, err
	}

	if len(out.Predictions) == 0 {
		return nil, errors.ContentRejected("no image returned")
	}
	pred := out.Predictions[0]
	if pred.BytesBase64Encoded == "" {
		reason := pred.RaiFilteredReason
		if reason == "" {
			reason = "empty prediction"
		}
		return nil, errors.ContentRejected(reason)
	}

	mime := pred.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &models.AnchorImage{Base64: pred.BytesBase64Encoded, MimeType: mime}, nil
}

// describeReferences runs step one of the two-step protocol and returns the
// generation prompt extracted from the analysis.
func (c *Client) describeReferences(ctx context.Context, req ports.ImageRequest) (string, error) {
	parts := []part{{Text: ai.Render(ai.ReferenceAnalysisPrompt, map[string]string{"SCENE": req.Prompt})}}
	for _, img := range req.ReferenceImages {
		parts = append(parts, part{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Base64}})
	}

	body := generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
	analysis, err := c.generate(ctx, c.cfg.CompletionModel, "", req.Priority, body)
	if err != nil {
		return "", err
	}
	return extractGenerationPrompt(analysis), nil
}

// extractGenerationPrompt pulls the section after "IMAGE GENERATION
// PROMPT:"; when the model ignored the format, the whole analysis is still
// a usable prompt.
func extractGenerationPrompt(analysis string) string {
	const marker = "IMAGE GENERATION PROMPT:"
	if idx := strings.Index(analysis, marker); idx >= 0 {
		return strings.TrimSpace(analysis[idx+len(marker):])
	}
	return strings.TrimSpace(analysis)
}

// videoOperation is the long-running operation wire shape.
type videoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		Videos []struct {
			GcsURI             string `json:"gcsUri"`
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"videos"`
		RaiMediaFilteredReasons []string `json:"raiMediaFilteredReasons"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type fetchOperationRequest struct {
	OperationName string `json:"operationName"`
}

// Video implements ports.GenerativeBackend. It is a synchronous façade over
// the platform's long-running operation: submit, then poll at a 5-second
// cadence under a 180-second wall-clock cap. Submission and polling happen
// inside a single dispatched call so the serialization guarantee holds for
// the whole operation.
func (c *Client) Video(ctx context.Context, req ports.VideoRequest) (string, error) {
	prompt := fmt.Sprintf("CINEMATIC PRODUCT ADVERTISEMENT. %s. AMBIENT: %s. MAXIMUM VISUAL FIDELITY. Rigid object permanence. No morphing. Clean cinematic motion.", req.Prompt, req.AmbientSound)

	aspect := req.AspectRatio
	if aspect == ports.AspectSquare {
		aspect = ports.AspectPortrait
	}

	instance := map[string]interface{}{"prompt": prompt}
	if req.ReferenceImage != nil {
		instance["image"] = map[string]string{
			"bytesBase64Encoded": req.ReferenceImage.Base64,
			"mimeType":           req.ReferenceImage.MimeType,
		}
	}
	body := map[string]interface{}{
		"instances": []map[string]interface{}{instance},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"aspectRatio": string(aspect),
			"resolution":  "1080p",
		},
	}

	progress := req.OnProgress
	if progress == nil {
		progress = func(string) {}
	}

	var videoURL string
	// The submitted operation survives dispatcher retries: a transient
	// failure while polling resumes the same operation by name instead of
	// submitting a second one.
	var opName, opRegion string
	var deadline time.Time
	err := c.dispatcher.Dispatch(ctx, ports.DispatchOpts{
		Priority: req.Priority,
		Model:    c.cfg.VideoModel,
	}, func(ctx context.Context, region, model string) error {
		var op videoOperation
		if opName == "" {
			if err := c.post(ctx, region, model, "predictLongRunning", body, &op); err != nil {
				return err
			}
			opName, opRegion = op.Name, region
			deadline = time.Now().Add(videoDeadline)
			progress("Video operation submitted, synthesizing...")
		} else {
			op.Name = opName
		}

		for !op.Done {
			if time.Now().After(deadline) {
				return errors.New(errors.CodeTransport, "video operation exceeded 180s deadline")
			}
			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := c.post(ctx, opRegion, model, "fetchPredictOperation",
				fetchOperationRequest{OperationName: opName}, &op); err != nil {
				return err
			}
			progress("Refining product details & cinematic motion...")
		}

		if op.Error != nil {
			return errors.ContentRejected(op.Error.Message)
		}
		if op.Response == nil || len(op.Response.Videos) == 0 {
			if op.Response != nil && len(op.Response.RaiMediaFilteredReasons) > 0 {
				return errors.ContentRejected(strings.Join(op.Response.RaiMediaFilteredReasons, "; "))
			}
			return errors.ContentRejected("no video returned")
		}

		v := op.Response.Videos[0]
		switch {
		case v.GcsURI != "":
			videoURL = v.GcsURI
		case v.BytesBase64Encoded != "":
			mime := v.MimeType
			if mime == "" {
				mime = "video/mp4"
			}
			videoURL = "data:" + mime + ";base64," + v.BytesBase64Encoded
		default:
			return errors.ContentRejected("video payload was empty")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return videoURL, nil
}

// Speech implements ports.GenerativeBackend: a TTS completion returning raw
// 24 kHz mono 16-bit PCM, wrapped into a playable WAV data URL.
func (c *Client) Speech(ctx context.Context, req ports.SpeechRequest) (string, error) {
	voice := req.Voice
	if voice == "" {
		voice = c.cfg.TTSVoice
	}

	body := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{{Text: fmt.Sprintf(
				"Social Media UGC Narration. Authentic, fast-paced. High-fidelity voice. Voice: %s. Script: %s",
				voice, req.Script)}},
		}},
		GenerationConfig: &generateConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: voice}},
			},
		},
	}

	var out generateResponse
	err := c.dispatcher.Dispatch(ctx, ports.DispatchOpts{
		Model: c.cfg.TTSModel,
	}, func(ctx context.Context, region, model string) error {
		return c.post(ctx, region, model, "generateContent", body, &out)
	})
	if err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.ContentRejected("tts returned no audio")
	}
	data := out.Candidates[0].Content.Parts[0].InlineData
	if data == nil || data.Data == "" {
		return "", errors.ContentRejected("tts returned no audio data")
	}

	pcm, err := base64.StdEncoding.DecodeString(data.Data)
	if err != nil {
		return "", fmt.Errorf("decode tts payload: %w", err)
	}
	wav := EncodeWAV(pcm, 24000)
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav), nil
}
