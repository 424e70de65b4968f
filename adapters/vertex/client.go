// Package vertex implements the generative backend capability against a
// Vertex-style generative platform: chat completion with optional web
// search, image generation, long-running video generation, and
// text-to-speech.
//
// Every outbound call is routed through the dispatcher, so the package
// never talks to the platform outside the global serialization chain.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/internal/errors"
	"reelforge/ports"
)

// Config selects the models the client drives.
type Config struct {
	CompletionModel string
	FallbackModel   string
	ImageModel      string
	VideoModel      string
	TTSModel        string
	TTSVoice        string

	// BaseURL overrides the regional platform host, for tests.
	BaseURL string
}

// DefaultConfig returns the production model roster.
func DefaultConfig() Config {
	return Config{
		CompletionModel: "gemini-2.5-pro",
		FallbackModel:   "gemini-2.0-flash",
		ImageModel:      "imagen-4.0-generate-001",
		VideoModel:      "veo-3.1-generate-preview",
		TTSModel:        "gemini-2.5-flash-preview-tts",
		TTSVoice:        "Kore",
	}
}

// Client is the concrete GenerativeBackend.
type Client struct {
	cfg        Config
	dispatcher ports.Dispatcher
	tokens     ports.TokenSource
	http       *http.Client
	log        *logrus.Logger

	// pollInterval paces LRO polling; tests shrink it.
	pollInterval time.Duration
}

// NewClient wires the backend capability to its collaborators.
func NewClient(cfg Config, dispatcher ports.Dispatcher, tokens ports.TokenSource, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		cfg:          cfg,
		dispatcher:   dispatcher,
		tokens:       tokens,
		http:         &http.Client{Timeout: 60 * time.Second},
		log:          log,
		pollInterval: videoPollInterval,
	}
}

// part is one element of a generateContent content block.
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// generateRequest is the generateContent wire shape.
type generateRequest struct {
	Contents          []content       `json:"contents"`
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	Tools             []toolSpec      `json:"tools,omitempty"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type toolSpec struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generateConfig struct {
	ResponseMimeType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

// generateResponse is the subset of the reply the client consumes.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Completion implements ports.GenerativeBackend.
//
// JSON mode and tool use cannot be combined on this platform: with both
// requested, the structured-output mime type is left unset and an explicit
// JSON-only instruction is appended to the system directive instead. The
// parser recovers the value from whatever prose the model wraps around it.
func (c *Client) Completion(ctx context.Context, req ports.CompletionRequest) (string, error) {
	system := req.SystemInstruction
	wantsTools := false
	var tools []toolSpec
	for _, t := range req.Tools {
		if t.WebSearch {
			wantsTools = true
			tools = append(tools, toolSpec{GoogleSearch: &struct{}{}})
		}
	}

	var genCfg *generateConfig
	if req.JSONMode {
		if wantsTools {
			system += ai.JSONOnlyDirective
		} else {
			genCfg = &generateConfig{ResponseMimeType: "application/json"}
		}
	}

	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		Tools:            tools,
		GenerationConfig: genCfg,
	}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	text, err := c.generate(ctx, c.cfg.CompletionModel, c.cfg.FallbackModel, req.Priority, body)
	if err != nil {
		return "", err
	}
	if req.JSONMode {
		return ai.ExtractJSON(text)
	}
	return text, nil
}

// generate dispatches one generateContent call and concatenates the text
// parts of the first candidate.
func (c *Client) generate(ctx context.Context, model, fallback string, pri ports.Priority, body generateRequest) (string, error) {
	var out generateResponse
	err := c.dispatcher.Dispatch(ctx, ports.DispatchOpts{
		Priority:      pri,
		Model:         model,
		FallbackModel: fallback,
	}, func(ctx context.Context, region, model string) error {
		return c.post(ctx, region, model, "generateContent", body, &out)
	})
	if err != nil {
		return "", err
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", errors.ContentRejected(out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New(errors.CodeTransport, "completion returned no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// post issues one authenticated request against the regional endpoint and
// decodes the response into out. HTTP failures surface as StatusError so
// the dispatcher can classify them.
func (c *Client) post(ctx context.Context, region, model, verb string, body, out interface{}) error {
	creds, err := c.tokens.Credentials(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	host := c.cfg.BaseURL
	if host == "" {
		host = fmt.Sprintf("https://%s-aiplatform.googleapis.com", region)
	}
	url := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		host, creds.ProjectID, region, model, verb)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &ports.StatusError{Code: 599, Body: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ports.StatusError{Code: 599, Body: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return &ports.StatusError{Code: resp.StatusCode, Body: errors.Preview(string(raw), 300)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", verb, err)
		}
	}
	return nil
}
