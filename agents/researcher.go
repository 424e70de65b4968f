package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/models"
	"reelforge/ports"
)

const (
	researcherName = "Researcher"
	researcherRole = "Fact-Based Market Analyst"
)

// Researcher populates the dossier. It carries two sub-skills, each a
// single completion call: Discovery (web-search-backed product scan) and
// Sentiment (review mining).
type Researcher struct {
	backend ports.GenerativeBackend
	log     *logrus.Logger
}

// NewResearcher creates the roster's first agent.
func NewResearcher(backend ports.GenerativeBackend, log *logrus.Logger) *Researcher {
	return &Researcher{backend: backend, log: log}
}

func (r *Researcher) Name() string { return researcherName }

// discoveryResult is the Discovery sub-skill's required output shape.
type discoveryResult struct {
	ProductName        string            `json:"productName"`
	Description        string            `json:"description"`
	VisualDNA          string            `json:"visualDna"`
	Features           []string          `json:"features"`
	Specs              map[string]string `json:"specs"`
	ReferenceVideoURLs []string          `json:"referenceVideoUrls"`
	Images             []string          `json:"images"`
}

// sentimentResult is the Sentiment sub-skill's required output shape.
type sentimentResult struct {
	PainPoints     []string `json:"painPoints"`
	Reviews        []string `json:"reviews"`
	SentimentScore int      `json:"sentimentScore"`
}

// Execute runs Discovery then Sentiment and merges both into the dossier.
// A Discovery failure is recovered locally: the pipeline continues on a
// minimal dossier rather than aborting the whole run.
func (r *Researcher) Execute(ctx context.Context, run *Context) error {
	run.Say(researcherName, researcherRole,
		fmt.Sprintf("Starting comprehensive scan of %s and analysis of reference video...", run.Dossier.ProductURL),
		models.DialogueThought)

	facts, err := r.discover(ctx, run)
	if err != nil {
		// Recovered locally per the propagation policy: keep the caller's
		// URL, continue with whatever the dossier already holds.
		r.log.WithError(err).Warn("[Researcher] discovery failed, continuing on minimal dossier")
		run.Say(researcherName, researcherRole,
			"Product scan failed; continuing with a minimal dossier.", models.DialogueFinding)
	} else {
		refURL := ""
		if len(run.Dossier.ReferenceVideoURLs) > 0 {
			refURL = run.Dossier.ReferenceVideoURLs[0]
		}
		run.Dossier.Merge(&models.Dossier{
			ProductName:        facts.ProductName,
			Description:        facts.Description,
			VisualDNA:          facts.VisualDNA,
			Features:           facts.Features,
			Specs:              facts.Specs,
			ReferenceVideoURLs: facts.ReferenceVideoURLs,
			Images:             facts.Images,
		})
		// The caller-provided reference URL must survive whatever the
		// model returned.
		if refURL != "" {
			run.Dossier.AddReferenceVideoURL(refURL)
		}
		run.Say(researcherName, researcherRole,
			fmt.Sprintf("Product Scan Complete: Identified %q. Visual DNA: %q. Key features found: %s",
				facts.ProductName, facts.VisualDNA, strings.Join(headOf(facts.Features, 3), ", ")),
			models.DialogueFinding)
	}

	if run.Dossier.ProductName != "" && run.Dossier.ProductName != "Pending" {
		run.Say(researcherName, researcherRole,
			fmt.Sprintf("Consulting Reddit and consumer forums to identify real-world objections for %s...", run.Dossier.ProductName),
			models.DialogueThought)

		sentiment, err := r.analyzeSentiment(ctx, run.Dossier.ProductName)
		if err != nil {
			r.log.WithError(err).Warn("[Researcher] sentiment analysis failed, dossier keeps no objections")
		} else {
			run.Dossier.Merge(&models.Dossier{
				PainPoints:     sentiment.PainPoints,
				Reviews:        sentiment.Reviews,
				SentimentScore: sentiment.SentimentScore,
			})
		}
	}

	painJSON, _ := json.Marshal(run.Dossier.PainPoints)
	run.Board.Record(researcherName, researcherRole,
		fmt.Sprintf("Extracted Visual DNA: %q. Identified key objections: %s", run.Dossier.VisualDNA, painJSON),
		run.Dossier)
	return nil
}

func (r *Researcher) discover(ctx context.Context, run *Context) (*discoveryResult, error) {
	videoURL := ""
	if len(run.Dossier.ReferenceVideoURLs) > 0 {
		videoURL = run.Dossier.ReferenceVideoURLs[0]
	}
	prompt := ai.Render(ai.ResearcherDiscoveryPrompt, map[string]string{
		"PRODUCT_URL": run.Dossier.ProductURL,
		"VIDEO_URL":   videoURL,
	})
	out, _, err := completeJSON[discoveryResult](ctx, r.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.ResearcherSystem,
		Tools:             []ports.Tool{{WebSearch: true}},
	})
	return out, err
}

func (r *Researcher) analyzeSentiment(ctx context.Context, productName string) (*sentimentResult, error) {
	prompt := ai.Render(ai.ResearcherSentimentPrompt, map[string]string{
		"PRODUCT_NAME": productName,
	})
	out, _, err := completeJSON[sentimentResult](ctx, r.backend, ports.CompletionRequest{
		Prompt:            prompt,
		SystemInstruction: ai.ResearcherSystem,
		Tools:             []ports.Tool{{WebSearch: true}},
	})
	return out, err
}

func headOf(items []string, n int) []string {
	if len(items) < n {
		return items
	}
	return items[:n]
}
