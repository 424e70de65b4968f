package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reelforge/ai"
	"reelforge/models"
	"reelforge/ports"
)

// maxReferenceImages caps how many dossier images are fetched for the
// two-step anchor protocol.
const maxReferenceImages = 5

// Anchorer pins each approved box to a generated product image. Reference
// fetching and per-box generation both degrade gracefully: a box without an
// anchor is a lesser artifact, not a failed run.
type Anchorer struct {
	backend ports.GenerativeBackend
	client  *http.Client
	log     *logrus.Logger
}

// NewAnchorer builds the image acquisition stage.
func NewAnchorer(backend ports.GenerativeBackend, log *logrus.Logger) *Anchorer {
	return &Anchorer{
		backend: backend,
		client:  &http.Client{Timeout: 20 * time.Second},
		log:     log,
	}
}

// FetchReferences downloads the dossier's product images, sequentially, up
// to the cap. Individual fetch failures are skipped without noise; only the
// successes become references.
func (a *Anchorer) FetchReferences(ctx context.Context, dossier *models.Dossier) []models.AnchorImage {
	var refs []models.AnchorImage
	for _, url := range dossier.Images {
		if len(refs) >= maxReferenceImages {
			break
		}
		if ctx.Err() != nil {
			break
		}
		img, err := a.fetchOne(ctx, url)
		if err != nil {
			a.log.WithError(err).WithField("url", url).Debug("[Anchorer] reference image skipped")
			continue
		}
		refs = append(refs, *img)
	}
	a.log.WithField("count", len(refs)).Info("[Anchorer] reference images acquired")
	return refs
}

func (a *Anchorer) fetchOne(ctx context.Context, url string) (*models.AnchorImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return &models.AnchorImage{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mime,
	}, nil
}

// AnchorSequence generates a static anchor for every slot in order. A box
// whose anchor fails keeps going: the failure is logged and the slot ships
// without an image. Boxes that reached anchoring without an image prompt
// fall back to a deterministic product-photography prompt when the dossier
// carries enough detail to support one.
func (a *Anchorer) AnchorSequence(ctx context.Context, artifact *models.SequenceArtifact, dossier *models.Dossier, refs []models.AnchorImage, obs ports.Observer) {
	for i := range artifact.Slots {
		if ctx.Err() != nil {
			return
		}
		slot := &artifact.Slots[i]
		prompt := slot.Box.ImagePrompt
		if prompt == "" {
			if dossier.VisualDNA == "" {
				a.log.WithField("rank", slot.Rank).Warn("[Anchorer] box has no image prompt and dossier is thin, skipping")
				continue
			}
			prompt = ai.Render(ai.AnchorFallbackPrompt, map[string]string{
				"PRODUCT_NAME": dossier.ProductName,
				"VISUAL_DNA":   dossier.VisualDNA,
				"DESCRIPTION":  strings.Join(dossier.Features, ", "),
			})
		}

		obs.Progress(fmt.Sprintf("Anchoring shot %d/%d", slot.Rank, len(artifact.Slots)))
		img, err := a.backend.Image(ctx, ports.ImageRequest{
			Prompt:          prompt,
			AspectRatio:     ports.AspectPortrait,
			ReferenceImages: refs,
			Priority:        ports.PriorityAgent,
		})
		if err != nil {
			a.log.WithError(err).WithField("rank", slot.Rank).Warn("[Anchorer] anchor generation failed, slot ships without image")
			continue
		}
		slot.Box.AnchorImage = img
	}
}
