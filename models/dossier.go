package models

// Dossier is the factual profile of the product under production. It is
// created by the Researcher and only ever enriched afterwards: agents may
// append facts but must never overwrite or delete what an earlier agent
// recorded.
type Dossier struct {
	ProductName        string            `json:"productName"`
	Description        string            `json:"description"`
	Images             []string          `json:"images"`
	Features           []string          `json:"features"`
	ReferenceVideoURLs []string          `json:"referenceVideoUrls"`
	VisualDNA          string            `json:"visualDna"`
	Specs              map[string]string `json:"specs"`
	Reviews            []string          `json:"reviews"`
	PainPoints         []string          `json:"painPoints"`
	SentimentScore     int               `json:"sentimentScore"`
	ProductURL         string            `json:"productUrl"`
}

// NewDossier seeds a minimal dossier from the caller inputs. The reference
// video URL is preserved even when discovery later fails entirely.
func NewDossier(productURL, referenceVideoURL string) *Dossier {
	refs := []string{}
	if referenceVideoURL != "" {
		refs = append(refs, referenceVideoURL)
	}
	return &Dossier{
		ProductName:        "Pending",
		Images:             []string{},
		Features:           []string{},
		ReferenceVideoURLs: refs,
		Specs:              map[string]string{},
		Reviews:            []string{},
		PainPoints:         []string{},
		ProductURL:         productURL,
	}
}

// AddFeature appends a feature, skipping duplicates. Features form a set.
func (d *Dossier) AddFeature(feature string) {
	for _, f := range d.Features {
		if f == feature {
			return
		}
	}
	d.Features = append(d.Features, feature)
}

// AddReferenceVideoURL appends a reference video URL, skipping duplicates.
func (d *Dossier) AddReferenceVideoURL(url string) {
	for _, u := range d.ReferenceVideoURLs {
		if u == url {
			return
		}
	}
	d.ReferenceVideoURLs = append(d.ReferenceVideoURLs, url)
}

// Merge enriches the dossier with discovery facts. Scalar fields are only
// taken when the dossier does not already carry a value; collections are
// appended set-wise. This is what keeps the dossier append-only.
func (d *Dossier) Merge(facts *Dossier) {
	if facts == nil {
		return
	}
	if d.ProductName == "" || d.ProductName == "Pending" {
		d.ProductName = facts.ProductName
	}
	if d.Description == "" {
		d.Description = facts.Description
	}
	if d.VisualDNA == "" {
		d.VisualDNA = facts.VisualDNA
	}
	if d.SentimentScore == 0 {
		d.SentimentScore = facts.SentimentScore
	}
	for _, f := range facts.Features {
		d.AddFeature(f)
	}
	for _, u := range facts.ReferenceVideoURLs {
		d.AddReferenceVideoURL(u)
	}
	d.Images = append(d.Images, facts.Images...)
	d.Reviews = append(d.Reviews, facts.Reviews...)
	d.PainPoints = append(d.PainPoints, facts.PainPoints...)
	for k, v := range facts.Specs {
		if _, exists := d.Specs[k]; !exists {
			d.Specs[k] = v
		}
	}
}
