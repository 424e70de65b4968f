package ports

import "context"

// Credentials is the product of a service-credentials exchange.
type Credentials struct {
	Token     string
	ProjectID string
}

// TokenSource yields a valid bearer token for the generative platform.
// Implementations cache the token until its recorded expiry minus a safety
// margin.
type TokenSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}
