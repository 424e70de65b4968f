// Package auth exchanges service credentials for short-lived bearer tokens
// through the local auth proxy and caches the result.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"reelforge/internal/errors"
	"reelforge/ports"
)

// safetyMargin is shaved off the recorded expiry so a token is never used
// in its final minutes. With the platform's one-hour tokens this yields the
// roughly 50-minute cache the backend expects.
const safetyMargin = 10 * time.Minute

// tokenResponse is the auth proxy's reply shape.
type tokenResponse struct {
	Token     string `json:"token"`
	ProjectID string `json:"projectId"`
	ExpiresIn int    `json:"expiresIn"`
}

// Service implements ports.TokenSource against the local auth proxy.
// Concurrent refreshes collapse into a single exchange via singleflight.
type Service struct {
	endpoint string
	client   *http.Client
	log      *logrus.Logger
	now      func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	cached ports.Credentials
	expiry time.Time
}

// NewService creates a token service pointed at the auth proxy endpoint.
func NewService(endpoint string, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
		now:      time.Now,
	}
}

// Credentials returns a cached token when still fresh, otherwise performs
// one exchange. Failure is fatal for the run: there is no degraded mode
// without a token.
func (s *Service) Credentials(ctx context.Context) (ports.Credentials, error) {
	s.mu.Lock()
	if s.cached.Token != "" && s.now().Before(s.expiry) {
		creds := s.cached
		s.mu.Unlock()
		return creds, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		return s.exchange(ctx)
	})
	if err != nil {
		return ports.Credentials{}, errors.AuthUnavailable(err)
	}
	return v.(ports.Credentials), nil
}

func (s *Service) exchange(ctx context.Context) (ports.Credentials, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, nil)
	if err != nil {
		return ports.Credentials{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ports.Credentials{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.Credentials{}, fmt.Errorf("auth proxy returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return ports.Credentials{}, fmt.Errorf("auth proxy returned unparseable body: %w", err)
	}
	if tr.Token == "" {
		return ports.Credentials{}, fmt.Errorf("auth proxy returned an empty token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 3600
	}

	creds := ports.Credentials{Token: tr.Token, ProjectID: tr.ProjectID}
	ttl := time.Duration(tr.ExpiresIn)*time.Second - safetyMargin
	if ttl < time.Minute {
		ttl = time.Minute
	}

	s.mu.Lock()
	s.cached = creds
	s.expiry = s.now().Add(ttl)
	s.mu.Unlock()

	s.log.WithField("ttl", ttl).Info("[Auth] token refreshed")
	return creds, nil
}
