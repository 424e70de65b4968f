package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelforge/internal/errors"
)

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestCredentialsCachedUntilSafetyMargin(t *testing.T) {
	var exchanges int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&exchanges, 1)
		w.Write([]byte(`{"token": "tok-1", "projectId": "proj-a", "expiresIn": 3600}`))
	}))
	defer proxy.Close()

	now := time.Unix(1700000000, 0)
	svc := NewService(proxy.URL, quietLog())
	svc.now = func() time.Time { return now }

	creds, err := svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", creds.Token)
	assert.Equal(t, "proj-a", creds.ProjectID)

	// Within the ~50-minute window the cache answers.
	now = now.Add(49 * time.Minute)
	_, err = svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))

	// Past the margin a fresh exchange happens.
	now = now.Add(2 * time.Minute)
	_, err = svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&exchanges))
}

func TestCredentialsDefaultExpiry(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No expiresIn: the service assumes the platform's one-hour tokens.
		w.Write([]byte(`{"token": "tok", "projectId": "p"}`))
	}))
	defer proxy.Close()

	now := time.Unix(1700000000, 0)
	svc := NewService(proxy.URL, quietLog())
	svc.now = func() time.Time { return now }

	_, err := svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour-safetyMargin), svc.expiry)
}

func TestCredentialsProxyFailureIsAuthUnavailable(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer proxy.Close()

	svc := NewService(proxy.URL, quietLog())
	_, err := svc.Credentials(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeAuthUnavailable, errors.GetCode(err))
}

func TestCredentialsEmptyTokenRejected(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token": "", "projectId": "p", "expiresIn": 3600}`))
	}))
	defer proxy.Close()

	svc := NewService(proxy.URL, quietLog())
	_, err := svc.Credentials(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeAuthUnavailable, errors.GetCode(err))
}
