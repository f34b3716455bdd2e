package redditapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/redpull/internal/httpx"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/secrets"
)

const installedClientGrant = "https://oauth.reddit.com/grants/installed_client"

// TokenSource supplies bearer tokens for listing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops a token the server rejected.
	Invalidate()
}

// AnonymousTokens obtains application-only tokens through the installed-client
// grant. Tokens are cached and renewed ahead of expiry.
type AnonymousTokens struct {
	http      *httpx.Client
	tokenURL  string
	clientID  string
	deviceID  string
	userAgent string
	now       func() time.Time

	mu          sync.RWMutex
	accessToken string
	renewAt     time.Time
}

// NewAnonymousTokens creates a token source for clientID.
func NewAnonymousTokens(hc *httpx.Client, tokenURL, clientID, deviceID, userAgent string) *AnonymousTokens {
	return &AnonymousTokens{
		http:      hc,
		tokenURL:  tokenURL,
		clientID:  clientID,
		deviceID:  deviceID,
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Token returns a cached token or fetches a new one.
func (a *AnonymousTokens) Token(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.accessToken != "" && a.now().Before(a.renewAt) {
		tok := a.accessToken
		a.mu.RUnlock()
		return tok, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	// another caller may have refreshed while we waited
	if a.accessToken != "" && a.now().Before(a.renewAt) {
		return a.accessToken, nil
	}
	return a.refreshLocked(ctx)
}

// Invalidate forces the next Token call to fetch a new token.
func (a *AnonymousTokens) Invalidate() {
	a.mu.Lock()
	a.accessToken = ""
	a.renewAt = time.Time{}
	a.mu.Unlock()
}

func (a *AnonymousTokens) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", installedClientGrant)
	form.Set("device_id", a.deviceID)

	resp, err := a.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(a.clientID, "")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", a.userAgent)
		return req, nil
	})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("token request failed: %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("received empty access token")
	}

	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime > 120*time.Second {
		lifetime -= 60 * time.Second
	} else {
		lifetime /= 2
	}
	a.accessToken = tokenResp.AccessToken
	a.renewAt = a.now().Add(lifetime)
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	logger.FromContext(ctx).Info("obtained anonymous access token",
		"client_id", secrets.Mask(a.clientID), "renew_in", lifetime)
	return a.accessToken, nil
}
