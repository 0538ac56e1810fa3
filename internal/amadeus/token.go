package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/flightdeck/internal/telemetry"
)

// tokenSafetyMargin is subtracted from the advertised TTL so a token that is
// valid at check time is still valid at use time.
const tokenSafetyMargin = 60 * time.Second

const defaultTokenTTL = 3600 // seconds, when the exchange omits expires_in

// AuthError reports a failed client-credentials exchange, carrying the
// upstream status and body so the envelope can surface them.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to get Amadeus access token: %d - %s", e.StatusCode, e.Body)
}

// TokenSource caches an Amadeus access token and refreshes it lazily via the
// client-credentials grant. The check-then-refresh sequence is mutex-guarded,
// which also collapses concurrent refreshes into a single exchange. A failed
// exchange caches nothing, so the next call retries it. The source performs
// no retries itself.
type TokenSource struct {
	clientID     string
	clientSecret string
	authURL      string
	httpClient   *http.Client
	logger       *log.Logger
	telemetry    *telemetry.Telemetry

	now func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewTokenSource builds a token source for the given credential pair. An
// empty id or secret is allowed; Configured reports it and Token refuses it.
func NewTokenSource(clientID, clientSecret, authURL string, client *http.Client, logger *log.Logger, tel *telemetry.Telemetry) *TokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      authURL,
		httpClient:   client,
		logger:       logger,
		telemetry:    tel,
		now:          time.Now,
	}
}

// Configured reports whether a credential pair was supplied at all. Callers
// check this before Token to avoid a wasted exchange for a statically
// unsatisfiable precondition.
func (t *TokenSource) Configured() bool {
	return strings.TrimSpace(t.clientID) != "" && strings.TrimSpace(t.clientSecret) != ""
}

// Token returns the cached access token, refreshing it when it is within the
// safety margin of expiry.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken != "" && t.now().Before(t.expiresAt) {
		return t.accessToken, nil
	}

	t.logger.Printf("requesting new Amadeus access token")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.telemetry.IncTokenRefresh("transport_error")
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		t.telemetry.IncTokenRefresh("rejected")
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		t.telemetry.IncTokenRefresh("malformed")
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		t.telemetry.IncTokenRefresh("malformed")
		return "", fmt.Errorf("token response missing access_token")
	}
	if tokenResp.ExpiresIn <= 0 {
		tokenResp.ExpiresIn = defaultTokenTTL
	}

	t.accessToken = tokenResp.AccessToken
	t.expiresAt = t.now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSafetyMargin)
	t.telemetry.IncTokenRefresh("ok")
	t.logger.Printf("access token obtained, valid until %s", t.expiresAt.Format(time.RFC3339))
	return t.accessToken, nil
}
