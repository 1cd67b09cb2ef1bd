// Package auth performs credential checks against the external
// authentication authority.  One authenticator instance holds one HTTP
// session for the process lifetime; each card touch costs exactly one POST.
package auth

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// csrfCookieName is the session cookie the authority sets on the initial
// GET; its value is echoed back in the X-CSRFToken header on every POST.
const csrfCookieName = "csrftoken"

var ErrNoCSRFToken = errors.New("authority did not set a csrftoken cookie")

type Config struct {
	// URL of the authentication endpoint.
	URL string
	// Room scopes the decision: the response's "allow_<room>" field must
	// be true for access to be granted.
	Room string
	// Timeout bounds each authenticate round trip.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS verification (self-signed lab
	// servers).
	InsecureSkipVerify bool
}

type Authenticator struct {
	client  *http.Client
	url     string
	room    string
	token   string
	timeout time.Duration
	logger  pslog.Logger
}

// New establishes the session with the authority and captures the
// anti-forgery token.  Failure here is fatal to system start: a door that
// cannot ever authenticate should not pretend to run.
func New(ctx context.Context, cfg Config, logger pslog.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("auth: cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := &http.Client{Jar: jar, Transport: transport}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: build session request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: establish session with %s: %w", cfg.URL, err)
	}
	resp.Body.Close()

	token := csrfToken(jar, cfg.URL)
	if token == "" {
		return nil, fmt.Errorf("auth: %s: %w", cfg.URL, ErrNoCSRFToken)
	}

	logger.Info("auth.session.established", "url", cfg.URL, "room", cfg.Room)

	return &Authenticator{
		client:  client,
		url:     cfg.URL,
		room:    cfg.Room,
		token:   token,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Authenticate performs one round trip for the given credential.  It never
// returns an error: network failures, timeouts and malformed responses all
// collapse to AuthUnreachable, which the controller treats as a denial.
// There is no retry; the user can touch the card again.
func (a *Authenticator) Authenticate(ctx context.Context, credential types.Credential) types.AuthResult {
	body, err := json.Marshal(map[string]string{"idm": string(credential)})
	if err != nil {
		a.logger.Error("auth.request.marshal_failed", "error", err)
		return types.AuthResult{Status: types.AuthUnreachable}
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		a.logger.Error("auth.request.build_failed", "error", err)
		return types.AuthResult{Status: types.AuthUnreachable}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRFToken", a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("auth.request.failed", "error", err)
		return types.AuthResult{Status: types.AuthUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("auth.request.bad_status", "status", resp.StatusCode)
		return types.AuthResult{Status: types.AuthUnreachable}
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		a.logger.Warn("auth.response.malformed", "error", err)
		return types.AuthResult{Status: types.AuthUnreachable}
	}

	authField, _ := doc["auth"].(string)
	allowed, _ := doc["allow_"+a.room].(bool)
	name, _ := doc["name"].(string)

	if authField == "valid" && allowed {
		return types.AuthResult{Status: types.AuthAuthorized, Name: name}
	}
	return types.AuthResult{Status: types.AuthDenied}
}

// Close releases the authority session.  Safe to call more than once.
func (a *Authenticator) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

func csrfToken(jar http.CookieJar, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}
