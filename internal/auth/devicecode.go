package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DeviceCodeProvider acquires tokens interactively via the OAuth2 device
// authorization grant against the Microsoft identity platform, caching the
// result on disk so subsequent runs are silent until the token expires.
type DeviceCodeProvider struct {
	tenantID  string
	clientID  string
	scope     string
	cachePath string

	baseURL      string
	http         *http.Client
	prompt       io.Writer
	now          func() time.Time
	pollOverride time.Duration
}

// DeviceCodeOption configures the provider.
type DeviceCodeOption func(*DeviceCodeProvider)

// WithAuthorityBaseURL overrides the identity endpoint (for testing).
func WithAuthorityBaseURL(url string) DeviceCodeOption {
	return func(p *DeviceCodeProvider) {
		p.baseURL = url
	}
}

// WithPromptWriter sets where the sign-in instructions are printed.
func WithPromptWriter(w io.Writer) DeviceCodeOption {
	return func(p *DeviceCodeProvider) {
		p.prompt = w
	}
}

// WithPollInterval forces the device-code poll interval (for testing).
func WithPollInterval(d time.Duration) DeviceCodeOption {
	return func(p *DeviceCodeProvider) {
		p.pollOverride = d
	}
}

// WithClock overrides the time source (for testing cache expiry).
func WithClock(now func() time.Time) DeviceCodeOption {
	return func(p *DeviceCodeProvider) {
		p.now = now
	}
}

// NewDeviceCodeProvider creates a device-code token provider.
func NewDeviceCodeProvider(tenantID, clientID, scope, cachePath string, opts ...DeviceCodeOption) *DeviceCodeProvider {
	p := &DeviceCodeProvider{
		tenantID:  tenantID,
		clientID:  clientID,
		scope:     scope,
		cachePath: cachePath,
		baseURL:   "https://login.microsoftonline.com",
		http:      &http.Client{Timeout: 30 * time.Second},
		prompt:    os.Stderr,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Interval        int    `json:"interval"`
	Message         string `json:"message"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// AcquireToken returns a cached token when still valid, refreshes it
// silently when a refresh token is available, and falls back to the
// interactive device-code prompt otherwise.
func (p *DeviceCodeProvider) AcquireToken(ctx context.Context) (string, error) {
	cached, ok := loadTokenCache(p.cachePath)
	if ok && cached.valid(p.now()) {
		return cached.AccessToken, nil
	}

	if ok && cached.RefreshToken != "" {
		token, err := p.refresh(ctx, cached.RefreshToken)
		if err == nil {
			return token, nil
		}
		zap.L().Debug("silent token refresh failed, falling back to device code", zap.Error(err))
	}

	return p.deviceCodeFlow(ctx)
}

func (p *DeviceCodeProvider) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := p.postToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.clientID},
		"scope":         {p.scope},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", eris.Errorf("auth: refresh: %s: %s", resp.Error, resp.ErrorDesc)
	}
	return p.store(resp)
}

func (p *DeviceCodeProvider) deviceCodeFlow(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id": {p.clientID},
		"scope":     {p.scope},
	}
	body, err := p.postForm(ctx, fmt.Sprintf("%s/%s/oauth2/v2.0/devicecode", p.baseURL, p.tenantID), form)
	if err != nil {
		return "", eris.Wrap(err, "auth: request device code")
	}

	var dc deviceCodeResponse
	if err := json.Unmarshal(body, &dc); err != nil {
		return "", eris.Wrap(err, "auth: unmarshal device code response")
	}
	if dc.DeviceCode == "" {
		return "", eris.Errorf("auth: device code response missing device_code: %s", string(body))
	}

	if dc.Message != "" {
		fmt.Fprintln(p.prompt, dc.Message)
	} else {
		fmt.Fprintf(p.prompt, "To sign in, visit %s and enter the code %s\n", dc.VerificationURI, dc.UserCode)
	}

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if p.pollOverride > 0 {
		interval = p.pollOverride
	}

	for {
		select {
		case <-ctx.Done():
			return "", eris.Wrap(ctx.Err(), "auth: device code flow cancelled")
		case <-time.After(interval):
		}

		resp, err := p.postToken(ctx, url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"client_id":   {p.clientID},
			"device_code": {dc.DeviceCode},
		})
		if err != nil {
			return "", err
		}

		switch resp.Error {
		case "":
			return p.store(resp)
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 5 * time.Second
		default:
			return "", eris.Errorf("auth: device code: %s: %s", resp.Error, resp.ErrorDesc)
		}
	}
}

func (p *DeviceCodeProvider) store(resp *tokenResponse) (string, error) {
	entry := cachedToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if p.cachePath != "" {
		if err := saveTokenCache(p.cachePath, entry); err != nil {
			// Cache persistence is best-effort; the token itself is good.
			zap.L().Warn("failed to persist token cache", zap.Error(err))
		}
	}
	return resp.AccessToken, nil
}

func (p *DeviceCodeProvider) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	body, err := p.postForm(ctx, fmt.Sprintf("%s/%s/oauth2/v2.0/token", p.baseURL, p.tenantID), form)
	if err != nil {
		return nil, eris.Wrap(err, "auth: token request")
	}
	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "auth: unmarshal token response")
	}
	return &resp, nil
}

func (p *DeviceCodeProvider) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	return io.ReadAll(resp.Body)
}
