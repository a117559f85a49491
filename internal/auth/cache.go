package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// cachedToken is the on-disk token cache entry.
type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// valid reports whether the access token is still usable, with a minute of
// slack for clock skew and request latency.
func (c cachedToken) valid(now time.Time) bool {
	return c.AccessToken != "" && now.Add(time.Minute).Before(c.ExpiresAt)
}

func loadTokenCache(path string) (cachedToken, bool) {
	var token cachedToken
	data, err := os.ReadFile(path)
	if err != nil {
		return token, false
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return cachedToken{}, false
	}
	return token, true
}

func saveTokenCache(path string, token cachedToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return eris.Wrap(err, "auth: marshal token cache")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return eris.Wrap(err, "auth: create cache dir")
	}
	// Owner-only: the file holds credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrap(err, "auth: write token cache")
	}
	return nil
}
