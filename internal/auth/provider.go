// Package auth acquires bearer tokens for the agent API.
package auth

import (
	"context"

	"github.com/rotisserie/eris"
)

// TokenProvider supplies a bearer token. A failure here is batch-fatal:
// nothing can run without a token.
type TokenProvider interface {
	AcquireToken(ctx context.Context) (string, error)
}

// StaticProvider returns a token configured up front (config file or env).
type StaticProvider struct {
	Token string
}

func (p StaticProvider) AcquireToken(context.Context) (string, error) {
	if p.Token == "" {
		return "", eris.New("auth: no token configured; set auth.token or use devicecode mode")
	}
	return p.Token, nil
}
