package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/copilot-qa/internal/auth"
	"github.com/sells-group/copilot-qa/internal/batch"
	"github.com/sells-group/copilot-qa/internal/profile"
	"github.com/sells-group/copilot-qa/internal/store"
	"github.com/sells-group/copilot-qa/pkg/anthropic"
	"github.com/sells-group/copilot-qa/pkg/copilot"
)

// buildAgent constructs the conversational backend. A named profile picks
// the provider explicitly; without one the Copilot agent from config is
// used, falling back to Anthropic when only an Anthropic key is configured.
func buildAgent(ctx context.Context, profileName string) (batch.Agent, error) {
	if profileName != "" {
		if cfg.Profiles.Path == "" {
			return nil, eris.New("cmd: --profile requires profiles.path to be configured")
		}
		profiles, err := profile.Load(cfg.Profiles.Path)
		if err != nil {
			return nil, err
		}
		p, err := profiles.Get(profileName)
		if err != nil {
			return nil, err
		}
		return agentForProfile(ctx, p)
	}

	if cfg.Copilot.EnvironmentID == "" && cfg.Copilot.AgentID == "" && cfg.Anthropic.Key != "" {
		return anthropicAgent(profile.Profile{})
	}
	return copilotAgent(ctx)
}

func agentForProfile(ctx context.Context, p profile.Profile) (batch.Agent, error) {
	switch p.Provider {
	case profile.ProviderAnthropic:
		return anthropicAgent(p)
	default:
		return copilotAgent(ctx)
	}
}

func copilotAgent(ctx context.Context) (batch.Agent, error) {
	if cfg.Copilot.EnvironmentID == "" || cfg.Copilot.AgentID == "" {
		return nil, eris.New("cmd: copilot.environment_id and copilot.agent_id must be configured")
	}

	token, err := tokenProvider().AcquireToken(ctx)
	if err != nil {
		return nil, err
	}

	opts := []copilot.Option{
		copilot.WithTimeout(time.Duration(cfg.Copilot.TimeoutSecs) * time.Second),
	}
	if cfg.Copilot.BaseURL != "" {
		opts = append(opts, copilot.WithBaseURL(cfg.Copilot.BaseURL))
	}

	return copilot.NewClient(token, cfg.Copilot.EnvironmentID, cfg.Copilot.AgentID, opts...), nil
}

func anthropicAgent(p profile.Profile) (batch.Agent, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("cmd: anthropic.key must be configured")
	}

	model := p.Model
	if model == "" {
		model = cfg.Anthropic.Model
	}
	maxTokens := p.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.Anthropic.MaxTokens
	}
	system := p.System
	if system == "" {
		system = cfg.Anthropic.System
	}

	var opts []anthropic.Option
	if maxTokens > 0 {
		opts = append(opts, anthropic.WithMaxTokens(maxTokens))
	}
	if system != "" {
		opts = append(opts, anthropic.WithSystem(system))
	}

	return anthropic.NewSessionClient(cfg.Anthropic.Key, model, opts...), nil
}

// tokenProvider picks the auth mode for the Copilot backend.
func tokenProvider() auth.TokenProvider {
	if cfg.Auth.Mode == "devicecode" {
		cachePath := cfg.Auth.CachePath
		if cachePath == "" {
			home, err := os.UserHomeDir()
			if err == nil {
				cachePath = filepath.Join(home, ".copilot-qa", "token.json")
			}
		}
		return auth.NewDeviceCodeProvider(cfg.Auth.TenantID, cfg.Auth.ClientID, cfg.Auth.Scope, cachePath)
	}
	return auth.StaticProvider{Token: cfg.Auth.Token}
}

// initStore opens the local run-history database and applies migrations.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
