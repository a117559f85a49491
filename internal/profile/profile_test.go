package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeProfiles(t, `
profiles:
  default:
    provider: copilot
  claude:
    provider: anthropic
    model: claude-sonnet-4-5-20250929
    max_tokens: 2048
    system: Answer concisely.
`)

	f, err := Load(path)
	require.NoError(t, err)

	p, err := f.Get("claude")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.Model)
	assert.Equal(t, int64(2048), p.MaxTokens)
	assert.Equal(t, "Answer concisely.", p.System)

	d, err := f.Get("default")
	require.NoError(t, err)
	assert.Equal(t, ProviderCopilot, d.Provider)
}

func TestLoadUnknownProvider(t *testing.T) {
	t.Parallel()

	path := writeProfiles(t, "profiles:\n  bad:\n    provider: carrier-pigeon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetMissingProfile(t *testing.T) {
	t.Parallel()

	path := writeProfiles(t, "profiles:\n  only:\n    provider: copilot\n")
	f, err := Load(path)
	require.NoError(t, err)

	_, err = f.Get("other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
