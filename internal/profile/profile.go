// Package profile loads named backend profiles from a YAML file.
package profile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in a profile.
const (
	ProviderCopilot   = "copilot"
	ProviderAnthropic = "anthropic"
)

// Profile selects and tunes a conversational backend.
type Profile struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int64  `yaml:"max_tokens,omitempty"`
	System    string `yaml:"system,omitempty"`
}

// File is the top-level shape of a profiles file.
type File struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Load reads profiles from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "profile: parse")
	}

	for name, p := range f.Profiles {
		if p.Provider != ProviderCopilot && p.Provider != ProviderAnthropic {
			return nil, eris.Errorf("profile: %s: unknown provider %q", name, p.Provider)
		}
	}

	return &f, nil
}

// Get returns the named profile.
func (f *File) Get(name string) (Profile, error) {
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, eris.Errorf("profile: %q not found", name)
	}
	return p, nil
}
