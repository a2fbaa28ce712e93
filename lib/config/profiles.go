package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tidwall/jsonc"
)

// PromptProfile describes the prompt of one interactive program. When
// the named program is in the foreground, its pattern is matched
// against the trimmed cursor line instead of the built-in marker set.
type PromptProfile struct {
	// Program is the foreground command name this profile applies to
	// (e.g. "psql", "python3").
	Program string `json:"program"`

	// Pattern is a regular expression matched against the cursor line
	// with trailing whitespace removed.
	Pattern string `json:"pattern"`

	compiled *regexp.Regexp
}

// NewProfile builds a profile for one program from a pattern string.
func NewProfile(program, pattern string) (PromptProfile, error) {
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return PromptProfile{}, fmt.Errorf("profile %q: %w", program, err)
	}
	return PromptProfile{Program: program, Pattern: pattern, compiled: compiled}, nil
}

// Matches reports whether the trimmed cursor line looks like this
// program's prompt.
func (p *PromptProfile) Matches(line string) bool {
	return p.compiled != nil && p.compiled.MatchString(line)
}

// LoadProfiles reads a JSONC profile file. Comments and trailing commas
// are allowed; the file is an array of profiles:
//
//	[
//	  // psql prompts end in =# or -#
//	  {"program": "psql", "pattern": "[=-]#$"},
//	]
func LoadProfiles(path string) ([]PromptProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profiles []PromptProfile
	if err := json.Unmarshal(jsonc.ToJSON(data), &profiles); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i := range profiles {
		if profiles[i].Program == "" {
			return nil, fmt.Errorf("%s: profile %d has no program", path, i)
		}
		compiled, err := regexp.Compile(profiles[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: profile %q: %w", path, profiles[i].Program, err)
		}
		profiles[i].compiled = compiled
	}
	return profiles, nil
}
