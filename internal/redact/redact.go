// Package redact masks sensitive values in captured log messages before
// they enter the shared buffer. Drained records never contain the
// original text, so downstream sinks stay clean too.
package redact

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/avoronov/ringlog/internal/luhn"
)

// Pattern is a named sensitive-data pattern with its replacement marker.
type Pattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	re          *regexp.Regexp
	validate    func(string) bool // optional post-match validation
}

// Redactor applies the active patterns to message text.
type Redactor struct {
	patterns []Pattern
	onHit    func(pattern string) // optional callback per redaction hit
}

var builtinPatterns = []Pattern{
	{
		Name:        "credit_card",
		Pattern:     `\b(\d[ -]*?){13,19}\b`,
		Replacement: "[REDACTED:cc]",
	},
	{
		Name:        "email",
		Pattern:     `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
		Replacement: "[REDACTED:email]",
	},
	{
		Name:        "jwt",
		Pattern:     `eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`,
		Replacement: "[REDACTED:jwt]",
	},
	{
		Name:        "bearer",
		Pattern:     `(?i)(?:Bearer\s+|Authorization:\s*Bearer\s+)[A-Za-z0-9_\-.]+`,
		Replacement: "[REDACTED:bearer]",
	},
	{
		Name:        "ssn",
		Pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
		Replacement: "[REDACTED:ssn]",
	},
}

// New creates a Redactor with the named built-in patterns enabled.
// An empty names list enables all built-ins.
func New(names []string) (*Redactor, error) {
	var selected []Pattern
	if len(names) == 0 {
		selected = append(selected, builtinPatterns...)
	} else {
		byName := make(map[string]Pattern)
		for _, p := range builtinPatterns {
			byName[p.Name] = p
		}
		for _, n := range names {
			p, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("unknown redaction pattern: %s", n)
			}
			selected = append(selected, p)
		}
	}
	return compile(selected)
}

// LoadCustomPatterns appends patterns from a YAML file.
func (r *Redactor) LoadCustomPatterns(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read patterns file: %w", err)
	}
	var customs []Pattern
	if err := yaml.Unmarshal(data, &customs); err != nil {
		return fmt.Errorf("parse patterns file: %w", err)
	}
	compiled, err := compile(customs)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, compiled.patterns...)
	return nil
}

// SetOnHit sets a callback invoked with the pattern name on each hit.
func (r *Redactor) SetOnHit(fn func(pattern string)) {
	r.onHit = fn
}

// Apply replaces all matching sensitive values in msg with markers.
func (r *Redactor) Apply(msg string) string {
	for _, p := range r.patterns {
		if p.validate != nil {
			name := p.Name
			msg = p.re.ReplaceAllStringFunc(msg, func(match string) string {
				if p.validate(match) {
					if r.onHit != nil {
						r.onHit(name)
					}
					return p.Replacement
				}
				return match
			})
		} else {
			before := msg
			msg = p.re.ReplaceAllString(msg, p.Replacement)
			if msg != before && r.onHit != nil {
				r.onHit(p.Name)
			}
		}
	}
	return msg
}

// PatternNames returns the names of active patterns.
func (r *Redactor) PatternNames() []string {
	names := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		names[i] = p.Name
	}
	return names
}

func compile(patterns []Pattern) (*Redactor, error) {
	compiled := make([]Pattern, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %s: %w", p.Name, err)
		}
		compiled[i] = p
		compiled[i].re = re
		if p.Name == "credit_card" {
			compiled[i].validate = luhn.ValidCardNumber
		}
	}
	return &Redactor{patterns: compiled}, nil
}

// ParseSpec parses a --redact flag value. Empty means disabled,
// "true" enables every built-in, "a,b" enables a subset.
func ParseSpec(val string) (enabled bool, names []string) {
	if val == "" {
		return false, nil
	}
	if val == "true" {
		return true, nil
	}
	parts := strings.Split(val, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return true, parts
}
