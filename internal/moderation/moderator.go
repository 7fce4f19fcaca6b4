// Package moderation flags chat messages that try to take contact or payment
// off the platform. It is a blunt keyword filter, not a classifier.
package moderation

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RedactionMarker replaces every flagged keyword occurrence in Redact.
const RedactionMarker = "[removed]"

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

type keyword struct {
	text    string
	pattern *regexp.Regexp
}

// Moderator is immutable after construction and safe for concurrent use.
type Moderator struct {
	keywords []keyword
	redact   *regexp.Regexp
}

func NewModerator(keywords []string) (*Moderator, error) {
	seen := make(map[string]struct{}, len(keywords))
	m := &Moderator{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		m.keywords = append(m.keywords, keyword{
			text:    kw,
			pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(kw)),
		})
	}
	if len(m.keywords) == 0 {
		return nil, fmt.Errorf("keyword list is empty")
	}

	// longest first so a long phrase wins over a keyword it contains
	alts := make([]string, 0, len(m.keywords))
	for _, kw := range m.keywords {
		alts = append(alts, kw.text)
	}
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, a := range alts {
		alts[i] = regexp.QuoteMeta(a)
	}
	m.redact = regexp.MustCompile("(?i)(?:" + strings.Join(alts, "|") + ")")
	return m, nil
}

// Default returns a moderator over the compiled-in keyword list.
func Default() *Moderator {
	kws, err := parseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded keyword list: %v", err))
	}
	m, err := NewModerator(kws)
	if err != nil {
		panic(fmt.Sprintf("embedded keyword list: %v", err))
	}
	return m
}

// LoadFile builds a moderator from a YAML file with a top-level "keywords" list.
func LoadFile(path string) (*Moderator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}
	kws, err := parseKeywords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyword file %s: %w", path, err)
	}
	return NewModerator(kws)
}

func parseKeywords(data []byte) ([]string, error) {
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Keywords, nil
}

// Keywords returns the list in its configured spelling and order.
func (m *Moderator) Keywords() []string {
	out := make([]string, len(m.keywords))
	for i, kw := range m.keywords {
		out[i] = kw.text
	}
	return out
}

func (m *Moderator) DetectFlaggedContent(text string) bool {
	for _, kw := range m.keywords {
		if kw.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// GetFlaggedKeywords returns each matched keyword once, in list order.
func (m *Moderator) GetFlaggedKeywords(text string) []string {
	var found []string
	for _, kw := range m.keywords {
		if kw.pattern.MatchString(text) {
			found = append(found, kw.text)
		}
	}
	return found
}

// Redact replaces every keyword occurrence with RedactionMarker and leaves the
// rest of the text untouched.
func (m *Moderator) Redact(text string) string {
	return m.redact.ReplaceAllLiteralString(text, RedactionMarker)
}

// Verdict is what callers need to warn a user and offer the cleaned message.
type Verdict struct {
	Flagged  bool     `json:"flagged"`
	Keywords []string `json:"keywords,omitempty"`
	Redacted string   `json:"redacted,omitempty"`
}

func (m *Moderator) Check(text string) Verdict {
	kws := m.GetFlaggedKeywords(text)
	if len(kws) == 0 {
		return Verdict{}
	}
	return Verdict{Flagged: true, Keywords: kws, Redacted: m.Redact(text)}
}
