package llm

import (
	"strings"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	DefaultReasoningClose = "</think>"
	DefaultFencePrefix    = "```"
)

// Extractor pulls the fenced answer out of raw model output.
type Extractor struct {
	// ReasoningClose ends the reasoning segment some models emit before the
	// answer. Empty disables stripping.
	ReasoningClose string
	// FencePrefix marks lines that open or close a fenced block.
	FencePrefix string
}

var DefaultExtractor = Extractor{
	ReasoningClose: DefaultReasoningClose,
	FencePrefix:    DefaultFencePrefix,
}

// Extract strips reasoning and returns the fenced content, or "" when the
// output has no fenced block.
func (x Extractor) Extract(raw string) string {
	return x.ExtractFenced(x.StripReasoning(raw))
}

// StripReasoning drops everything up to and including the last reasoning
// close marker.
func (x Extractor) StripReasoning(s string) string {
	if x.ReasoningClose == "" {
		return s
	}
	if i := strings.LastIndex(s, x.ReasoningClose); i != -1 {
		return s[i+len(x.ReasoningClose):]
	}
	return s
}

// ExtractFenced collects the lines of every fenced region, in order, and
// trims the result.
func (x Extractor) ExtractFenced(s string) string {
	prefix := x.FencePrefix
	if prefix == "" {
		prefix = DefaultFencePrefix
	}

	var collected []string
	inside := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, prefix) {
			inside = !inside
			continue
		}
		if inside {
			collected = append(collected, line)
		}
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

// ParseSummary decodes the extracted text as a YAML list of strings. Bullets
// that are not valid YAML scalars (a leading "[", an embedded ": ") fall back
// to line-based parsing.
func ParseSummary(text string) models.Summary {
	s := models.Summary{Text: text}
	if text == "" {
		return s
	}

	var bullets []string
	if err := yaml.Unmarshal([]byte(text), &bullets); err == nil && len(bullets) > 0 {
		s.Bullets = bullets
		return s
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if b, ok := strings.CutPrefix(line, "- "); ok {
			s.Bullets = append(s.Bullets, strings.TrimSpace(b))
		}
	}
	return s
}
