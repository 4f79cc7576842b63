package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
)

const (
	// MaxContentLength bounds every free-text field sent to the model.
	MaxContentLength = 1000
	truncatedMarker  = "... (truncated)"

	eventMarker     = "=== EVENT ==="
	timestampLayout = "Mon Jan 02 2006 15:04:05 MST"
)

// FormatEvent renders one event as a fixed-order text block.
func FormatEvent(e models.Event) string {
	lines := []string{
		eventMarker,
		"Timestamp: " + formatTimestamp(e),
		"Type: " + TypeLabel(e),
		"Actor: " + e.Actor,
		"Repo: " + e.Repo,
	}

	p := e.Payload
	switch {
	case p.Comment != nil:
		lines = append(lines, "Link: "+p.Comment.URL)
		if p.Issue != nil {
			lines = append(lines,
				"Issue title: "+p.Issue.Title,
				"Issue creator: "+p.Issue.Creator,
			)
		}
		lines = append(lines, "Added comment: "+Truncate(p.Comment.Body, MaxContentLength))
	case p.Issue != nil:
		lines = append(lines,
			"Link: "+p.Issue.URL,
			"Issue creator: "+p.Issue.Creator,
			"Issue title: "+p.Issue.Title,
			"Issue description: "+Truncate(p.Issue.Body, MaxContentLength),
		)
	case p.PullRequest != nil:
		lines = append(lines,
			"Link: "+p.PullRequest.URL,
			"Pull request title: "+p.PullRequest.Title,
			"Pull request description: "+Truncate(p.PullRequest.Body, MaxContentLength),
		)
	}

	for _, page := range p.Pages {
		lines = append(lines,
			"Link: "+page.URL,
			"Title: "+page.Title,
			"Content: "+Truncate(page.Summary, MaxContentLength),
		)
	}

	return strings.Join(lines, "\n")
}

// TypeLabel is the GitHub event type, plus the ref for create/delete events
// and the payload action when there is one, e.g.
// "CreateEvent: branch feature/x" or "IssuesEvent (opened)".
func TypeLabel(e models.Event) string {
	label := e.Type
	if label == "" {
		label = "(unknown)"
	}

	if e.Kind == models.KindCreate || e.Kind == models.KindDelete {
		if ref := strings.TrimSpace(e.Payload.RefType + " " + e.Payload.Ref); ref != "" {
			label += ": " + ref
		}
	}
	if e.Payload.Action != "" {
		label += " (" + e.Payload.Action + ")"
	}
	return label
}

// Truncate cuts s to limit runes and appends a marker. Strings within the
// limit are returned unchanged, so truncating twice is a no-op.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncatedMarker
}

func formatTimestamp(e models.Event) string {
	if e.CreatedAt == nil {
		return "(unknown)"
	}
	return e.CreatedAt.Local().Format(timestampLayout)
}
