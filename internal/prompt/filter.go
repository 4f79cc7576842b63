package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
)

// noisyKinds are dropped before formatting; they rarely say anything useful
// about what was accomplished.
var noisyKinds = map[models.Kind]bool{
	models.KindPush:  true,
	models.KindWatch: true,
	models.KindFork:  true,
}

// Filter decides which collected events reach the model.
type Filter struct {
	Cutoff       time.Time
	AllowPrivate bool
	Blacklisted  func(repo string) bool
}

// Reason explains why Keep rejected an event. Empty means kept.
func (f Filter) Reason(e models.Event) string {
	switch {
	case noisyKinds[e.Kind]:
		return "noisy event type"
	case !e.Public && !f.AllowPrivate:
		return "private event"
	case f.Blacklisted != nil && f.Blacklisted(e.Repo):
		return "blacklisted repo"
	case e.CreatedAt != nil && !f.Cutoff.IsZero() && e.CreatedAt.Before(f.Cutoff):
		return "older than cutoff"
	}
	return ""
}

func (f Filter) Keep(e models.Event) bool {
	return f.Reason(e) == ""
}

// Apply returns the kept events in their original order, logging each skip.
func (f Filter) Apply(events []models.Event) []models.Event {
	kept := make([]models.Event, 0, len(events))
	for _, e := range events {
		if reason := f.Reason(e); reason != "" {
			level := slog.LevelDebug
			if reason == "private event" {
				level = slog.LevelInfo
			}
			slog.Log(context.Background(), level, "Skipping event", "id", e.ID, "type", e.Type, "repo", e.Repo, "reason", reason)
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// FormatAll filters events and renders the survivors.
func (f Filter) FormatAll(events []models.Event) []string {
	kept := f.Apply(events)
	blocks := make([]string, len(kept))
	for i, e := range kept {
		blocks[i] = FormatEvent(e)
	}
	return blocks
}
