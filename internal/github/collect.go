package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
)

const (
	eventsPerPage = 100
	maxEventPages = 3
	pageDelay     = 100 * time.Millisecond
)

// CollectEvents pages through the account's activity feed, newest first.
//
// Pagination stops at the first empty page, after maxEventPages, after a page
// that contains an event older than cutoff, or when the API answers 422 (rate
// limited or past the feed's history depth). Pages are kept whole: a page that
// crosses the cutoff is appended in full and trimming is left to the caller.
func (c *Client) CollectEvents(ctx context.Context, username string, cutoff time.Time) ([]models.Event, error) {
	var events []models.Event

	for page := 1; page <= maxEventPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to fetch events page %d: %w", page, err)
		}

		slog.Info("Fetching events", "page", page)
		batch, err := c.ListEvents(ctx, username, page)
		if err != nil {
			if IsStatus(err, http.StatusUnprocessableEntity) {
				slog.Warn("Hit rate limit or page limit, stopping", "page", page)
				break
			}
			return nil, fmt.Errorf("fetching events page %d: %w", page, err)
		}

		if len(batch) == 0 {
			break
		}
		events = append(events, batch...)

		if reachesCutoff(batch, cutoff) {
			slog.Debug("Page reaches cutoff", "page", page, "cutoff", cutoff)
			break
		}
	}

	slog.Info("Collected events", "total", len(events))
	return events, nil
}
