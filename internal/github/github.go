package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/kevinmichaelchen/five-bullets/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client is a thin wrapper around the GitHub REST API covering the activity
// feed and the contents endpoint.
type Client struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewClient returns an authenticated client when token is set and an
// anonymous one otherwise. baseURL overrides the API root (GitHub Enterprise,
// tests); leave empty for api.github.com.
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	var gh *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		gh = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		gh = github.NewClient(nil)
	}

	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		client:  gh,
		limiter: rate.NewLimiter(rate.Every(pageDelay), 1),
	}, nil
}

// ListEvents returns one page of events performed by username, newest first.
func (c *Client) ListEvents(ctx context.Context, username string, page int) ([]models.Event, error) {
	raw, _, err := c.client.Activity.ListEventsPerformedByUser(ctx, username, false, &github.ListOptions{
		PerPage: eventsPerPage,
		Page:    page,
	})
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(raw))
	for _, e := range raw {
		ev, err := toEvent(e)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// IsStatus reports whether err is a GitHub API error with the given HTTP
// status code.
func IsStatus(err error, status int) bool {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == status
	}
	return false
}

// --- internal ---

type eventPayload struct {
	Action      *string              `json:"action"`
	Ref         *string              `json:"ref"`
	RefType     *string              `json:"ref_type"`
	Issue       *github.Issue        `json:"issue"`
	Comment     *github.IssueComment `json:"comment"`
	PullRequest *github.PullRequest  `json:"pull_request"`
	Pages       []*github.Page       `json:"pages"`
}

func toEvent(e *github.Event) (models.Event, error) {
	ev := models.Event{
		ID:     e.GetID(),
		Type:   e.GetType(),
		Kind:   models.KindOf(e.GetType()),
		Actor:  e.GetActor().GetLogin(),
		Repo:   e.GetRepo().GetName(),
		Public: e.GetPublic(),
	}
	if e.CreatedAt != nil {
		t := e.CreatedAt.Time
		ev.CreatedAt = &t
	}

	raw := e.GetRawPayload()
	if len(raw) == 0 {
		return ev, nil
	}

	var p eventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Event{}, fmt.Errorf("parsing payload of %s %s: %w", ev.Type, ev.ID, err)
	}

	ev.Payload = models.Payload{
		Action:  deref(p.Action),
		Ref:     deref(p.Ref),
		RefType: deref(p.RefType),
	}
	if p.Issue != nil {
		ev.Payload.Issue = &models.Issue{
			URL:     p.Issue.GetHTMLURL(),
			Title:   p.Issue.GetTitle(),
			Creator: p.Issue.GetUser().GetLogin(),
			Body:    p.Issue.GetBody(),
		}
	}
	if p.Comment != nil {
		ev.Payload.Comment = &models.Comment{
			URL:  p.Comment.GetHTMLURL(),
			Body: p.Comment.GetBody(),
		}
	}
	if p.PullRequest != nil {
		ev.Payload.PullRequest = &models.PullRequest{
			URL:   p.PullRequest.GetHTMLURL(),
			Title: p.PullRequest.GetTitle(),
			Body:  p.PullRequest.GetBody(),
		}
	}
	for _, page := range p.Pages {
		ev.Payload.Pages = append(ev.Payload.Pages, models.WikiPage{
			URL:     page.GetHTMLURL(),
			Title:   page.GetTitle(),
			Summary: page.GetSummary(),
		})
	}
	return ev, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// reachesCutoff reports whether any event on the page is older than cutoff.
func reachesCutoff(events []models.Event, cutoff time.Time) bool {
	for _, e := range events {
		if e.CreatedAt != nil && e.CreatedAt.Before(cutoff) {
			return true
		}
	}
	return false
}
