package models

import "time"

// Kind is the coarse category of a GitHub activity event.
type Kind string

const (
	KindPush        Kind = "push"
	KindWatch       Kind = "watch"
	KindFork        Kind = "fork"
	KindCreate      Kind = "create"
	KindDelete      Kind = "delete"
	KindIssue       Kind = "issue"
	KindComment     Kind = "comment"
	KindPageEdit    Kind = "page-edit"
	KindPullRequest Kind = "pull-request"
	KindOther       Kind = "other"
)

var kindsByType = map[string]Kind{
	"PushEvent":                     KindPush,
	"WatchEvent":                    KindWatch,
	"ForkEvent":                     KindFork,
	"CreateEvent":                   KindCreate,
	"DeleteEvent":                   KindDelete,
	"IssuesEvent":                   KindIssue,
	"IssueCommentEvent":             KindComment,
	"CommitCommentEvent":            KindComment,
	"PullRequestReviewCommentEvent": KindComment,
	"GollumEvent":                   KindPageEdit,
	"PullRequestEvent":              KindPullRequest,
	"PullRequestReviewEvent":        KindPullRequest,
}

// KindOf maps a GitHub event type name (e.g. "IssuesEvent") to its Kind.
func KindOf(eventType string) Kind {
	if k, ok := kindsByType[eventType]; ok {
		return k
	}
	return KindOther
}

// Event is one activity record from the account's feed.
type Event struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Kind      Kind       `json:"kind"`
	CreatedAt *time.Time `json:"created_at"`
	Actor     string     `json:"actor"`
	Repo      string     `json:"repo"`
	Public    bool       `json:"public"`
	Payload   Payload    `json:"payload"`
}

// Payload holds the type-specific fields the formatter knows how to render.
type Payload struct {
	Action      string       `json:"action,omitempty"`
	Ref         string       `json:"ref,omitempty"`
	RefType     string       `json:"ref_type,omitempty"`
	Issue       *Issue       `json:"issue,omitempty"`
	Comment     *Comment     `json:"comment,omitempty"`
	PullRequest *PullRequest `json:"pull_request,omitempty"`
	Pages       []WikiPage   `json:"pages,omitempty"`
}

type Issue struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
	Body    string `json:"body"`
}

type Comment struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

type PullRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type WikiPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}
