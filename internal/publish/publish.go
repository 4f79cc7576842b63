package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/config"
	"github.com/kevinmichaelchen/five-bullets/internal/github"
)

const (
	ReadmePath     = "README.md"
	committerName  = "machineuser"
	committerEmail = "machineuser@github.com"
)

// ErrEmptySummary is returned instead of publishing when the model produced
// no fenced block and the caller asked to skip empty summaries.
var ErrEmptySummary = errors.New("model output contained no summary")

// FileStore is the slice of the GitHub contents API the publisher needs.
type FileStore interface {
	FileSHA(ctx context.Context, owner, repo, path string) (string, error)
	PutFile(ctx context.Context, u github.FileUpdate) error
}

// Render substitutes text into the template's placeholder.
func Render(template, text string) string {
	return strings.Replace(template, config.ContentPlaceholder, text, 1)
}

type Publisher struct {
	store  FileStore
	dryRun bool
	now    func() time.Time
}

// New returns a Publisher. In dry-run mode store may be nil; it is never
// called.
func New(store FileStore, dryRun bool) *Publisher {
	return &Publisher{store: store, dryRun: dryRun, now: time.Now}
}

// Publish writes content to owner/repo at path, creating the file or
// updating it against its current SHA.
func (p *Publisher) Publish(ctx context.Context, owner, repo, path, content string) error {
	if p.dryRun {
		slog.Info("Dry run, not pushing", "target", owner+"/"+repo+"/"+path, "bytes", len(content))
		return nil
	}

	slog.Info("Pushing file", "target", owner+"/"+repo+"/"+path)
	sha, err := p.store.FileSHA(ctx, owner, repo, path)
	if err != nil {
		return err
	}
	if sha == "" {
		slog.Debug("File does not exist yet, creating", "path", path)
	}

	err = p.store.PutFile(ctx, github.FileUpdate{
		Owner:          owner,
		Repo:           repo,
		Path:           path,
		Content:        []byte(content),
		Message:        fmt.Sprintf("Update %s %s", path, p.now().UTC().Format(time.RFC3339)),
		SHA:            sha,
		CommitterName:  committerName,
		CommitterEmail: committerEmail,
	})
	if err != nil {
		return err
	}
	slog.Info("File pushed", "path", path)
	return nil
}
