package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// FileUpdate describes one create-or-update write through the contents API.
type FileUpdate struct {
	Owner          string
	Repo           string
	Path           string
	Content        []byte
	Message        string
	SHA            string // empty creates the file
	CommitterName  string
	CommitterEmail string
}

// FileSHA returns the blob SHA of path, or "" when the file does not exist.
func (c *Client) FileSHA(ctx context.Context, owner, repo, path string) (string, error) {
	file, _, _, err := c.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{})
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("getting %s/%s/%s: %w", owner, repo, path, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s/%s/%s is a directory", owner, repo, path)
	}
	return file.GetSHA(), nil
}

// PutFile creates the file, or updates it when u.SHA is set. GitHub rejects an
// update whose SHA no longer matches, so concurrent writers cannot clobber
// each other.
func (c *Client) PutFile(ctx context.Context, u FileUpdate) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(u.Message),
		Content: u.Content,
		Committer: &github.CommitAuthor{
			Name:  github.String(u.CommitterName),
			Email: github.String(u.CommitterEmail),
		},
	}

	var err error
	if u.SHA == "" {
		_, _, err = c.client.Repositories.CreateFile(ctx, u.Owner, u.Repo, u.Path, opts)
	} else {
		opts.SHA = github.String(u.SHA)
		_, _, err = c.client.Repositories.UpdateFile(ctx, u.Owner, u.Repo, u.Path, opts)
	}
	if err != nil {
		return fmt.Errorf("writing %s/%s/%s: %w", u.Owner, u.Repo, u.Path, err)
	}
	return nil
}
