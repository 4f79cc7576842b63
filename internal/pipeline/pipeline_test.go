package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/config"
	"github.com/kevinmichaelchen/five-bullets/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

const template = "Last week:\n\n{content}\n\n-- bot"

// fakeGitHub serves the events feed and the contents API for octocat.
type fakeGitHub struct {
	*httptest.Server

	mu          sync.Mutex
	eventsCalls int
	writeCalls  int
	written     map[string]any
}

func newFakeGitHub(t *testing.T, eventsStatus int) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{}

	issue := map[string]any{
		"title":    "Parser crashes on empty input",
		"html_url": "https://github.com/octocat/parser/issues/12",
		"body":     "Steps to reproduce...",
		"user":     map[string]any{"login": "octocat"},
	}
	events := []any{
		map[string]any{
			"id": "2", "type": "IssueCommentEvent", "public": true,
			"created_at": fixedNow.Add(-time.Hour).Format(time.RFC3339),
			"actor":      map[string]any{"login": "octocat"},
			"repo":       map[string]any{"name": "octocat/parser"},
			"payload": map[string]any{
				"action": "created",
				"issue":  issue,
				"comment": map[string]any{
					"html_url": "https://github.com/octocat/parser/issues/12#issuecomment-1",
					"body":     "Fixed by guarding the empty case.",
				},
			},
		},
		map[string]any{
			"id": "1", "type": "IssuesEvent", "public": true,
			"created_at": fixedNow.Add(-2 * time.Hour).Format(time.RFC3339),
			"actor":      map[string]any{"login": "octocat"},
			"repo":       map[string]any{"name": "octocat/parser"},
			"payload":    map[string]any{"action": "opened", "issue": issue},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.eventsCalls++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if eventsStatus != http.StatusOK {
			w.WriteHeader(eventsStatus)
			_, _ = io.WriteString(w, `{"message":"pagination is limited"}`)
			return
		}
		if r.URL.Query().Get("page") != "1" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_ = json.NewEncoder(w).Encode(events)
	})
	mux.HandleFunc("/repos/octocat/octocat/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writeCalls++

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Not Found"}`)
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(data, &f.written))
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"content":{"sha":"new"}}`)
		}
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGitHub) publishedContent(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotNil(t, f.written, "nothing was written")
	raw, err := base64.StdEncoding.DecodeString(f.written["content"].(string))
	require.NoError(t, err)
	return string(raw)
}

// fakeLLM streams a fixed answer and records how many messages it received.
type fakeLLM struct {
	*httptest.Server

	mu       sync.Mutex
	messages []any
}

func newFakeLLM(t *testing.T, fragments ...string) *fakeLLM {
	t.Helper()
	f := &fakeLLM{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []any `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.messages = body.Messages
		f.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range fragments {
			b, _ := json.Marshal(map[string]any{
				"id": "c", "object": "chat.completion.chunk", "model": "m",
				"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": frag}}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeLLM) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func testConfig(gh, llmURL, writeToken string) *config.Config {
	return &config.Config{
		GitHubUsername:   "octocat",
		GitHubWriteToken: writeToken,
		GitHubAPIURL:     gh,
		LLMBaseURL:       llmURL,
		LLMAPIKey:        "sk-test",
		ReadmeTemplate:   template,
		BlacklistedRepos: map[string]struct{}{},
		LookbackDays:     7,
	}
}

func testOptions() Options {
	return Options{Now: func() time.Time { return fixedNow }, Sink: &bytes.Buffer{}}
}

func TestRun_PublishesRenderedSummary(t *testing.T) {
	gh := newFakeGitHub(t, http.StatusOK)
	model := newFakeLLM(t, "<think>two events about the parser</think>\n", "```yaml\n- Did X\n", "- Did Y\n```\n")

	res, err := Run(context.Background(), testConfig(gh.URL, model.URL, "ghp_write"), testOptions())
	require.NoError(t, err)

	want := strings.Replace(template, "{content}", "- Did X\n- Did Y", 1)
	assert.Equal(t, want, gh.publishedContent(t))
	assert.Equal(t, want, res.Content)
	assert.True(t, res.Published)
	assert.Equal(t, []string{"Did X", "Did Y"}, res.Summary.Bullets)

	assert.Equal(t, 2, res.Collected)
	require.Len(t, res.Blocks, 2)
	assert.Contains(t, res.Blocks[0], "Added comment: Fixed by guarding the empty case.")
	assert.Contains(t, res.Blocks[1], "Issue description: Steps to reproduce...")
	assert.Equal(t, 2*2+3, model.messageCount())
}

func TestRun_DryRunNeverWrites(t *testing.T) {
	tests := []struct {
		name       string
		writeToken string
		dryRunFlag bool
	}{
		{name: "sentinel token", writeToken: config.DryRunToken},
		{name: "flag", writeToken: "ghp_write", dryRunFlag: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gh := newFakeGitHub(t, http.StatusOK)
			model := newFakeLLM(t, "```yaml\n- Did X\n```")

			opts := testOptions()
			opts.DryRun = tt.dryRunFlag
			res, err := Run(context.Background(), testConfig(gh.URL, model.URL, tt.writeToken), opts)
			require.NoError(t, err)

			assert.False(t, res.Published)
			assert.Contains(t, res.Content, "- Did X")
			gh.mu.Lock()
			defer gh.mu.Unlock()
			assert.Zero(t, gh.writeCalls)
		})
	}
}

func TestRun_422OnFirstPageIsNotFatal(t *testing.T) {
	gh := newFakeGitHub(t, http.StatusUnprocessableEntity)
	model := newFakeLLM(t, "```yaml\n- Quiet week\n```")

	res, err := Run(context.Background(), testConfig(gh.URL, model.URL, config.DryRunToken), testOptions())
	require.NoError(t, err)

	assert.Zero(t, res.Collected)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, 3, model.messageCount())
	gh.mu.Lock()
	defer gh.mu.Unlock()
	assert.Equal(t, 1, gh.eventsCalls)
}

func TestRun_FeedErrorAbortsBeforeCompletion(t *testing.T) {
	gh := newFakeGitHub(t, http.StatusInternalServerError)
	model := newFakeLLM(t, "```yaml\n- unreachable\n```")

	res, err := Run(context.Background(), testConfig(gh.URL, model.URL, "ghp_write"), testOptions())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Zero(t, model.messageCount())
	gh.mu.Lock()
	defer gh.mu.Unlock()
	assert.Zero(t, gh.writeCalls)
}

func TestRun_EmptySummary(t *testing.T) {
	t.Run("published by default", func(t *testing.T) {
		gh := newFakeGitHub(t, http.StatusOK)
		model := newFakeLLM(t, "Sorry, I cannot help with that.")

		res, err := Run(context.Background(), testConfig(gh.URL, model.URL, "ghp_write"), testOptions())
		require.NoError(t, err)
		assert.True(t, res.Summary.Empty())
		assert.Equal(t, "Last week:\n\n\n\n-- bot", gh.publishedContent(t))
	})

	t.Run("skipped on request", func(t *testing.T) {
		gh := newFakeGitHub(t, http.StatusOK)
		model := newFakeLLM(t, "Sorry, I cannot help with that.")

		opts := testOptions()
		opts.SkipEmpty = true
		_, err := Run(context.Background(), testConfig(gh.URL, model.URL, "ghp_write"), opts)
		assert.ErrorIs(t, err, publish.ErrEmptySummary)
		gh.mu.Lock()
		defer gh.mu.Unlock()
		assert.Zero(t, gh.writeCalls)
	})
}

func TestPreview(t *testing.T) {
	gh := newFakeGitHub(t, http.StatusOK)
	cfg := testConfig(gh.URL, "http://unused.invalid", config.DryRunToken)
	cfg.BlacklistedRepos = config.ParseRepoList("parser")

	blocks, err := Preview(context.Background(), cfg, testOptions())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
