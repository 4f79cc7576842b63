package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/config"
	"github.com/kevinmichaelchen/five-bullets/internal/github"
	"github.com/kevinmichaelchen/five-bullets/internal/llm"
	"github.com/kevinmichaelchen/five-bullets/internal/models"
	"github.com/kevinmichaelchen/five-bullets/internal/prompt"
	"github.com/kevinmichaelchen/five-bullets/internal/publish"
)

const expectedBullets = 5

type Options struct {
	// DryRun skips the publish step even with a real write token.
	DryRun bool
	// SkipEmpty refuses to publish when no summary could be extracted.
	SkipEmpty bool
	// Sink receives the streamed model output and the rendered README.
	Sink io.Writer
	// Now overrides the clock used for the cutoff.
	Now func() time.Time
}

// Result is what a run produced, for callers that want more than the side
// effect.
type Result struct {
	Collected int
	Blocks    []string
	Summary   models.Summary
	Content   string
	Published bool
}

// Run collects the last week of events, asks the model for a summary and
// publishes the rendered README.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	res := &Result{}

	// Step 1: Collect and format events
	collected, blocks, err := collect(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	res.Collected = collected
	res.Blocks = blocks

	// Step 2: Build the conversation
	msgs := prompt.BuildConversation(cfg.GitHubUsername, blocks)
	slog.Info("Built conversation", "events", len(blocks), "messages", len(msgs))

	// Step 3: Stream the completion
	slog.Info("Creating chat summary...")
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithExtraBody(cfg.LLMExtraBody),
		llm.WithExtraHeaders(cfg.LLMExtraHeaders),
	)
	raw, err := llmClient.Complete(ctx, msgs, opts.Sink)
	if err != nil {
		return nil, fmt.Errorf("generating summary: %w", err)
	}

	// Step 4: Extract the bullet list
	res.Summary = llm.ParseSummary(llm.DefaultExtractor.Extract(raw))
	switch {
	case res.Summary.Empty():
		slog.Warn("No fenced block in model output", "output_bytes", len(raw))
		if opts.SkipEmpty {
			return res, publish.ErrEmptySummary
		}
	case len(res.Summary.Bullets) != expectedBullets:
		slog.Warn("Unexpected bullet count", "got", len(res.Summary.Bullets), "want", expectedBullets)
	}

	// Step 5: Render and publish
	res.Content = publish.Render(cfg.ReadmeTemplate, res.Summary.Text)
	if opts.Sink != nil {
		_, _ = fmt.Fprintf(opts.Sink, "\n====================\n\n%s\n\n====================\n\n", res.Content)
	}

	dryRun := opts.DryRun || cfg.DryRun()
	var store publish.FileStore
	if !dryRun {
		gh, err := github.NewClient(ctx, cfg.GitHubWriteToken, cfg.GitHubAPIURL)
		if err != nil {
			return nil, err
		}
		store = gh
	}

	owner := cfg.GitHubUsername
	if err := publish.New(store, dryRun).Publish(ctx, owner, owner, publish.ReadmePath, res.Content); err != nil {
		return nil, fmt.Errorf("publishing README: %w", err)
	}
	res.Published = !dryRun

	slog.Info("Done", "published", res.Published)
	return res, nil
}

// Preview runs only the collection and formatting steps.
func Preview(ctx context.Context, cfg *config.Config, opts Options) ([]string, error) {
	_, blocks, err := collect(ctx, cfg, opts)
	return blocks, err
}

func collect(ctx context.Context, cfg *config.Config, opts Options) (int, []string, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().AddDate(0, 0, -cfg.LookbackDays)

	gh, err := github.NewClient(ctx, cfg.GitHubReadToken, cfg.GitHubAPIURL)
	if err != nil {
		return 0, nil, err
	}

	events, err := gh.CollectEvents(ctx, cfg.GitHubUsername, cutoff)
	if err != nil {
		return 0, nil, fmt.Errorf("collecting events: %w", err)
	}

	filter := prompt.Filter{
		Cutoff:       cutoff,
		AllowPrivate: cfg.AllowPrivate,
		Blacklisted:  cfg.IsBlacklisted,
	}
	blocks := filter.FormatAll(events)
	slog.Info("Formatted events", "collected", len(events), "kept", len(blocks))
	return len(events), blocks, nil
}
