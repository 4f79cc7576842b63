package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kevinmichaelchen/five-bullets/internal/config"
	"github.com/kevinmichaelchen/five-bullets/internal/llm"
	"github.com/kevinmichaelchen/five-bullets/internal/pipeline"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "five-bullets",
		Short: "Summarize last week's GitHub activity into your profile README",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(logLevel, logFormat)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&logFormat, "log-format", "f", "text", "Log format (text, json)")

	root.AddCommand(runCmd(), eventsCmd(), extractCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var dryRun, skipEmpty bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect events, generate the summary and publish README.md",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			_, err = pipeline.Run(ctx, cfg, pipeline.Options{
				DryRun:    dryRun,
				SkipEmpty: skipEmpty,
				Sink:      cmd.OutOrStdout(),
			})
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do everything except writing README.md")
	cmd.Flags().BoolVar(&skipEmpty, "skip-empty", false, "Fail instead of publishing when the model returns no summary")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Abort the whole run after this long")
	return cmd
}

func eventsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the formatted events that would be sent to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			blocks, err := pipeline.Preview(ctx, cfg, pipeline.Options{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, b := range blocks {
				_, _ = fmt.Fprintf(out, "%s\n\n", b)
			}
			_, _ = fmt.Fprintf(out, "%d events\n", len(blocks))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Abort after this long")
	return cmd
}

func extractCmd() *cobra.Command {
	var reasoningClose string

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract the bullet list from saved model output (stdin by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading model output: %w", err)
			}

			x := llm.DefaultExtractor
			x.ReasoningClose = reasoningClose
			summary := llm.ParseSummary(x.Extract(string(raw)))
			if summary.Empty() {
				slog.Warn("No fenced block found")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), summary.Text)
			slog.Debug("Parsed bullets", "count", len(summary.Bullets))
			return nil
		},
	}
	cmd.Flags().StringVar(&reasoningClose, "reasoning-close", llm.DefaultReasoningClose, "Marker that ends the model's reasoning segment")
	return cmd
}

func setupLogger(level, format string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// stdout carries the streamed model output, so logs go to stderr.
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(handler))
}
