package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// Temperature is kept low so the summary stays extractive.
const Temperature = 0.05

type Client struct {
	client *openai.Client
	model  string
}

type Option func(*clientOptions)

type clientOptions struct {
	extraBody    map[string]any
	extraHeaders map[string]string
	base         http.RoundTripper
}

// WithExtraBody merges fields into every request body, overriding the
// defaults (model, temperature, ...) set by the client.
func WithExtraBody(body map[string]any) Option {
	return func(o *clientOptions) { o.extraBody = body }
}

// WithExtraHeaders adds headers to every request.
func WithExtraHeaders(headers map[string]string) Option {
	return func(o *clientOptions) { o.extraHeaders = headers }
}

// WithTransport replaces the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// NewClient talks to any OpenAI-compatible chat completion endpoint.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{
		Transport: newExtrasTransport(o.base, o.extraBody, o.extraHeaders),
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Stream sends the conversation and yields content fragments as they arrive.
// A transport or decoding error is yielded once and ends the sequence.
func (c *Client) Stream(ctx context.Context, msgs []models.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(ctx, c.request(msgs))
		if err != nil {
			yield("", fmt.Errorf("creating chat completion stream: %w", err))
			return
		}
		defer func() { _ = stream.Close() }()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("reading chat completion stream: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if fragment := resp.Choices[0].Delta.Content; fragment != "" {
				if !yield(fragment, nil) {
					return
				}
			}
		}
	}
}

// Complete drains Stream and returns the accumulated text. Fragments are
// echoed to sink as they arrive when sink is non-nil.
func (c *Client) Complete(ctx context.Context, msgs []models.Message, sink io.Writer) (string, error) {
	var out strings.Builder
	for fragment, err := range c.Stream(ctx, msgs) {
		if err != nil {
			return "", err
		}
		out.WriteString(fragment)
		if sink != nil {
			_, _ = io.WriteString(sink, fragment)
		}
	}
	if sink != nil {
		_, _ = io.WriteString(sink, "\n")
	}
	return out.String(), nil
}

func (c *Client) request(msgs []models.Message) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: Temperature,
		Stream:      true,
	}
}
