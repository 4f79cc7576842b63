package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer answers chat completion requests with the given fragments as
// server-sent events and records the last request it saw.
type streamServer struct {
	*httptest.Server

	mu      sync.Mutex
	body    map[string]any
	headers http.Header
}

func newStreamServer(t *testing.T, fragments ...string) *streamServer {
	t.Helper()
	s := &streamServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		data, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.headers = r.Header.Clone()
		assert.NoError(t, json.Unmarshal(data, &s.body))
		s.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 0,
				"model":   "test",
				"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": f}}},
			}
			b, _ := json.Marshal(chunk)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) lastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

func (s *streamServer) lastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers
}

var conversation = []models.Message{
	{Role: models.RoleUser, Content: "protocol"},
	{Role: models.RoleAssistant, Content: "(empty response)"},
	{Role: models.RoleUser, Content: "=== THIS IS THE END OF THE EVENTS ==="},
}

func TestComplete_AccumulatesAndEchoes(t *testing.T) {
	srv := newStreamServer(t, "```yaml\n", "- Did X\n", "- Did Y\n", "```")
	c := NewClient(srv.URL+"/", "sk-test", "test-model")

	var sink bytes.Buffer
	out, err := c.Complete(context.Background(), conversation, &sink)
	require.NoError(t, err)

	assert.Equal(t, "```yaml\n- Did X\n- Did Y\n```", out)
	assert.Equal(t, out+"\n", sink.String())

	body := srv.lastBody()
	assert.Equal(t, "test-model", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.InDelta(t, Temperature, body["temperature"], 1e-6)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, map[string]any{"role": "assistant", "content": "(empty response)"}, msgs[1])

	assert.Equal(t, "Bearer sk-test", srv.lastHeaders().Get("Authorization"))
}

func TestComplete_NilSink(t *testing.T) {
	srv := newStreamServer(t, "a", "b")
	c := NewClient(srv.URL, "sk-test", "")

	out, err := c.Complete(context.Background(), conversation, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
}

func TestComplete_ExtraBodyAndHeaders(t *testing.T) {
	srv := newStreamServer(t, "ok")
	c := NewClient(srv.URL, "sk-test", "",
		WithExtraBody(map[string]any{"model": "deepseek/deepseek-r1", "top_p": 0.5}),
		WithExtraHeaders(map[string]string{"HTTP-Referer": "https://github.com/octocat", "X-Title": "five-bullets"}),
	)

	_, err := c.Complete(context.Background(), conversation, nil)
	require.NoError(t, err)

	body := srv.lastBody()
	assert.Equal(t, "deepseek/deepseek-r1", body["model"])
	assert.Equal(t, 0.5, body["top_p"])
	assert.Equal(t, true, body["stream"])

	headers := srv.lastHeaders()
	assert.Equal(t, "five-bullets", headers.Get("X-Title"))
	assert.Equal(t, "https://github.com/octocat", headers.Get("HTTP-Referer"))
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "sk-bad", "")
	out, err := c.Complete(context.Background(), conversation, nil)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "creating chat completion stream")
}

func TestStream_StopsWhenConsumerBreaks(t *testing.T) {
	srv := newStreamServer(t, "one", "two", "three")
	c := NewClient(srv.URL, "sk-test", "")

	var got []string
	for fragment, err := range c.Stream(context.Background(), conversation) {
		require.NoError(t, err)
		got = append(got, fragment)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestMergeJSON(t *testing.T) {
	merged, err := mergeJSON([]byte(`{"model":"a","stream":true}`), map[string]any{"model": "b", "seed": 1})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(merged, &fields))
	assert.Equal(t, map[string]any{"model": "b", "stream": true, "seed": float64(1)}, fields)

	_, err = mergeJSON([]byte(`[1,2]`), map[string]any{"a": 1})
	assert.Error(t, err)
}
