package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// extrasTransport injects configured headers and body fields into requests
// built by go-openai, which has no hook for arbitrary request fields.
type extrasTransport struct {
	base    http.RoundTripper
	body    map[string]any
	headers map[string]string
}

func newExtrasTransport(base http.RoundTripper, body map[string]any, headers map[string]string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &extrasTransport{base: base, body: body, headers: headers}
}

func (t *extrasTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.body) == 0 && len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	for k, v := range t.headers {
		out.Header.Set(k, v)
	}

	if len(t.body) > 0 && req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}

		merged, err := mergeJSON(data, t.body)
		if err != nil {
			return nil, err
		}
		out.Body = io.NopCloser(bytes.NewReader(merged))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(merged)), nil
		}
		out.ContentLength = int64(len(merged))
	}

	return t.base.RoundTrip(out)
}

// mergeJSON overlays extra onto the top-level fields of a JSON object.
func mergeJSON(data []byte, extra map[string]any) ([]byte, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("decoding request body: %w", err)
		}
	}
	for k, v := range extra {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return merged, nil
}
