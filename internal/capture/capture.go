// Package capture turns an arbitrary inbound HTTP request into a
// normalized, persisted request record. The pipeline never rejects a
// request based on its content; only an unknown path or storage failure
// produces an error.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/hookcatch/hookcatch/internal/store"
)

// Pipeline persists captured requests through the store.
type Pipeline struct {
	store store.Store
}

func New(s store.Store) *Pipeline {
	return &Pipeline{store: s}
}

// Capture reads the inbound request and persists it as a record owned
// by path. The body must still be unread when Capture is called.
func (p *Pipeline) Capture(ctx context.Context, r *http.Request, path *store.Path) (*store.Request, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	payload := decompress(raw, r.Header.Get("Content-Encoding"))

	rec := &store.Request{
		PathID:      path.ID,
		Method:      r.Method,
		Headers:     extractHeaders(r.Header),
		Body:        decodeBody(payload),
		QueryParams: extractQueryParams(r),
		IPAddress:   ClientIP(r),
		UserAgent:   r.UserAgent(),
	}

	if err := p.store.CreateRequest(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// extractHeaders flattens the header map, dropping the transport-level
// Content-Length and Host entries. Repeated values are comma-joined,
// which is how Go renders multi-value headers on the wire anyway.
func extractHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Host") {
			continue
		}
		out[k] = strings.Join(vals, ", ")
	}
	return out
}

// extractQueryParams flattens the query string; a repeated key keeps
// its last value.
func extractQueryParams(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string, len(q))
	for k, vals := range q {
		if len(vals) > 0 {
			out[k] = vals[len(vals)-1]
		}
	}
	return out
}

// decodeBody stores a UTF-8 payload verbatim and replaces anything else
// with a readable placeholder carrying the exact byte length. An empty
// payload is stored as absent, not as an empty string.
func decodeBody(payload []byte) *string {
	if len(payload) == 0 {
		return nil
	}
	var body string
	if utf8.Valid(payload) {
		body = string(payload)
	} else {
		body = fmt.Sprintf("<Binary data: %d bytes>", len(payload))
	}
	return &body
}

// decompress transparently inflates gzip and deflate payloads. A
// payload that fails to inflate is kept as-is; capture never rejects on
// content.
func decompress(raw []byte, encoding string) []byte {
	switch strings.ToLower(encoding) {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return raw
		}
		defer gr.Close()
		if out, err := io.ReadAll(gr); err == nil {
			return out
		}
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return raw
		}
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out
		}
	}
	return raw
}

var forwardedFor = regexp.MustCompile(`for=([^;,\s]+)`)

// ClientIP resolves the originating address, preferring proxy headers
// over the transport-level remote address. X-Forwarded-For may carry a
// chain; the first hop is the client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		if m := forwardedFor.FindStringSubmatch(fwd); m != nil {
			return strings.Trim(m[1], `"[]`)
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
