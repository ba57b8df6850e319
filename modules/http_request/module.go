// Package http_request provides the "http_request" node kind.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

const schema = `{
  "type": "object",
  "required": ["url"],
  "properties": {
    "url": {"type": "string", "pattern": "^https?://"},
    "method": {"type": "string", "enum": ["GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"]},
    "headers": {"type": "object", "additionalProperties": {"type": "string"}},
    "body": {"type": "string"},
    "timeout": {"type": "string"},
    "expect_status": {"type": "integer", "minimum": 100, "maximum": 599}
  }
}`

// maxBody bounds how much of the response body is read.
const maxBody = 10 << 20

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is used for every request. Nil means a shared default client.
	Client *http.Client
}

var defaultClient = &http.Client{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = defaultClient
	}
	r.Func("http_request", schema, func(ctx context.Context, t *task.Task) (cty.Value, error) {
		return run(ctx, client, t)
	})
}

func run(ctx context.Context, client *http.Client, t *task.Task) (cty.Value, error) {
	url, err := t.String("url", "")
	if err != nil {
		return cty.NilVal, err
	}
	method, err := t.String("method", http.MethodGet)
	if err != nil {
		return cty.NilVal, err
	}
	headers, err := t.StringMap("headers")
	if err != nil {
		return cty.NilVal, err
	}
	body, err := t.String("body", "")
	if err != nil {
		return cty.NilVal, err
	}
	timeoutStr, err := t.String("timeout", "30s")
	if err != nil {
		return cty.NilVal, err
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return cty.NilVal, fmt.Errorf("parameter \"timeout\": %w", err)
	}
	expect, err := t.Int("expect_status", 0)
	if err != nil {
		return cty.NilVal, err
	}

	logger := ctxlog.FromContext(ctx).With("node", t.Node.ID)
	logger.Debug("Making HTTP request.", "method", method, "url", url)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}
	for _, k := range ctyutil.SortedKeys(headers) {
		req.Header.Set(k, headers[k])
	}

	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("Received HTTP response.", "status", resp.Status, "bytes", len(bodyBytes))

	if expect != 0 && int64(resp.StatusCode) != expect {
		return cty.NilVal, fmt.Errorf("unexpected status %d, want %d", resp.StatusCode, expect)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		respHeaders[strings.ToLower(k)] = resp.Header.Get(k)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"status":      cty.StringVal(resp.Status),
		"headers":     ctyutil.StringMap(respHeaders),
		"body":        cty.StringVal(string(bodyBytes)),
	}), nil
}
