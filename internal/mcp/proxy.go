// ABOUTME: Stdio-to-HTTP proxy forwarding JSON-RPC lines to a running server
// ABOUTME: Notification requests are forwarded but their responses discarded

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Proxy forwards newline-delimited JSON-RPC from stdio to an HTTP /mcp
// endpoint and relays the response bodies back as lines.
type Proxy struct {
	baseURL string
	client  *http.Client
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

// NewProxy creates a proxy targeting the server on the given port.
func NewProxy(port int, in io.Reader, out io.Writer) *Proxy {
	return &Proxy{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		client:  &http.Client{Timeout: 5 * time.Minute},
		in:      in,
		out:     out,
		logger:  slog.Default().With("component", "proxy"),
	}
}

// NewProxyForURL creates a proxy targeting an explicit base URL.
func NewProxyForURL(baseURL string, in io.Reader, out io.Writer) *Proxy {
	p := NewProxy(0, in, out)
	p.baseURL = strings.TrimSuffix(baseURL, "/")
	return p
}

// Run checks server health, then forwards request lines until the input
// stream ends.
func (p *Proxy) Run(ctx context.Context) error {
	if err := p.checkHealth(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	writer := bufio.NewWriter(p.out)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if werr := writeLine(writer, mustMarshal(NewError(nil, CodeParseError, "Invalid JSON: %v", err))); werr != nil {
				return werr
			}
			continue
		}

		body, err := p.forward(ctx, []byte(line))
		if req.IsNotification() {
			// Notifications expect no output line.
			continue
		}
		if err != nil {
			body = mustMarshal(NewError(nil, CodeInternalError, "HTTP MCP proxy error: %v", err))
		}
		if werr := writeLine(writer, body); werr != nil {
			return werr
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

// checkHealth verifies the HTTP server is reachable before proxying.
func (p *Proxy) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("server not found at %s, start it first: %w", p.baseURL, err)
	}
	resp.Body.Close()
	return nil
}

// forward posts the raw request line to /mcp and returns the response body.
func (p *Proxy) forward(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return bytes.TrimSpace(body), nil
}

func writeLine(w *bufio.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return w.Flush()
}
