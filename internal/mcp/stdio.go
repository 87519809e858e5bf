// ABOUTME: Line-delimited JSON-RPC transport over stdio
// ABOUTME: One request line in, one response line out, flushed per line

package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineSize bounds a single JSON-RPC line on stdio.
const maxLineSize = 10 * 1024 * 1024

// StdioServer reads newline-delimited JSON-RPC requests and writes one
// response line per request.
type StdioServer struct {
	dispatcher *Dispatcher
	in         io.Reader
	out        io.Writer
	logger     *slog.Logger
}

// NewStdioServer creates a stdio transport over the dispatcher.
func NewStdioServer(dispatcher *Dispatcher, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{
		dispatcher: dispatcher,
		in:         in,
		out:        out,
		logger:     slog.Default().With("component", "stdio"),
	}
}

// Run serves until the input stream ends or ctx is cancelled.
func (s *StdioServer) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	writer := bufio.NewWriter(s.out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		response := s.dispatcher.HandleRaw(ctx, []byte(line))
		if _, err := writer.Write(response); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flushing response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	s.logger.Info("stdio stream closed")
	return nil
}
