// ABOUTME: Entry point for the aiharness tool server
// ABOUTME: Runs the HTTP server, a stdio MCP server, or a stdio-to-HTTP proxy

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/aiharness/aiharness/internal/app"
	"github.com/aiharness/aiharness/internal/clientconfig"
	"github.com/aiharness/aiharness/internal/config"
	"github.com/aiharness/aiharness/internal/mcp"
	"github.com/aiharness/aiharness/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _ _
  __ _(_) |__   __ _ _ __ _ __   ___  ___ ___
 / _' | | '_ \ / _' | '__| '_ \ / _ \/ __/ __|
| (_| | | | | | (_| | |  | | | |  __/\__ \__ \
 \__,_|_|_| |_|\__,_|_|  |_| |_|\___||___/___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: aiharness <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the HTTP tool server")
		fmt.Println("  stdio     Serve MCP over stdin/stdout")
		fmt.Println("  proxy     Bridge stdio MCP clients to a running server")
		fmt.Println("  connect   Write MCP config for an AI CLI (claude|kimi|gemini|codex)")
		fmt.Println("  health    Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "stdio":
		err = runStdio(ctx)
	case "proxy":
		err = runProxy(ctx)
	case "connect":
		err = runConnect(os.Args[2:])
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Data:   %s\n", cfg.Storage.DataDir)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:   http://127.0.0.1:%d\n", cfg.Server.Port)
	fmt.Println()

	logger.Info("starting aiharness",
		"config", configPath,
		"data_dir", cfg.Storage.DataDir,
		"port", cfg.Server.Port,
	)

	state, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer state.Close()

	if _, err := server.New(state).Start(cfg.Server.Port); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// runStdio serves MCP on stdin/stdout. Logs go to stderr so the protocol
// stream stays clean.
func runStdio(ctx context.Context) error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	state, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer state.Close()

	dispatcher := mcp.NewDispatcher(state, mcp.Options{AllowBatch: true})
	return mcp.NewStdioServer(dispatcher, os.Stdin, os.Stdout).Run(ctx)
}

// runProxy bridges a stdio MCP client to an already-running HTTP server.
func runProxy(ctx context.Context) error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	return mcp.NewProxy(cfg.Server.Port, os.Stdin, os.Stdout).Run(ctx)
}

// runConnect registers the running server in an AI CLI's MCP config file.
// Usage: aiharness connect <tool> [project-id]
func runConnect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: aiharness connect <claude|kimi|gemini|codex> [project-id]")
	}
	tool := clientconfig.AITool(args[0])
	projectID := "default"
	if len(args) > 1 {
		projectID = args[1]
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path, err := clientconfig.Write(tool, projectID, projectID, cfg.Server.Port)
	if err != nil {
		return fmt.Errorf("writing %s config: %w", tool.DisplayName(), err)
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("%s: %s\n", tool.DisplayName(), path)
	fmt.Printf("      %s\n", clientconfig.ServerURL(projectID, cfg.Server.Port))
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	proxy := mcp.NewProxy(cfg.Server.Port, strings.NewReader(""), io.Discard)
	if err := proxy.Run(ctx); err != nil {
		return err
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			level: level,
			out:   out,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	out    io.Writer
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs.
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		out:    h.out,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		out:    h.out,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
