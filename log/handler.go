package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var levelBadge = map[Level]string{
	LevelTrace: "TRAC",
	LevelDebug: "DBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "EROR",
	LevelCrit:  "CRIT",
}

var levelColor = map[Level]int{
	LevelTrace: 90, // gray
	LevelDebug: 36, // cyan
	LevelInfo:  32, // green
	LevelWarn:  33, // yellow
	LevelError: 31, // red
	LevelCrit:  35, // magenta
}

// terminalHandler writes human-readable, optionally colorized lines, the
// same shape as go-ethereum's log.TerminalHandler.
type terminalHandler struct {
	mu     sync.Mutex
	wr     io.Writer
	level  Level
	color  bool
	attrs  []slog.Attr
	prefix string
}

// NewTerminalHandlerWithLevel builds a handler that writes to w, filtering
// below minLevel, colorizing the level badge only when useColor is true and
// w is an *os.File attached to a terminal.
func NewTerminalHandlerWithLevel(w io.Writer, minLevel Level, useColor bool) slog.Handler {
	if f, ok := w.(*os.File); ok && useColor {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if useColor {
			w = colorable.NewColorable(f)
		}
	} else {
		useColor = false
	}
	return &terminalHandler{wr: w, level: minLevel, color: useColor}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	badge := levelBadge[r.Level]
	if badge == "" {
		badge = r.Level.String()
	}
	if h.color {
		badge = fmt.Sprintf("\x1b[%dm%s\x1b[0m", levelColor[r.Level], badge)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] %-40s", badge, r.Time.Format("01-02|15:04:05.000"), r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(h.wr, b.String())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.prefix = name
	return &nh
}

// JSONHandler returns a structured JSON handler, used for machine-readable
// log shipping (e.g. when the process runs under a supervisor that
// aggregates JSON lines).
func JSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: LevelTrace})
}

// callerInfo renders a short "file:line" string for the caller skip frames
// above it. No handler in this package calls it.
func callerInfo(skip int) string {
	c := stack.Caller(skip + 1)
	return fmt.Sprintf("%+v", c)
}
