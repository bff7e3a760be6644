// Package logging renders lingoflow's structured log entries as text or
// JSON lines.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Format selects how entries are rendered.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses "text" or "json". Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

var levelStyles = map[ports.Level]lipgloss.Style{
	ports.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	ports.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
	ports.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true),
	ports.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
}

// ConsoleLogger writes structured entries to a terminal or file.
type ConsoleLogger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  ports.Level
	fields []ports.Field
	format Format
	color  bool
	now    func() time.Time
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*ConsoleLogger)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.level = level
	}
}

// WithFormat sets the output format (default: text).
func WithFormat(f Format) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.format = f
	}
}

// WithColor colors level labels in text output.
func WithColor(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.color = enabled
	}
}

// WithClock sets the time source; nil omits timestamps.
func WithClock(now func() time.Time) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.now = now
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	l := &ConsoleLogger{
		mu:     &sync.Mutex{},
		out:    os.Stderr,
		level:  ports.LevelInfo,
		format: FormatText,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewNopLogger returns a console logger that writes nowhere. Tests and
// embedders without a log sink use it.
func NewNopLogger() *ConsoleLogger {
	return NewConsoleLogger(WithOutput(io.Discard), WithClock(nil))
}

// New builds the logger described by a level and format name.
func New(level, format string, out io.Writer) (ports.Logger, error) {
	lvl, err := ports.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return NewConsoleLogger(WithOutput(out), WithLevel(lvl), WithFormat(f)), nil
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, ports.LevelError, msg, fields)
}

// With returns a logger that adds fields to every entry. It shares the
// parent's output lock.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := *l
	child.fields = append(append([]ports.Field(nil), l.fields...), fields...)
	return &child
}

// Level returns the minimum log level.
func (l *ConsoleLogger) Level() ports.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the minimum log level.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *ConsoleLogger) log(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.out == io.Discard {
		return
	}

	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var line string
	if l.format == FormatJSON {
		line = l.renderJSON(level, msg, all)
	} else {
		line = l.renderText(level, msg, all)
	}
	_, _ = fmt.Fprintln(l.out, line)
}

func (l *ConsoleLogger) renderJSON(level ports.Level, msg string, fields []ports.Field) string {
	entry := make(map[string]interface{}, len(fields)+3)
	if l.now != nil {
		entry["time"] = l.now().UTC().Format(time.RFC3339)
	}
	entry["level"] = strings.ToLower(level.String())
	entry["msg"] = msg
	for _, f := range fields {
		entry[f.Key] = jsonValue(f.Value)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"error","msg":"unencodable log entry","error":%q}`, err.Error())
	}
	return string(data)
}

func (l *ConsoleLogger) renderText(level ports.Level, msg string, fields []ports.Field) string {
	var b strings.Builder
	if l.now != nil {
		b.WriteString(l.now().Format("15:04:05"))
		b.WriteByte(' ')
	}

	label := fmt.Sprintf("%-5s", level.String())
	if style, ok := levelStyles[level]; ok && l.color {
		label = style.Render(label)
	}
	b.WriteString(label)
	b.WriteByte(' ')
	b.WriteString(msg)

	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(textValue(f.Value))
	}
	return b.String()
}

// jsonValue turns values that marshal poorly (errors, Stringers) into text.
func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func textValue(v interface{}) string {
	var s string
	switch t := v.(type) {
	case error:
		s = t.Error()
	case string:
		s = t
	default:
		s = fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// Ensure ConsoleLogger implements Logger.
var _ ports.Logger = (*ConsoleLogger)(nil)
