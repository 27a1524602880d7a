// Package logging provides the slog handler used across the tool: a compact
// colorized line format for terminals, with an optional rotating file sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[37m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBlue   = "\033[34m"
)

type Options struct {
	Output   io.Writer
	Level    slog.Level
	UseColor *bool // nil = auto-detect
}

// FileOptions configures the rotating log file sink.
type FileOptions struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type handler struct {
	label string
	opts  Options
	mu    *sync.Mutex // shared across WithAttrs clones
	attrs []slog.Attr
	color bool
}

// New returns a logger that writes colorized lines labeled with the given
// component name.
func New(label string, opts ...Options) *slog.Logger {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}

	return slog.New(&handler{
		label: label,
		opts:  o,
		mu:    &sync.Mutex{},
		color: detectColor(o.Output, o.UseColor),
	})
}

// NewWithFile returns a logger that tees to the terminal and a rotating file.
func NewWithFile(label string, level slog.Level, file FileOptions) *slog.Logger {
	rotating := &lumberjack.Logger{
		Filename:   file.Filename,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}
	noColor := false
	return New(label, Options{
		Output:   io.MultiWriter(os.Stdout, rotating),
		Level:    level,
		UseColor: &noColor,
	})
}

func detectColor(w io.Writer, override *bool) bool {
	if override != nil {
		return *override
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	timeStr := r.Time.Format("2006/01/02 15:04:05")

	allAttrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	allAttrs = append(allAttrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		allAttrs = append(allAttrs, a)
		return true
	})

	var attrsStr string
	for i, a := range allAttrs {
		if i > 0 {
			attrsStr += " "
		}
		attrsStr += fmt.Sprintf("%s%s %s %v%s",
			h.wrap(colorGray, "["),
			h.wrap(colorGray, a.Key),
			h.wrap(colorGray, "="),
			a.Value.Any(),
			h.wrap(colorGray, "]"),
		)
	}

	msg := fmt.Sprintf("%s  (%s)  %s",
		h.wrap(colorGray, timeStr),
		h.wrap(colorBlue, h.label),
		h.wrap(h.levelColor(r.Level), h.levelPrefix(r.Level)+r.Message),
	)
	if attrsStr != "" {
		msg += "  " + attrsStr
	}
	msg += "\n"

	h.mu.Lock()
	_, err := io.WriteString(h.opts.Output, msg)
	h.mu.Unlock()
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &handler{
		label: h.label,
		opts:  h.opts,
		mu:    h.mu,
		attrs: newAttrs,
		color: h.color,
	}
}

// WithGroup is accepted but group names are not rendered; attr keys stay flat.
func (h *handler) WithGroup(string) slog.Handler { return h }

func (h *handler) wrap(color string, v any) string {
	if !h.color {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%s%v%s", color, v, colorReset)
}

func (h *handler) levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

func (h *handler) levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR  "
	case level >= slog.LevelWarn:
		return "WARNING  "
	case level >= slog.LevelInfo:
		return ""
	default:
		return "DEBUG  "
	}
}
