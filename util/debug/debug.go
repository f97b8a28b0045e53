/*
 * rvtz - Severity-gated debug sink, wrapper around log/slog
 *
 * Copyright 2026, rvtz authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package debug is the process-wide severity-gated print sink the core logs
// through: four levels (crit, warn, info, verbose) layered on log/slog via a
// custom slog.Handler that always promotes warn-and-above to stderr in
// addition to whatever sink the caller configured.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// The four severities named by the external interface. They are spaced on
// slog's native integer scale so they interleave correctly with any
// slog.Level value a caller already holds.
const (
	LevelVerbose slog.Level = -8
	LevelInfo    slog.Level = 0
	LevelWarn    slog.Level = 4
	LevelCrit    slog.Level = 12
)

func levelName(l slog.Level) string {
	switch {
	case l >= LevelCrit:
		return "CRIT"
	case l >= LevelWarn:
		return "WARN"
	case l >= LevelInfo:
		return "INFO"
	default:
		return "VERBOSE"
	}
}

// Handler is a slog.Handler that writes a flat "time level msg attrs" line
// to out, and additionally mirrors warn-and-above to stderr regardless of
// out's configured level, so operator-visible problems are never silently
// swallowed by a misconfigured sink.
type Handler struct {
	out io.Writer
	min slog.Level
	mu  *sync.Mutex
}

// NewHandler builds a Handler writing records at or above min to out.
func NewHandler(out io.Writer, min slog.Level) *Handler {
	return &Handler{out: out, min: min, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min || level >= LevelWarn
}

func (h *Handler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *Handler) WithGroup(_ string) slog.Handler      { return h }

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := []string{r.Time.Format("2006/01/02 15:04:05"), levelName(r.Level) + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, a.Key+"="+a.Value.String())
		return true
	})
	line := strings.Join(fields, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil && r.Level >= h.min {
		_, err = h.out.Write([]byte(line))
	}
	if r.Level >= LevelWarn {
		_, _ = os.Stderr.Write([]byte(line))
	}
	return err
}

var logger = slog.New(NewHandler(io.Discard, LevelInfo))

// SetLogger replaces the process-wide sink. Construct l with a Handler (or
// any slog.Handler) to keep the crit/warn/info/verbose level mapping.
func SetLogger(l *slog.Logger) { logger = l }

func logf(level slog.Level, format string, a ...any) {
	logger.Log(context.Background(), level, fmt.Sprintf(format, a...))
}

func Critf(format string, a ...any)    { logf(LevelCrit, format, a...) }
func Warnf(format string, a ...any)    { logf(LevelWarn, format, a...) }
func Infof(format string, a ...any)    { logf(LevelInfo, format, a...) }
func Verbosef(format string, a ...any) { logf(LevelVerbose, format, a...) }
