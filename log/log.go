// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log carries the ledger's leveled logger. Records go through the
// go-ethereum slog handlers so amounts and addresses print in full.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// Logger is the key/value logger handed to every ledger package.
type Logger = gethlog.Logger

const (
	LevelTrace = gethlog.LevelTrace
	LevelDebug = gethlog.LevelDebug
	LevelInfo  = gethlog.LevelInfo
	LevelWarn  = gethlog.LevelWarn
	LevelError = gethlog.LevelError
	LevelCrit  = gethlog.LevelCrit
)

func init() {
	SetDefault(NewLogger(NewHandler(os.Stderr, false, LevelInfo)))
}

// VerbosityLevel maps the 0 (crit) to 5 (trace) verbosity of the node
// config onto a slog level. Values outside the range are clamped.
func VerbosityLevel(verbosity int) slog.Level {
	return gethlog.FromLegacyLevel(verbosity)
}

// NewHandler writes records at or above level to w, as JSON lines when
// json is set and as logfmt otherwise.
func NewHandler(w io.Writer, json bool, level slog.Level) slog.Handler {
	if json {
		return gethlog.JSONHandlerWithLevel(w, level)
	}
	return gethlog.LogfmtHandlerWithLevel(w, level)
}

func NewLogger(h slog.Handler) Logger { return gethlog.NewLogger(h) }

func SetDefault(l Logger) { gethlog.SetDefault(l) }

func Root() Logger { return gethlog.Root() }

// WithContext returns a package logger carrying ctx. It looks up the root
// logger on every record, so loggers created at init follow SetDefault.
func WithContext(ctx ...any) Logger {
	return &pkgLogger{ctx: ctx}
}

type pkgLogger struct {
	ctx []any
}

func (p *pkgLogger) root() Logger { return Root().With(p.ctx...) }

func (p *pkgLogger) With(ctx ...any) Logger {
	merged := make([]any, 0, len(p.ctx)+len(ctx))
	merged = append(append(merged, p.ctx...), ctx...)
	return &pkgLogger{ctx: merged}
}

func (p *pkgLogger) New(ctx ...any) Logger { return p.With(ctx...) }

func (p *pkgLogger) Log(level slog.Level, msg string, ctx ...any) {
	p.root().Write(level, msg, ctx...)
}

func (p *pkgLogger) Write(level slog.Level, msg string, attrs ...any) {
	p.root().Write(level, msg, attrs...)
}

func (p *pkgLogger) Trace(msg string, ctx ...any) { p.Write(LevelTrace, msg, ctx...) }
func (p *pkgLogger) Debug(msg string, ctx ...any) { p.Write(LevelDebug, msg, ctx...) }
func (p *pkgLogger) Info(msg string, ctx ...any)  { p.Write(LevelInfo, msg, ctx...) }
func (p *pkgLogger) Warn(msg string, ctx ...any)  { p.Write(LevelWarn, msg, ctx...) }
func (p *pkgLogger) Error(msg string, ctx ...any) { p.Write(LevelError, msg, ctx...) }

func (p *pkgLogger) Crit(msg string, ctx ...any) {
	p.Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (p *pkgLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return Root().Enabled(ctx, level)
}

func (p *pkgLogger) Handler() slog.Handler { return p.root().Handler() }
