// Package logging builds the zerolog loggers used across the module.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// Option adjusts a logger under construction.
type Option func(*zerolog.Logger)

// WithLevel sets the minimum level.
func WithLevel(level zerolog.Level) Option {
	return func(l *zerolog.Logger) {
		*l = l.Level(level)
	}
}

// WithCaller adds the caller's file and line to every event.
func WithCaller() Option {
	return func(l *zerolog.Logger) {
		*l = l.With().Caller().Logger()
	}
}

// WithComponent tags every event with component=name.
func WithComponent(name string) Option {
	return func(l *zerolog.Logger) {
		*l = l.With().Str("component", name).Logger()
	}
}

// New writes JSON events to w.
func New(w io.Writer, opts ...Option) zerolog.Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Console writes human-readable events to w, or stderr when w is nil.
func Console(w io.Writer, opts ...Option) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}, opts...)
}

// Nop discards everything.
func Nop() zerolog.Logger { return zerolog.Nop() }

// ParseLevel accepts zerolog level names case-insensitively; "" means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s))
}
