package waygraph

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Logger wraps slog.Logger with waygraph-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger

	// sampler limits failure logs of searches. nil logs every failure.
	sampler *rate.Limiter
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithSampling returns a logger that emits at most perSecond search failure
// logs per second, with bursts up to burst. A game loop retrying an
// unreachable goal every tick would otherwise flood the log.
func (l *Logger) WithSampling(perSecond float64, burst int) *Logger {
	return &Logger{
		Logger:  l.Logger,
		sampler: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// WithNode adds a node field to the logger.
func (l *Logger) WithNode(h Handle) *Logger {
	return &Logger{
		Logger:  l.Logger.With("node", h.ID, "gen", h.Gen),
		sampler: l.sampler,
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger:  l.Logger.With("component", name),
		sampler: l.sampler,
	}
}

// LogMutation logs a graph mutation.
func (l *Logger) LogMutation(op string, h Handle, err error) {
	if err != nil {
		l.Warn("graph mutation failed",
			"op", op,
			"node", h.ID,
			"error", err,
		)
	} else {
		l.Debug("graph mutation completed",
			"op", op,
			"node", h.ID,
		)
	}
}

// LogBatchMove logs a batch move.
func (l *Logger) LogBatchMove(count, failed int, err error) {
	if failed > 0 {
		l.Warn("batch move completed with failures",
			"total", count,
			"failed", failed,
			"error", err,
		)
	} else {
		l.Debug("batch move completed",
			"count", count,
		)
	}
}

// LogSearch logs a search. Unreachable goals are logged at debug level;
// other failures at error level, subject to sampling.
func (l *Logger) LogSearch(kind string, nodes int, cached bool, elapsed time.Duration, err error) {
	switch {
	case err == nil:
		l.Debug("search completed",
			"kind", kind,
			"nodes", nodes,
			"cached", cached,
			"elapsed", elapsed,
		)
	case errors.Is(err, ErrNoPath):
		l.Debug("search found no path",
			"kind", kind,
			"elapsed", elapsed,
		)
	default:
		if l.sampler != nil && !l.sampler.Allow() {
			return
		}
		l.Error("search failed",
			"kind", kind,
			"status", StatusOf(err).String(),
			"error", err,
		)
	}
}

// LogLifecycle logs creation and shutdown of a pathfinder.
func (l *Logger) LogLifecycle(event string, reservedBytes int64, err error) {
	if err != nil {
		l.Error("pathfinder "+event+" failed",
			"reserved_bytes", reservedBytes,
			"error", err,
		)
	} else {
		l.Info("pathfinder "+event,
			"reserved_bytes", reservedBytes,
		)
	}
}
