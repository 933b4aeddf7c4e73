package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger = zerolog.Nop()

func Init(serviceName, level string) {
	InitWithWriter(serviceName, level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func InitWithWriter(serviceName, level string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	Logger = log.Output(w).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func WithBatchID(batchID string) *zerolog.Logger {
	l := Logger.With().Str("batch_id", batchID).Logger()
	return &l
}

func WithCorrelationID(correlationID string) *zerolog.Logger {
	l := Logger.With().Str("correlation_id", correlationID).Logger()
	return &l
}

// WithTransaction binds a transaction-scoped logger to ctx.
// The binding ends when the returned context is dropped.
func WithTransaction(ctx context.Context, transactionID, correlator string) context.Context {
	c := FromContext(ctx).With().Str("transaction_id", transactionID)
	if correlator != "" {
		c = c.Str("correlator", correlator)
	}
	l := c.Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger bound to ctx, or the service logger
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}
