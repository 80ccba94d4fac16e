package audit

import (
	"context"
	"time"

	"go-dispensa/internal/shared/contextutil"

	"go.uber.org/zap"
)

// Entry is one business or lifecycle event worth keeping apart from debug logs.
type Entry struct {
	Action  string
	Actor   string
	Target  string
	Message string
	Meta    map[string]any
}

type Logger interface {
	Log(ctx context.Context, entry Entry)
}

// ZapLogger writes entries to the "audit" named zap logger.
type ZapLogger struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewZapLogger(logger ...*zap.Logger) *ZapLogger {
	l := zap.L().Named("audit")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit")
	}
	return &ZapLogger{logger: l, now: time.Now}
}

func (l *ZapLogger) Log(ctx context.Context, entry Entry) {
	l.logger.Info("audit event",
		zap.String("timestamp", l.now().UTC().Format(time.RFC3339)),
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("action", entry.Action),
		zap.String("actor", entry.Actor),
		zap.String("target", entry.Target),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Log(context.Context, Entry) {}
