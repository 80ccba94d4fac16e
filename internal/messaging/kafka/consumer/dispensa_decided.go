package consumer

import (
	"context"
	"encoding/json"
	"net/http"

	"go-dispensa/internal/events"
	"go-dispensa/internal/shared/apperror"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// DocumentWarmer renders and caches the approved document of a request.
type DocumentWarmer interface {
	WarmDocument(ctx context.Context, id string) error
}

func ConsumeDispensaDecided(
	ctx context.Context,
	reader MessageReader,
	warmer DocumentWarmer,
	logger *zap.Logger,
) {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("kafka.consumer.dispensa_decided")
	log.Info("dispensa decided consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("dispensa decided consumer stopped")
				return
			}
			log.Error("fetch dispensa decided message failed", zap.Error(err))
			continue
		}

		if HandleDispensaDecided(ctx, msg, warmer, log) {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Error("commit dispensa decided message failed", zap.Error(err))
			}
		}
	}
}

// HandleDispensaDecided processes one message and reports whether its
// offset may be committed. Transient failures leave it uncommitted.
func HandleDispensaDecided(ctx context.Context, msg kafkago.Message, warmer DocumentWarmer, log *zap.Logger) bool {
	var event events.DispensaDecidedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode dispensa_decided event failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		return true
	}

	fields := []zap.Field{
		zap.String("dispensa_id", event.DispensaID),
		zap.String("protocol", event.Protocol),
		zap.String("request_id", event.RequestID),
		zap.String("action", event.Action),
		zap.String("from_stage", event.FromStage),
		zap.String("to_stage", event.ToStage),
	}

	if !event.Final() {
		log.Info("dispensa advanced", fields...)
		return true
	}
	if event.ToStage != "APPROVED" {
		log.Info("dispensa rejected", fields...)
		return true
	}

	if err := warmer.WarmDocument(ctx, event.DispensaID); err != nil {
		if apperror.ToHTTP(err).Status < http.StatusInternalServerError {
			log.Warn("dispensa document not warmable, skipping", append(fields, zap.Error(err))...)
			return true
		}
		log.Error("warm dispensa document failed", append(fields, zap.Error(err))...)
		return false
	}

	log.Info("dispensa approved, document cached", fields...)
	return true
}
