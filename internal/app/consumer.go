package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-dispensa/internal/config"
	"go-dispensa/internal/department"
	"go-dispensa/internal/events"
	"go-dispensa/internal/messaging/kafka/consumer"
	"go-dispensa/internal/shared/connection"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const documentCacheGroup = "go-dispensa-document-cache"

// RunConsumer pre-renders approved documents from decision events.
func RunConsumer(cfg *config.Config, logger *zap.Logger) error {
	log := logger.Named("app.consumer")

	if err := cfg.RequireKafka(); err != nil {
		return err
	}
	if err := cfg.RequireRedis(); err != nil {
		return err
	}

	gormDB, err := connect(cfg)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.DBRetries)
	if err != nil {
		return err
	}
	defer rdb.Close()

	units := department.NewService(department.NewRepository(gormDB), rdb, cfg.SectorCacheTTL, logger)
	dispensaService := newDispensaService(sqlDB, gormDB, rdb, units, cfg, logger)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{cfg.KafkaBroker},
		Topic:          events.DispensaDecidedTopic,
		GroupID:        documentCacheGroup,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumer.ConsumeDispensaDecided(ctx, reader, dispensaService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("consumer shutting down")
	cancel()

	return nil
}
