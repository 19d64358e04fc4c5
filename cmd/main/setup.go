package main

import (
	"context"
	"fmt"
	"time"

	"trade-orders/src/config"
	"trade-orders/src/events"
	"trade-orders/src/helpers"
	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/models"
	"trade-orders/src/storage"
)

const (
	storeOpenAttempts = 5
	storeOpenDelay    = 500 * time.Millisecond
)

// -----------------------------------------------------------------------------

// setupStore builds the order store selected by storage.db_type and opens it,
// retrying while the backing database comes up.
func setupStore(ctx context.Context, cfg *models.MConfig) (interfaces.IOrderStore, error) {
	var (
		store interfaces.IOrderStore
		err   error
	)

	switch cfg.Storage.DBType {
	case config.DBTypePostgres:
		store, err = storage.NewPostgresOrderStore(cfg, logger.NewLogger(cfg.LogLevel, "PostgresOrderStore"))
	case config.DBTypeRedis:
		store = storage.NewRedisOrderStore(cfg, logger.NewLogger(cfg.LogLevel, "RedisOrderStore"))
	case config.DBTypeSQLite:
		store = storage.NewSQLiteOrderStore(cfg, logger.NewLogger(cfg.LogLevel, "SQLiteOrderStore"))
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, err
	}

	retryLogger := logger.NewLogger(cfg.LogLevel, "Startup")
	err = helpers.RetryWithBackoff(ctx, retryLogger, "open order store", storeOpenAttempts, storeOpenDelay, func() error {
		return store.Initialize(ctx)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupPublisher returns nil when order events are disabled.
func setupPublisher(cfg *models.MConfig) (interfaces.IEventPublisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}

	publisher, err := events.NewKafkaPublisher(cfg.Events, logger.NewLogger(cfg.LogLevel, "KafkaPublisher"))
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
