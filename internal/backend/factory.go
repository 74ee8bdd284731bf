// Package backend opens the configured record store and the optional event
// publisher, and wires them into a RecordService.
package backend

import (
	"context"
	"fmt"

	"chitieu/internal/amqp"
	"chitieu/internal/log"
	"chitieu/internal/services"
	"chitieu/internal/storage"
	"chitieu/internal/store"
	"chitieu/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store, checks it answers, and attaches the AMQP
// publisher when one is configured. An unreachable broker is logged and
// skipped; an unreachable store is an error.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	if err := st.Ping(ctx); err != nil {
		closeStore(st)
		return nil, fmt.Errorf("ping %s store: %w", config.Type, err)
	}

	client := f.openPublisher(config)

	// A nil *amqp.Client must not reach the interface.
	var publisher services.Publisher
	if client != nil {
		publisher = client
	}
	records := services.NewRecordService(st, publisher, f.logger)

	f.logger.Info("Initialized backend",
		"backend", config.Type.String(),
		"amqp_enabled", client != nil)

	return &Result{
		Store:     st,
		Records:   records,
		Publisher: client,
		Cleanup:   records.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Opened Postgres database")
		return repo, nil
	case MemoryBackend:
		f.logger.Warn("Using in-memory store, records are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openPublisher(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events",
			log.FieldError, err.Error())
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func closeStore(st store.Store) {
	if c, ok := st.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
