package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/amqp"
	"fintrack/internal/apiclient"
	"fintrack/internal/log"
	"fintrack/internal/registry"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, then the registry source and the optional
// event publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store  Store
		source registry.Source
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := f.createSQLiteStore(ctx, config)
		if err != nil {
			return nil, err
		}
		store, source = repo, repo
	case MemoryBackend:
		mem := memory.NewFromFiles(config.DataDirectory)
		f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
		store, source = mem, mem
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.RegistryURL != "" {
		client, err := apiclient.NewRegistryClient(nil, config.RegistryURL, config.RegistryToken, config.RegistryTimeout)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("registry client: %w", err)
		}
		source = client
		f.logger.WithComponent(log.ComponentRegistry).Info("Using remote registry",
			"url", config.RegistryURL,
			"cache_ttl", config.RegistryCacheTTL)
	}

	result := &BackendResult{
		Store:    store,
		Registry: registry.NewCached(source, config.RegistryCacheTTL),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			// assigned only on success so Publisher stays a nil interface otherwise
			result.Publisher = client
			result.Events = client
		}
	}

	events := result.Events
	result.Cleanup = func() error {
		var errs []error
		if events != nil {
			errs = append(errs, events.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Seed files are optional for SQLite; the registry tables may be filled externally.
	if hasSeedFiles(config.DataDirectory) {
		accounts, categories := memory.LoadSeed(config.DataDirectory)
		if err := repo.SeedRegistry(ctx, accounts, categories); err != nil {
			repo.Close()
			return nil, fmt.Errorf("seed registry: %w", err)
		}
		f.logger.Info("Seeded registry tables",
			"accounts", len(accounts),
			"categories", len(categories))
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())
	return repo, nil
}

func hasSeedFiles(dir string) bool {
	if dir == "" {
		return false
	}
	for _, name := range []string{"seed_accounts.txt", "seed_categories.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
