package backend

import (
	"context"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/ports"
	"fintrack/internal/registry"
)

// Store is a ports.Store that can report its health.
type Store interface {
	ports.Store
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles everything the binaries wire into services.
type BackendResult struct {
	Store Store

	// Registry serves account and category lookups with a TTL cache in front
	// of the local tables or the remote registry.
	Registry *registry.Cached

	// Publisher is nil when events are disabled. Events is the same client,
	// exposed for consumers.
	Publisher ports.EventPublisher
	Events    *amqp.Client

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath  string
	DataDirectory string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	RegistryURL      string
	RegistryToken    string
	RegistryTimeout  time.Duration
	RegistryCacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
