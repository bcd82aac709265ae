package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	committedCacheSize = 100
	committedCacheTTL  = 5 * time.Minute
	cacheSweepInterval = 10 * time.Minute
)

// TemplateManager is the template CRUD surface.
type TemplateManager interface {
	Create(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
	Update(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error)
	Get(ctx context.Context, id int64) (core.RecurringTemplate, error)
	List(ctx context.Context) ([]core.RecurringTemplate, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) (core.RecurringTemplate, error)
}

// Ledger is the pending/committed transaction surface.
type Ledger interface {
	Get(ctx context.Context, id int64) (core.PendingTransaction, error)
	List(ctx context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error)
	Committed(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error)
	GetCommitted(ctx context.Context, id int64) (core.CommittedTransaction, error)
	Confirm(ctx context.Context, id int64) (core.CommittedTransaction, error)
	Reject(ctx context.Context, id int64) (core.PendingTransaction, error)
	BatchConfirm(ctx context.Context, ids []int64) services.BatchResult
	BatchReject(ctx context.Context, ids []int64) services.BatchResult
}

// Generator materializes recurring templates.
type Generator interface {
	Generate(ctx context.Context, asOf core.Date) (services.GenerateResult, error)
}

// Pinger reports storage reachability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Templates TemplateManager
	Ledger    Ledger
	Engine    Generator
	Store     Pinger
}

// Options tunes the ambient middleware.
type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// CacheManager sweeps the server's caches. When nil the server runs its own.
	CacheManager *cache.Manager
}

type Server struct {
	http.Server
	deps   Deps
	logger *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	// committed transaction listings keyed by date range, purged after confirmations
	committedCache *cache.LRUCache[[]core.CommittedTransaction]
	cacheManager   *cache.Manager
	ownsManager    bool

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	confirmed   int64
	rejected    int64
	generated   int64
	cacheHits   int64
	cacheMisses int64
	uptime      time.Time
}

// NewServer wires routes and middleware. Call Shutdown to stop background cleanup.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:             deps,
		logger:           logger,
		securityDetector: security.NewDetector(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		committedCache: cache.NewLRUCache[[]core.CommittedTransaction](committedCacheSize, committedCacheTTL),
		cacheManager:   opts.CacheManager,
		appMetrics:     &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	if s.cacheManager == nil {
		s.cacheManager = cache.NewManager(logger.Logger)
		s.cacheManager.StartCleanup(cacheSweepInterval)
		s.ownsManager = true
	}
	s.cacheManager.Register(s.committedCache)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/templates/{id}/activate", s.handleSetTemplateActive(true))
	mux.HandleFunc("POST /api/templates/{id}/deactivate", s.handleSetTemplateActive(false))

	mux.HandleFunc("POST /api/recurring/generate", s.handleGenerate)

	mux.HandleFunc("GET /api/pending", s.handleListPending)
	mux.HandleFunc("GET /api/pending/{id}", s.handleGetPending)
	mux.HandleFunc("POST /api/pending/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/pending/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /api/pending/batch/confirm", s.handleBatchConfirm)
	mux.HandleFunc("POST /api/pending/batch/reject", s.handleBatchReject)

	mux.HandleFunc("GET /api/transactions", s.handleListCommitted)
	mux.HandleFunc("GET /api/transactions/summary", s.handleSummary)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetCommitted)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, rateLimited)(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Shutdown stops background cleanup and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.ownsManager {
			s.cacheManager.Stop()
		}
		if err := s.Server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http server shutdown: %w", err)
		}
	})
	return shutdownErr
}

// invalidateCommitted drops every cached listing after the ledger changed.
func (s *Server) invalidateCommitted() {
	s.committedCache.Purge()
}
