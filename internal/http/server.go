package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finances/internal/cache"
	"finances/internal/log"
	"finances/internal/middleware/ratelimit"
	"finances/internal/middleware/security"
	"finances/internal/middleware/trace"
	"finances/internal/services"
	appweb "finances/web"
)

const (
	maxPageLimit        = 500
	requestTimeout      = 30 * time.Second
	cacheSweepInterval  = 10 * time.Minute
	staticAssetMaxAge   = 3600
	readyTimeout        = 5 * time.Second
	defaultRateLimitRPM = 60
)

// Options wires a Server. Ledger and Dashboard are required.
type Options struct {
	Addr               string
	Ledger             *services.LedgerService
	Dashboard          *services.DashboardService
	Logger             *log.Logger
	PageSize           int
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	// Now is the clock used for "today" defaults.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	logger    *log.Logger
	pageSize  int
	now       func() time.Time
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	caches      *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = defaultRateLimitRPM
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		ledger:    opts.Ledger,
		dashboard: opts.Dashboard,
		logger:    logger,
		pageSize:  opts.PageSize,
		now:       opts.Now,
		started:   time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: security.NewDetector(),
		caches:   cache.NewManager(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	for _, c := range s.ledger.Caches() {
		s.caches.Register(c)
	}
	s.caches.StartCleanup(context.Background(), cacheSweepInterval)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)

	limitWrites := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(staticAssetMaxAge)).Handle("/static/*", static)
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", s.handleIndex)
		r.Get("/balance", s.handleBalancePage)
		r.Get("/budget", s.handleBudgetPage)
		r.Get("/monthly", s.handleMonthlyPage)
		r.Get("/ui/transactions", s.handleLedgerPartial)
		r.With(limitWrites).Post("/ui/transactions", s.handleCreateTransactionForm)
		r.With(limitWrites).Delete("/ui/transactions/{id}", s.handleDeleteTransactionForm)

		r.Route("/api", func(r chi.Router) {
			r.Use(log.ComponentMiddleware(log.ComponentAPI))

			r.Get("/transactions", s.handleListTransactions)
			r.With(limitWrites).Post("/transactions", s.handleCreateTransaction)
			r.With(limitWrites).Patch("/transactions", s.handleUpdateTransaction)
			r.With(limitWrites).Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Get("/accounts", s.handleAccounts)
			r.Get("/config/{key}", s.handleConfig)
			r.Get("/balance", s.handleBalance)
			r.Get("/balance/series", s.handleBalanceSeries)
			r.Get("/budget", s.handleBudget)
			r.Get("/category", s.handleCategory)
			r.Get("/monthly", s.handleMonthly)
			r.Post("/tags/verify", s.handleVerifyTags)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Close stops background routines without serving; used by tests.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
