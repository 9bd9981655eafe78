package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/base2-shop/api/internal/config"
	"github.com/base2-shop/api/internal/database"
	"github.com/base2-shop/api/internal/document"
	"github.com/base2-shop/api/internal/enum"
	"github.com/base2-shop/api/internal/handler"
	"github.com/base2-shop/api/internal/logger"
	"github.com/base2-shop/api/internal/metrics"
	mw "github.com/base2-shop/api/internal/middleware"
	"github.com/base2-shop/api/internal/service"
	"github.com/base2-shop/api/internal/ws"
)

const maxBodyBytes = 1 << 20

// New creates a Chi router with all application routes wired up.
// m may be nil, in which case no metrics are recorded or exposed.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub, m *metrics.Metrics, log *zap.Logger) (chi.Router, error) {
	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}
	handler.SetErrorDetail(!cfg.IsProduction())

	sec := secure.New(secure.Options{
		STSSeconds:           63072000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		IsDevelopment:        !cfg.IsProduction(),
	})

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.Middleware(log),
		middleware.Recoverer,
	)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(
		corsMiddleware(cfg.CORSAllowedOrigins),
		requestBodyLimit(maxBodyBytes),
		sec.Handler,
	)

	// --- Dependencies ---
	queries := database.New(pool)
	opts := []service.Option{service.WithPublisher(hub), service.WithTxTimeout(cfg.TxTimeout)}
	if m != nil {
		opts = append(opts, service.WithMetrics(m))
	}

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, opts...)
	workOrderService := service.NewWorkOrderService(pool, func(db database.DBTX) service.WorkOrderStore {
		return database.New(db)
	}, taxRate, opts...)
	renderer := document.NewRenderer(document.Company{Name: cfg.CompanyName, Details: cfg.CompanyDetails})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.ReadTimeout)
	menuHandler := handler.NewMenuHandler(queries, cfg.ReadTimeout)
	orderHandler := handler.NewOrderHandler(orderService, queries, cfg.ReadTimeout)
	reportsHandler := handler.NewReportsHandler(queries, cfg.ReadTimeout)
	workOrderHandler := handler.NewWorkOrderHandler(workOrderService, queries, renderer, cfg.ReadTimeout)

	requireAdmin := func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleAdmin))
	}

	// --- Routes ---
	if m != nil {
		for _, topic := range []string{enum.TopicOrders, enum.TopicWorkOrders} {
			m.ObserveSubscribers(topic, func() int { return hub.Subscribers(topic) })
		}
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/health", handler.Health(pool))

		r.Route("/auth", func(r chi.Router) {
			authHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				authHandler.RegisterProtectedRoutes(r)
			})
		})

		r.Route("/menu", func(r chi.Router) {
			menuHandler.RegisterPublicRoutes(r)
			r.Group(func(r chi.Router) {
				requireAdmin(r)
				menuHandler.RegisterAdminRoutes(r)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.OptionalAuthenticate(cfg.JWTSecret))
				orderHandler.RegisterPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				requireAdmin(r)
				orderHandler.RegisterAdminRoutes(r)
				reportsHandler.RegisterRoutes(r)
			})
		})

		r.Route("/workorders", func(r chi.Router) {
			requireAdmin(r)
			workOrderHandler.RegisterRoutes(r)
		})
	})

	log.Info("router initialized", zap.String("environment", cfg.Environment))
	return r, nil
}

// NewServer returns an *http.Server with production timeouts.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func corsMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(allowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// parseOrigins splits a comma-separated origins string. An empty list
// allows every origin.
func parseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p := strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestBodyLimit caps request bodies at maxBytes. Oversized bodies fail
// to decode and are answered with 400.
func requestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
