package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-grader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/job"
	"github.com/mind-engage/mindengage-grader/internal/rbac"
)

type Deps struct {
	Auth     *authmw.AuthService
	Users    *authmw.PasswordLogin
	Grader   *grading.Grader
	Defaults grading.Config
	Runner   *job.Runner // nil leaves /grade/column unmounted
	MaxBatch int

	Gatherer    prometheus.Gatherer // nil leaves /metrics unmounted
	CORSOrigins []string
	Logger      *zap.Logger
	Timeout     time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermCompare)).
			Post("/grade/compare", CompareHandler(d.Grader, d.Defaults, d.Logger))
		pr.With(rbac.Require(rbac.PermBatch)).
			Post("/grade/batch", BatchHandler(d.Grader, d.Defaults, d.MaxBatch, d.Logger))
		if d.Runner != nil {
			pr.With(rbac.Require(rbac.PermColumn)).
				Post("/grade/column", ColumnHandler(d.Runner, d.Logger))
		}
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
