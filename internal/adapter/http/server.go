package adapthttp

import (
	"net/http"

	"photoshare/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Options carries transport settings that are not owned by a service.
type Options struct {
	AllowedOrigin  string
	CookieSecure   bool
	MaxUploadBytes int64
	Version        string
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	users   *app.UserService
	auth    *app.AuthService
	photos  *app.PhotoService
	stats   *app.StatsService
	log     logrus.FieldLogger
	metrics *Metrics
	oidc    *OIDCConfig
	opts    Options
}

// New creates a Server wired to the given application services.
func New(users *app.UserService, auth *app.AuthService, photos *app.PhotoService, stats *app.StatsService, log logrus.FieldLogger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = app.MaxUploadBytes
	}
	if opts.Version == "" {
		opts.Version = "2.0.0"
	}
	return &Server{
		users:   users,
		auth:    auth,
		photos:  photos,
		stats:   stats,
		log:     log,
		metrics: NewMetrics(),
		oidc:    &OIDCConfig{},
		opts:    opts,
	}
}

// WithOIDC enables single sign-on.
func (s *Server) WithOIDC(cfg *OIDCConfig) *Server {
	if cfg != nil {
		s.oidc = cfg
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.opts.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(withNoCache)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/test/info", s.handleInfo)

	r.Post("/user", s.handleRegister)
	r.Post("/admin/login", s.handleLogin)
	r.Get("/admin/check", s.handleCheck)

	r.Get("/user/list", s.handleUserList)
	r.Get("/user/{id}", s.handleUserProfile)
	r.Get("/users/stats", s.handleStats)
	r.Get("/photosOfUser/{id}", s.handlePhotosOfUser)
	r.Get("/images/{name}", s.handleImage)

	r.Get("/auth/config", s.handleConfig)
	r.Get("/auth/sso/login", s.handleSSOLogin)
	r.Get("/auth/sso/callback", s.handleSSOCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/admin/logout", s.handleLogout)
		r.Get("/commentsOfUser/{id}", s.handleCommentsOfUser)
		r.Post("/commentsOfPhoto/{photoID}", s.handleAddComment)
		r.Post("/photos/new", s.handleUpload)
	})

	return r
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":     s.opts.Version,
		"description": "Photo Sharing API",
	})
}
