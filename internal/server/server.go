// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/auth"
	"github.com/petermazzocco/beauty-advisor/internal/handlers"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/internal/metrics"
)

type Deps struct {
	Env     *handlers.Env
	DB      *gorm.DB
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	FrontendURL        string
	RateLimitPerMinute int
	// UploadDir is served under /uploads when set.
	UploadDir string
	// OAuth mounts the provider sign-in routes.
	OAuth bool
}

func NewRouter(d Deps) http.Handler {
	env := d.Env

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(d.Metrics.Middleware)
	r.Use(logger.Middleware(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		env.Respond.Message(w, http.StatusOK, "Welcome to Beauty Advisor API")
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health(w, r, d)
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	if d.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(filesOnly{http.Dir(d.UploadDir)}))
		r.Handle("/uploads/*", fs)
	}

	limit := d.RateLimitPerMinute
	if limit <= 0 {
		limit = 60
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.Limit(
			limit,
			1*time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		))

		// Public
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			handlers.RegisterHandler(w, r, env)
		})
		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			handlers.LoginHandler(w, r, env)
		})
		if d.OAuth {
			r.Get("/auth/{provider}", handlers.BeginAuthHandler)
			r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
				handlers.UserLoginHandler(w, r, env)
			})
		}

		// Available API routes for authenticated users
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(env.Auth, env.Respond))

			r.Get("/auth/profile", func(w http.ResponseWriter, r *http.Request) {
				handlers.GetUserHandler(w, r, env)
			})
			r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
				handlers.LogoutHandler(w, r, env)
			})

			r.Route("/images", func(r chi.Router) {
				r.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
					handlers.UploadImageHandler(w, r, env)
				})
				r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetImagesForUserHandler(w, r, env)
				})
				r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetImageByIDHandler(w, r, env)
				})
				r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
					handlers.DeleteImageHandler(w, r, env)
				})
			})

			r.Route("/recommendations", func(r chi.Router) {
				r.Post("/generate/{photoId}", func(w http.ResponseWriter, r *http.Request) {
					handlers.GenerateRecommendationHandler(w, r, env)
				})
				r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetRecommendationsForUserHandler(w, r, env)
				})
				r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetRecommendationByIDHandler(w, r, env)
				})
				r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
					handlers.DeleteRecommendationHandler(w, r, env)
				})
			})

			r.Route("/feedback", func(r chi.Router) {
				r.Get("/user", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetFeedbackForUserHandler(w, r, env)
				})
				r.Get("/recommendation/{recommendationId}", func(w http.ResponseWriter, r *http.Request) {
					handlers.GetFeedbackForRecommendationHandler(w, r, env)
				})
				r.Post("/{recommendationId}", func(w http.ResponseWriter, r *http.Request) {
					handlers.SubmitFeedbackHandler(w, r, env)
				})
				r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
					handlers.DeleteFeedbackHandler(w, r, env)
				})
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request, d Deps) {
	status, dbState := http.StatusOK, "ok"
	if d.DB != nil {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			status, dbState = http.StatusServiceUnavailable, "unavailable"
		}
	}
	d.Env.Respond.JSON(w, status, map[string]string{
		"status":   http.StatusText(status),
		"database": dbState,
	})
}

// filesOnly hides directories so the upload root cannot be listed.
type filesOnly struct {
	http.FileSystem
}

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
