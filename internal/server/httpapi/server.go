// Package httpapi exposes the versioned document store as a single HTTP
// resource with JSON bodies. The method plus the "action" query parameter
// select the operation; see the handler switch in routes().
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/server/auth"
	"github.com/dmitrijs2005/linkdeck/internal/server/docstore"
)

type Server struct {
	address string
	logger  logging.Logger
	store   *docstore.Store
	auth    *auth.Authenticator
	origins string
}

func NewServer(address string, logger logging.Logger, store *docstore.Store, authenticator *auth.Authenticator, corsOrigins string) *Server {
	return &Server{
		address: address,
		logger:  logger.With("module", "http_server"),
		store:   store,
		auth:    authenticator,
		origins: corsOrigins,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(s.origins, ","),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", common.SyncSecretHeaderName},
	}))
	r.Use(s.authenticate)

	r.Get("/", s.handleGet)
	r.Post("/", s.handlePost)
	r.Delete("/", s.handleDelete)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// authenticate guards every operation. The caller presents either the
// shared secret header or a previously issued Bearer token. Skipped
// entirely when no password is configured.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		if secret := r.Header.Get(common.SyncSecretHeaderName); secret != "" {
			if err := s.auth.CheckSecret(secret); err != nil {
				writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			if err := s.auth.CheckToken(token); err != nil {
				writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		writeError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
