// Package httpapi exposes the authentication and pairing services over a
// JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dbelyaev/srpvault/internal/logging"
	"github.com/dbelyaev/srpvault/internal/server/services"
)

// HTTPServer wires the services into a chi router and owns the listener
// lifecycle.
type HTTPServer struct {
	address   string
	pake      *services.PakeService
	pairing   *services.PairingService
	logger    logging.Logger
	jwtSecret []byte
}

// NewHTTPServer constructs the transport layer.
func NewHTTPServer(address string, logger logging.Logger, pake *services.PakeService,
	pairing *services.PairingService, secretKey string) *HTTPServer {
	return &HTTPServer{
		address:   address,
		pake:      pake,
		pairing:   pairing,
		logger:    logger.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the route tree. Split out from Run so tests can drive it
// through httptest without binding a socket.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/auth/pake", func(r chi.Router) {
		r.Post("/register/start", s.handleRegisterStart)
		r.Post("/register/finish", s.handleRegisterFinish)
		r.Post("/login/start", s.handleLoginStart)
		r.Post("/login/finish", s.handleLoginFinish)
		r.Post("/token/refresh", s.handleTokenRefresh)
		r.Post("/pair/redeem", s.handlePairRedeem)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)
			r.Post("/pair/start", s.handlePairStart)
			r.Post("/pair/transfer", s.handlePairTransfer)
			r.Post("/upgrade", s.handleUpgrade)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
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
