package daemon

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/samber/oops"

	"github.com/materials-data-facility/connect/internal/api/connectapi"
	"github.com/materials-data-facility/connect/internal/config"
	"github.com/materials-data-facility/connect/internal/handlers"
	"github.com/materials-data-facility/connect/internal/log"
	"github.com/materials-data-facility/connect/internal/middleware"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ServerLogDomain   = "server daemon"

	APIVersionedNamespace = "/api/v1"
)

type ConnectServer struct {
	cfg    *config.Config
	server *http.Server
}

type Server interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Server = (*ConnectServer)(nil)

func NewConnectServer(cfg *config.Config, api *handlers.API) (*ConnectServer, error) {
	handler, err := NewHandler(api)
	if err != nil {
		return nil, err
	}

	return &ConnectServer{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: ReadHeaderTimeout,
			ReadTimeout:       ReadTimeout,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       IdleTimeout,
		},
	}, nil
}

// NewHandler returns the API routes behind the middleware chain. Requests
// are validated against the OpenAPI document before they reach a route.
func NewHandler(api *handlers.API) (http.Handler, error) {
	swagger, err := connectapi.GetSwagger()
	if err != nil {
		return nil, oops.In(ServerLogDomain).Wrapf(err, "setup swagger")
	}

	mux := NewServeMux(APIVersionedNamespace)
	api.Register(mux)

	// Middlewares run in a FILO. Last middleware on the slice is the first one ran
	// First middleware to run should be the InjectRequestID
	middlewares := []func(http.Handler) http.Handler{
		middleware.InjectIdentity(),
		middleware.OAPIMiddleware(swagger),
		middleware.LoggingMiddleware(),
		middleware.PanicRecoveryMiddleware(),
		middleware.InjectRequestID(),
	}

	var h http.Handler = mux
	for _, mw := range middlewares {
		h = mw(h)
	}

	return h, nil
}

func (s *ConnectServer) Start(ctx context.Context) error {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server encountered an error", err)

			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()

	return nil
}

func (s *ConnectServer) Close(ctx context.Context) error {
	shutdownCtx, shutdownRelease := context.WithTimeout(ctx, s.cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		return oops.In(ServerLogDomain).
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	log.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
