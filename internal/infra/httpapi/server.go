package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

// DirectoryAPI is the application surface the HTTP layer exposes.
type DirectoryAPI interface {
	Catalog(ctx context.Context) (domain.CatalogView, error)
	Refresh(ctx context.Context) (domain.RefreshSummary, error)
	Status(ctx context.Context) domain.DiscoveryStatusReport
	GetServer(ctx context.Context, name string) (domain.ToolServer, error)
	CreateServer(ctx context.Context, server domain.ToolServer) (domain.ToolServer, error)
	UpdateServer(ctx context.Context, name string, server domain.ToolServer) (domain.ToolServer, error)
	DeleteServer(ctx context.Context, name string) error
}

// Server exposes the directory over HTTP. Routing is the standard mux;
// every request carries a request ID through context and response
// header.
type Server struct {
	logger    *zap.Logger
	directory DirectoryAPI
	addr      string
	handler   http.Handler
}

type ServerOptions struct {
	Addr      string
	Logger    *zap.Logger
	Directory DirectoryAPI
}

func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultListenAddress
	}
	s := &Server{
		logger:    logger.Named("httpapi"),
		directory: opts.Directory,
		addr:      addr,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/servers", s.handleCatalog)
	mux.HandleFunc("POST /api/v1/servers", s.handleCreateServer)
	mux.HandleFunc("GET /api/v1/servers/{name}", s.handleGetServer)
	mux.HandleFunc("PUT /api/v1/servers/{name}", s.handleUpdateServer)
	mux.HandleFunc("DELETE /api/v1/servers/{name}", s.handleDeleteServer)
	mux.HandleFunc("POST /api/v1/discovery/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/discovery/status", s.handleStatus)
	s.handler = s.withRequestMeta(mux)
	return s
}

// Handler returns the routed handler. Tests drive it directly.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Addr() string {
	return s.addr
}

// Start serves until ctx is canceled. It blocks; callers run it in a
// goroutine when they need to keep going.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.handler,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("api server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("api server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("api server stopped")
		return nil
	}
}
