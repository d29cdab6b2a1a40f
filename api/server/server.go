package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/dSolr/api/common"
	"github.com/klauspost/compress/gzhttp"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("api")

// Server is the HTTP API in front of the solr transport client
type Server struct {
	config common.ServerConfig
	client ISolrClient
	keys   *apiKeyRegistry
}

// NewServer creates a new API server
// It takes a config and the solr client as parameters
//
// Usage:
//
//	client, _ := solr.NewClient(clientConfig)
//	s := server.NewServer(serverConfig, client)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, client ISolrClient) *Server {
	s := &Server{
		config: config,
		client: client,
		keys:   newAPIKeyRegistry(config.APIKeys),
	}

	if !s.keys.enabled() {
		Logger.Warningf("No api keys configured, authentication is disabled")
	}
	return s
}

// Handler returns the http handler with all routes and middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// operations, no authentication
	mux.HandleFunc("GET /ops/healthz", s.handleHealth)
	mux.HandleFunc("GET /ops/readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// public search api
	mux.Handle("POST /api/v1/search/query", s.authenticated(s.handleQuery))

	// internal solr administration
	mux.Handle("POST /internal/solr/update", s.authenticated(s.handleUpdate))
	mux.Handle("POST /internal/solr/delete", s.authenticated(s.handleDelete))
	mux.Handle("POST /internal/solr/delete-all", s.authenticated(s.handleDeleteAll))
	mux.Handle("PUT /internal/solr/synonyms/{type}", s.authenticated(s.handleSynonyms))
	mux.Handle("POST /internal/solr/reload", s.authenticated(s.handleReload))
	mux.Handle("POST /internal/solr/replication/{command}", s.authenticated(s.handleReplication))

	var handler http.Handler = gzhttp.GzipHandler(mux)
	handler = loggerMiddleware(handler)
	handler = versionMiddleware(s.config.Version, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// Serve starts the API and blocks until ctx is done, then shuts the server down gracefully
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Endpoint, err)
	}
	return s.serve(ctx, listener)
}

// serve runs the http server on the given listener
func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	Logger.Infof("Starting HTTP server on %s", listener.Addr())
	Logger.Infof("Configuration:%s", s.config.String())

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	Logger.Infof("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.ShutdownTimeoutSecond)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	Logger.Infof("HTTP server stopped")
	return nil
}
