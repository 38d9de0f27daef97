package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// shutdownTimeout bounds the graceful shutdown of in-flight requests
const shutdownTimeout = 30 * time.Second

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr())
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := s.setupHTTPServer()

	s.startWatchers()
	defer s.stopWatchers()

	s.displayServerInfo()

	return s.serveWithGracefulShutdown(ctx, httpServer, listener)
}

func (s *Server) addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWatchers starts prompt hot reload and Vault key rotation when configured.
// A watcher that cannot start is logged and skipped.
func (s *Server) startWatchers() {
	if s.AppConfig != nil && s.AppConfig.AI.WatchPrompts {
		s.promptWatcher = NewPromptWatcher(s.AppConfig.Prompts(), time.Second, s.Logger)
		if err := s.promptWatcher.Start(); err != nil {
			s.Logger.LogError(err, "Failed to start prompt watcher")
			s.promptWatcher = nil
		}
	}

	if s.vault == nil || s.AppConfig == nil {
		return
	}
	vaultCfg := s.AppConfig.Vault
	if vaultCfg.PollInterval <= 0 || vaultCfg.Secrets.APIKeys == "" {
		return
	}

	var initialVersion int64
	if secret, err := s.vault.GetSecretV2(vaultCfg.Secrets.APIKeys); err == nil {
		initialVersion = secret.Version
	} else {
		s.Logger.Warn("Could not read initial access key version", "error", err.Error())
	}

	s.keyWatcher = NewKeyWatcher(s.vault, vaultCfg.Secrets.APIKeys, vaultCfg.PollInterval, initialVersion,
		func(keys []string, err error) {
			if err != nil {
				return
			}
			s.SetAPIKeys(keys)
			s.Logger.Info("Access keys rotated from Vault", "count", len(keys))
		}, s.Logger)
	if err := s.keyWatcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start Vault key watcher")
		s.keyWatcher = nil
	}
}

func (s *Server) stopWatchers() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.keyWatcher != nil {
		if err := s.keyWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop Vault key watcher")
		}
	}
}

// serveWithGracefulShutdown serves in the background until ctx is done or
// the server fails
func (s *Server) serveWithGracefulShutdown(ctx context.Context, server *http.Server, listener net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
