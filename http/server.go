package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/AwareRO/surveymeta/http/handlers"
	"github.com/AwareRO/surveymeta/metrics"
)

const shutdownGrace = 5 * time.Second

func RunServerWithMetrics(cfg *Config, router *httprouter.Router, collector metrics.Collector) error {
	router.GET("/metrics", handlers.FromStdlib(collector.GetHttpHandler()))
	return RunServer(cfg, router)
}

// RunServer serves handler until SIGHUP, SIGINT, SIGQUIT or SIGTERM.
func RunServer(cfg *Config, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg, handler)
}

// Serve runs the server until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, cfg *Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		log.Error().Err(err).Msg("HTTP listen and serve")
		return err
	case <-ctx.Done():
	}

	gracefullCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelShutdown()

	if err := srv.Shutdown(gracefullCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("gracefully stopped")

	return nil
}
