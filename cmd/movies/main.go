package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dannyrandall/moviesdb/internal/config"
	"github.com/dannyrandall/moviesdb/internal/copilot"
	"github.com/dannyrandall/moviesdb/internal/handlers"
	"github.com/dannyrandall/moviesdb/internal/otel"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("unable to load config: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("error serving: %s", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// Timeout for setup functions
	setupCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	svcName := copilot.ServiceName("movies")
	if cfg.Tracing == config.TracingOtel {
		shutdown, err := otel.SetupTracer(setupCtx, svcName)
		if err != nil {
			return fmt.Errorf("setup otel tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("error flushing traces: %s", err)
			}
		}()
	}

	s, err := openStore(setupCtx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			log.Printf("error closing store: %s", err)
		}
	}()

	h := handlers.New(s, handlers.Options{
		MaxPageSize:    cfg.MaxPageSize,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		Tracing:        cfg.Tracing,
		ServiceName:    svcName,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
