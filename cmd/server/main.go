// Command server runs the sociallink API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sociallink/internal/config"
	"sociallink/internal/observability"
	"sociallink/internal/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title sociallink API
// @version 1.0
// @description Social network API with connections, posts, nested comments, likes and a notification stream
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@sociallink.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flushSpans, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "sociallink-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := flushSpans(ctx); err != nil {
			log.Printf("flush spans: %v", err)
		}
	}()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopped := make(chan error, 1)
	go func() { stopped <- srv.Start() }()

	select {
	case err := <-stopped:
		// listener failed before any signal arrived
		return err
	case <-ctx.Done():
	}

	log.Printf("signal received, draining connections (version %s)", version)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
