package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/andreasstove999/shipment-service-go/internal/auth"
	"github.com/andreasstove999/shipment-service-go/internal/carrier"
	"github.com/andreasstove999/shipment-service-go/internal/config"
	"github.com/andreasstove999/shipment-service-go/internal/db"
	"github.com/andreasstove999/shipment-service-go/internal/events"
	httpapi "github.com/andreasstove999/shipment-service-go/internal/http"
	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/sequence"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg, os.Stdout))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, seq, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(cfg, seq, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	client := carrier.NewClient("easypost", cfg.EasyPostBaseURL, cfg.EasyPostAPIKey, &http.Client{Timeout: cfg.CarrierTimeout})
	gateway := carrier.NewGateway(client, logger, carrier.NewMetrics(reg))
	svc := shipment.NewService(store, gateway, publisher, logger)

	web, err := httpapi.NewWebHandler(svc, logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		API:      httpapi.NewAPIHandler(svc, postal.NewValidator(gateway), logger, cfg.DefaultPerPage),
		Web:      web,
		Tokens:   auth.NewTokens(cfg.JWTSecret),
		Logger:   logger,
		Metrics:  httpapi.NewHTTPMetrics(reg),
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		// A purchase makes two carrier calls.
		WriteTimeout: 2*cfg.CarrierTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("shipment-service listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown error", "error", err.Error())
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (shipment.Store, events.Sequencer, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using the in-memory store, shipments are lost on restart")
		return shipment.NewMemoryStore(), sequence.NewMemory(), func() {}, nil
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return shipment.NewPostgresStore(pool), sequence.NewPostgres(pool), pool.Close, nil
}

// openPublisher dials RabbitMQ when configured. Without a broker the service
// still runs and shipment events are dropped.
func openPublisher(cfg config.Config, seq events.Sequencer, logger *slog.Logger) (shipment.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, shipment events are not published")
		return events.Noop{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	pub, err := events.NewPublisher(conn, seq, events.PublisherOptions{
		Producer: cfg.EventsProducer,
		Logger:   logger,
	})
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("create publisher: %w", err)
	}

	closeFn := func() {
		if err := pub.Close(); err != nil {
			logger.Warn("publisher close error", "error", err.Error())
		}
		if err := conn.Close(); err != nil {
			logger.Warn("rabbitmq close error", "error", err.Error())
		}
	}
	return pub, closeFn, nil
}
