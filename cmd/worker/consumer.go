package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notification-worker/internal/config"
	"notification-worker/internal/db"
	"notification-worker/internal/dispatcher"
	httpSrv "notification-worker/internal/http"
	"notification-worker/internal/logger"
	"notification-worker/internal/metrics"
	"notification-worker/internal/rabbitmq"
	"notification-worker/internal/repository"
	"notification-worker/internal/worker"
)

var consumerCmd = &cobra.Command{
	Use:   "consumer",
	Short: "Run the notification queue consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		log := logger.Log
		defer func() { _ = log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		// 2) broker connection; failure here aborts startup (no partial start)
		queue, err := rabbitmq.Dial(rabbitmq.Config{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		})
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer func() { _ = queue.Close() }()

		// 3) delivery channel
		provider := dispatcher.NewSMTPProvider(dispatcher.SMTPOpts{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.SMTP.Username,
			Password:      cfg.SMTP.Password,
			SenderEmail:   cfg.SMTP.SenderEmail,
			SenderName:    cfg.SMTP.SenderName,
			FailThreshold: cfg.SMTP.Breaker.FailThreshold,
			OpenFor:       time.Duration(cfg.SMTP.Breaker.OpenForMs) * time.Millisecond,
		})
		disp := dispatcher.New(provider)

		// 4) audit store (optional infrastructure)
		audit, cleanup := buildAuditRepository(cfg, log)
		if cleanup != nil {
			defer cleanup()
		}

		consumer := worker.NewConsumer(queue, disp, audit, log)

		// 5) ops endpoints
		srv := httpSrv.NewServer()
		go func() {
			if err := srv.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("ops server exited", zap.Error(err))
			}
		}()

		// 6) graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runErr := consumer.Run(ctx)

		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)

		return runErr
	},
}

// buildAuditRepository wires the configured audit backend. Persistence is
// optional: a missing or unreachable store disables it with a warning, it
// never aborts startup.
func buildAuditRepository(cfg config.Config, log *zap.Logger) (repository.AuditRepository, func()) {
	switch cfg.Audit.Backend {
	case "mongo":
		if cfg.Mongo.Database == "" || cfg.Mongo.Collection == "" {
			log.Warn("mongo database/collection not configured, audit persistence disabled")
			return nil, nil
		}
		client, err := db.NewMongoClient(db.MongoOpts{
			URI:            cfg.Mongo.URI,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			log.Warn("mongo connect failed, audit persistence disabled", zap.Error(err))
			return nil, nil
		}
		log.Info("audit persistence enabled",
			zap.String("backend", "mongo"),
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		cleanup := func() { _ = client.Disconnect(context.Background()) }
		return repository.NewMongoAuditRepository(client, cfg.Mongo.Database, cfg.Mongo.Collection), cleanup

	case "clickhouse":
		if cfg.ClickHouse.DSN == "" {
			log.Warn("clickhouse dsn not configured, audit persistence disabled")
			return nil, nil
		}
		ch, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			log.Warn("clickhouse connect failed, audit persistence disabled", zap.Error(err))
			return nil, nil
		}
		log.Info("audit persistence enabled", zap.String("backend", "clickhouse"))
		return repository.NewCHAuditRepository(ch), func() { _ = ch.Close() }

	default:
		log.Warn("audit persistence disabled", zap.String("backend", cfg.Audit.Backend))
		return nil, nil
	}
}
