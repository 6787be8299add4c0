package api

import (
	"context"
	"fmt"

	"water-delivery-system/internal/common/httpx"
	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/config"
	"water-delivery-system/internal/connections/database"
	"water-delivery-system/internal/connections/rabbitmq"
	"water-delivery-system/internal/dispatch"
	"water-delivery-system/internal/ledger"
	"water-delivery-system/internal/orders"
	"water-delivery-system/internal/server"
	"water-delivery-system/internal/subscription"
)

// Run wires the api service: Postgres, the broker relay, the
// subscription registry and the order pipeline behind the HTTP server.
func Run(ctx context.Context, cfg config.Config) error {
	lg := logger.New("api-service")

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect error: %w", err)
	}
	defer pool.Close()
	if err := database.InitSchema(ctx, pool); err != nil {
		return err
	}
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	// The broker is an offline mirror of the live notifications; the
	// api stays up without it, delivery just degrades to live-only.
	var relay dispatch.Publisher
	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		lg.Warn("rabbitmq_unavailable", err, map[string]any{"host": cfg.RabbitMQ.Host})
	} else {
		defer rmq.Close()
		if err := rmq.DeclareTopology(); err != nil {
			return fmt.Errorf("rabbitmq topology error: %w", err)
		}
		relay = rmq
		lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host})
	}

	reg := subscription.NewRegistry(lg)
	led := ledger.New(lg)
	disp := dispatch.New(reg, relay, lg, cfg.Dispatch.HandleTimeout, cfg.Dispatch.MaxInFlight)
	svc := orders.NewService(orders.NewPGRepo(pool), led, disp, lg)

	router := server.NewRouter(svc, reg, lg)
	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTPPort), router)
	lg.Info("service_started", map[string]any{"port": cfg.HTTPPort})
	return srv.Run(ctx)
}
