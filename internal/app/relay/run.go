// Package relay consumes the notifications queue and keeps the
// per-customer notification history. It stands in for the offline
// channels (email/SMS) of the original deployment: a real sender would
// hang off the same queue.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/config"
	"water-delivery-system/internal/connections/database"
	"water-delivery-system/internal/connections/rabbitmq"
	"water-delivery-system/internal/domain"
)

func Run(ctx context.Context, cfg config.Config) error {
	lg := logger.New("notification-relay")

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect error: %w", err)
	}
	defer pool.Close()
	if err := database.InitSchema(ctx, pool); err != nil {
		return err
	}

	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq connect error: %w", err)
	}
	defer rmq.Close()
	if err := rmq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology error: %w", err)
	}

	deliveries, err := rmq.Consume(rabbitmq.NotificationsQueue, "notification-relay", cfg.RabbitMQ.Prefetch)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", rabbitmq.NotificationsQueue, err)
	}
	lg.Info("service_started", map[string]any{"queue": rabbitmq.NotificationsQueue})

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("notifications channel closed")
			}
			var msg domain.NotificationMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				lg.Error("notification_malformed", err, map[string]any{"body": string(d.Body)})
				_ = d.Nack(false, false)
				continue
			}

			// customer-facing kinds go into the history table
			if msg.CustomerID > 0 && msg.Kind != domain.EventOrderCreated {
				_, err := pool.Exec(ctx, `
					INSERT INTO notifications (customer_id, title, message, created_at)
					VALUES ($1, $2, $3, $4)
				`, msg.CustomerID, msg.Title, msg.Message, msg.Timestamp)
				if err != nil {
					lg.Error("notification_store_failed", err, map[string]any{"order_id": msg.OrderID})
					_ = d.Nack(false, true)
					continue
				}
			}

			lg.Info("notification_relayed", map[string]any{
				"kind": string(msg.Kind), "order_id": msg.OrderID, "customer_id": msg.CustomerID,
			})
			_ = d.Ack(false)
		}
	}
}
