// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/outboundhq/outreach-backend/internal/config"
	"github.com/outboundhq/outreach-backend/internal/db"
	"github.com/outboundhq/outreach-backend/internal/observe"
	"github.com/outboundhq/outreach-backend/internal/queue"
	"github.com/outboundhq/outreach-backend/internal/repository"
	"github.com/outboundhq/outreach-backend/internal/service"
)

const maxDeliveryRetries = 3

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	reconciler := &service.Reconciler{
		CampaignRepo:   &repository.CampaignRepository{DB: conn},
		TouchpointRepo: &repository.TouchpointRepository{DB: conn},
		TargetRepo:     &repository.TargetRepository{DB: conn},
		Obs:            observe.NewHook(logger),
	}

	amqpConn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		logger.Fatal("failed to open a channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.AMQP.EventsQueue, // name
		true,                 // durable
		false,                // delete when unused
		false,                // exclusive
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		logger.Fatal("failed to declare queue", zap.Error(err))
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Fatal("failed to register consumer", zap.Error(err))
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.SyncJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Warn("invalid job payload", zap.Error(err))
				d.Ack(false)
				continue
			}

			result, err := reconciler.Reconcile(context.Background(), job.CampaignExternalID, job.Events)
			if err != nil {
				logger.Warn("reconcile failed", zap.String("campaign", job.CampaignExternalID), zap.Error(err))
				// Requeue up to maxDeliveryRetries times
				var retryCount int
				if d.Headers["x-retry-count"] != nil {
					if n, ok := d.Headers["x-retry-count"].(int32); ok {
						retryCount = int(n)
					}
				}
				if retryCount < maxDeliveryRetries {
					d.Nack(false, true) // requeue
					continue
				}
				d.Ack(false)
				continue
			}

			logger.Info("event batch reconciled",
				zap.String("campaign", job.CampaignExternalID),
				zap.Int("updated", result.Updated),
				zap.Int("skipped", result.Skipped),
				zap.Int("failed", len(result.Failures)))
			d.Ack(false)
		}
	}()

	logger.Info("worker running, waiting for platform events")
	<-forever
}
