package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-stitch-service/entity"
	"github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/infra/produce"
	"github.com/tnqbao/gau-stitch-service/repository"
)

// StitchConsumer drives the stitching pipeline from the RabbitMQ queue in a
// dedicated consumer process. Prefetch equals the worker count, so the
// broker never hands this process more concurrent jobs than its pool can
// run.
type StitchConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
	processor  *Processor
	workers    int
}

func NewStitchConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository, processor *Processor, workers int) *StitchConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &StitchConsumer{
		channel:    channel,
		infra:      infra,
		repository: repo,
		processor:  processor,
		workers:    workers,
	}
}

func (c *StitchConsumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		produce.StitchJobQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register stitch consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Stitch Consumer] Started %d workers on queue: %s", c.workers, produce.StitchJobQueue)

	for i := 0; i < c.workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					c.infra.Logger.InfoWithContextf(ctx, "[Stitch Consumer] Shutting down...")
					return
				case msg, ok := <-msgs:
					if !ok {
						c.infra.Logger.WarningWithContextf(ctx, "[Stitch Consumer] Channel closed")
						return
					}
					c.handleStitchJob(ctx, msg)
				}
			}
		}()
	}

	return nil
}

// handleStitchJob re-registers the job carried in the message and runs the
// pipeline. The message is acked either way: jobs run exactly once, and a
// failed job is terminal, so redelivery would only repeat a terminal
// outcome.
func (c *StitchConsumer) handleStitchJob(ctx context.Context, msg amqp.Delivery) {
	var payload produce.StitchJobMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Stitch Consumer] Failed to unmarshal stitch job message")
		_ = msg.Nack(false, false)
		return
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Stitch Consumer] Invalid job ID")
		_ = msg.Nack(false, false)
		return
	}

	mode, err := entity.ParseStitchMode(payload.Mode)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Stitch Consumer] Invalid mode in message for job %s", jobID)
		_ = msg.Nack(false, false)
		return
	}

	job := entity.NewJob(jobID, payload.Inputs, mode, payload.Options)
	job.CreatedAt = payload.CreatedAt
	c.repository.JobRepo.Adopt(ctx, job)

	c.processor.Process(ctx, jobID)
	_ = msg.Ack(false)
}
