package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tnqbao/gau-stitch-service/entity"
)

const (
	StitchJobQueue      = "stitch.jobs"
	StitchExchange      = "stitch.exchange"
	StitchJobRoutingKey = "stitch.jobs"
)

// StitchJobMessage carries the full job record so a consumer process can
// re-register the job in its own registry before running the pipeline.
type StitchJobMessage struct {
	JobID     string               `json:"job_id"`
	Inputs    []string             `json:"inputs"`
	Mode      string               `json:"mode"`
	Options   entity.StitchOptions `json:"options"`
	CreatedAt time.Time            `json:"created_at"`
	Timestamp int64                `json:"timestamp"`
}

// StitchProduceService publishes accepted jobs to the stitch queue.
type StitchProduceService struct {
	channel *amqp.Channel
}

func InitStitchProduceService(channel *amqp.Channel) *StitchProduceService {
	service := &StitchProduceService{
		channel: channel,
	}

	err := channel.ExchangeDeclare(
		StitchExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Stitch exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		StitchJobQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Stitch job queue: " + err.Error())
	}

	err = channel.QueueBind(
		StitchJobQueue,
		StitchJobRoutingKey,
		StitchExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Stitch job queue: " + err.Error())
	}

	return service
}

// PublishStitchJob publishes a stitch job message to the queue.
func (s *StitchProduceService) PublishStitchJob(ctx context.Context, msg StitchJobMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		StitchExchange,
		StitchJobRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Dispatch satisfies the controller's dispatcher contract by publishing the
// job for a consumer process to pick up.
func (s *StitchProduceService) Dispatch(ctx context.Context, job *entity.Job) error {
	return s.PublishStitchJob(ctx, StitchJobMessage{
		JobID:     job.ID.String(),
		Inputs:    job.Inputs,
		Mode:      string(job.Mode),
		Options:   job.Options,
		CreatedAt: job.CreatedAt,
	})
}
