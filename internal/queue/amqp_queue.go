package queue

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// maxDeliveryRetries caps how often a failed job is redelivered before it is
// dropped.
const maxDeliveryRetries = 3

// AMQPQueue is the RabbitMQ-backed Queue used between the API and the
// delivery worker. Queues are declared durable on first use.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

func NewAMQPQueue(url string, logger zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch, logger: logger}, nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes topic until the channel closes. A failed job is acked
// and republished with an incremented x-retry-count header; a plain requeue
// would carry the old headers and never hit the cap. Past the cap the job is
// dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	msgs, err := q.ch.Consume(
		declared.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var job DeliveryJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				q.logger.Warn().Err(err).Msg("invalid delivery job, dropping")
				d.Ack(false)
				continue
			}

			if err := handler(job); err != nil {
				retries := retryCountFrom(d.Headers)
				if retries < maxDeliveryRetries {
					if pubErr := q.republish(declared.Name, d.Body, retries+1); pubErr != nil {
						q.logger.Error().Str("detail_id", job.DetailID).Err(pubErr).Msg("retry republish failed")
						d.Nack(false, true)
						continue
					}
					d.Ack(false)
					continue
				}
				q.logger.Error().Str("detail_id", job.DetailID).Err(err).Msg("delivery permanently failed")
			}

			d.Ack(false)
		}
	}()

	return nil
}

// republish re-enqueues a failed job with its retry budget spent down. The
// original delivery gets acked by the caller.
func (q *AMQPQueue) republish(queueName string, body []byte, retries int32) error {
	return q.ch.Publish(
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Headers:     amqp.Table{"x-retry-count": retries},
			Body:        body,
		},
	)
}

// retryCountFrom reads the retry header; anything absent or malformed counts
// as a first attempt.
func retryCountFrom(headers amqp.Table) int32 {
	if v, ok := headers["x-retry-count"].(int32); ok {
		return v
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
