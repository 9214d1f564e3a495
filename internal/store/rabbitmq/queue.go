package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExportMessage is the payload published for one queued export job. The
// worker re-reads the job row; the message only carries the ID.
type ExportMessage struct {
	JobID string `json:"job_id"`
}

// Queue wraps one durable work queue on a rabbit connection.
type Queue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	name string
}

func Dial(url, queueName string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare %s: %w", queueName, err)
	}
	return &Queue{conn: conn, ch: ch, name: queueName}, nil
}

func (q *Queue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishExport enqueues one export job for the worker.
func (q *Queue) PublishExport(ctx context.Context, jobID string) error {
	body, err := json.Marshal(ExportMessage{JobID: jobID})
	if err != nil {
		return err
	}
	return q.ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers export messages one at a time; the worker acks after the
// job row has been marked terminal.
func (q *Queue) Consume() (<-chan amqp.Delivery, error) {
	if err := q.ch.Qos(1, 0, false); err != nil {
		return nil, err
	}
	return q.ch.Consume(q.name, "", false, false, false, false, nil)
}

// DecodeExport parses a delivery body.
func DecodeExport(body []byte) (ExportMessage, error) {
	var m ExportMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return ExportMessage{}, err
	}
	if m.JobID == "" {
		return ExportMessage{}, fmt.Errorf("rabbitmq: export message missing job_id")
	}
	return m, nil
}
