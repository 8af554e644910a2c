// Package queue publishes committed ledger events to RabbitMQ and archives
// them into an audit collection. Delivery is best-effort; the transaction
// log remains the source of truth.
package queue

import (
	"encoding/json"

	"github.com/streadway/amqp"

	"bankapi/ledger"
)

const EventQueue = "ledger_events"

// RabbitMQ wraps a connection and channel with the event queue declared.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ dials the broker and declares the durable event queue.
func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		EventQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
	}, nil
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// PublishEvent publishes a committed ledger event to the queue.
func (r *RabbitMQ) PublishEvent(event ledger.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.channel.Publish(
		"",         // exchange
		EventQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
}
