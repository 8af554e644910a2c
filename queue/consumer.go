package queue

import (
	"context"
	"encoding/json"
	"log"

	"go.mongodb.org/mongo-driver/mongo"

	"bankapi/ledger"
)

// AuditConsumer drains the event queue into a MongoDB audit collection,
// giving an immutable raw feed of every committed ledger operation
// alongside the queryable transaction log.
type AuditConsumer struct {
	rabbitMQ *RabbitMQ
	archive  *mongo.Collection
}

func NewAuditConsumer(rabbitMQ *RabbitMQ, archive *mongo.Collection) *AuditConsumer {
	return &AuditConsumer{
		rabbitMQ: rabbitMQ,
		archive:  archive,
	}
}

// Start consumes events until the channel closes. Malformed messages are
// dropped; archive failures requeue the delivery for a later retry.
func (c *AuditConsumer) Start() error {
	msgs, err := c.rabbitMQ.channel.Consume(
		EventQueue, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return err
	}

	log.Printf(" [*] Waiting for ledger events")
	for d := range msgs {
		event, err := decodeEvent(d.Body)
		if err != nil {
			log.Printf("Error unmarshaling event: %v", err)
			d.Nack(false, false) // drop, a bad payload never gets better
			continue
		}

		if _, err := c.archive.InsertOne(context.TODO(), event); err != nil {
			log.Printf("Error archiving event %s: %v", event.TransactionID, err)
			d.Nack(false, true) // reject and requeue
			continue
		}

		d.Ack(false)
	}
	return nil
}

func decodeEvent(body []byte) (ledger.Event, error) {
	var event ledger.Event
	err := json.Unmarshal(body, &event)
	return event, err
}
