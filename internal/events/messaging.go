package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange              = "shipments.events"
	ShipmentPurchasedRoutingKey = "shipment.purchased.v1"
	ShipmentVoidedRoutingKey    = "shipment.voided.v1"
	ShipmentDeletedRoutingKey   = "shipment.deleted.v1"
	defaultProducer             = "shipment-service"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
