package events

import (
	"strconv"
	"time"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

const (
	EventTypeShipmentPurchased = "ShipmentPurchased"
	EventTypeShipmentVoided    = "ShipmentVoided"
	EventTypeShipmentDeleted   = "ShipmentDeleted"

	shipmentPurchasedSchema = "contracts/events/shipment/ShipmentPurchased.v1.payload.schema.json"
	shipmentVoidedSchema    = "contracts/events/shipment/ShipmentVoided.v1.payload.schema.json"
	shipmentDeletedSchema   = "contracts/events/shipment/ShipmentDeleted.v1.payload.schema.json"
)

// kind ties an event name to its routing key and payload schema.
type kind struct {
	name       string
	routingKey string
	schema     string
}

var (
	purchased = kind{EventTypeShipmentPurchased, ShipmentPurchasedRoutingKey, shipmentPurchasedSchema}
	voided    = kind{EventTypeShipmentVoided, ShipmentVoidedRoutingKey, shipmentVoidedSchema}
	deleted   = kind{EventTypeShipmentDeleted, ShipmentDeletedRoutingKey, shipmentDeletedSchema}
)

type ShipmentPayload struct {
	ShipmentID         int64     `json:"shipmentId"`
	UserID             int64     `json:"userId"`
	Status             string    `json:"status"`
	Carrier            string    `json:"carrier"`
	TrackingCode       *string   `json:"trackingCode,omitempty"`
	ExternalShipmentID *string   `json:"externalShipmentId,omitempty"`
	RateAmount         *string   `json:"rateAmount,omitempty"`
	ToZip              string    `json:"toZip"`
	Timestamp          time.Time `json:"timestamp"`
}

func newShipmentPayload(s shipment.Shipment, at time.Time) ShipmentPayload {
	p := ShipmentPayload{
		ShipmentID:         s.ID,
		UserID:             s.UserID,
		Status:             string(s.Status),
		Carrier:            s.Carrier,
		TrackingCode:       s.TrackingCode,
		ExternalShipmentID: s.ExternalID,
		ToZip:              s.To.Zip,
		Timestamp:          at,
	}
	if s.RateAmount.Valid {
		p.RateAmount = postal.String(s.RateAmount.Decimal.StringFixed(2))
	}
	return p
}

// partitionKey orders events per owning user.
func partitionKey(s shipment.Shipment) string {
	return strconv.FormatInt(s.UserID, 10)
}
