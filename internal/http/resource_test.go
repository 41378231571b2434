package httpapi

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

func TestNewShipmentResource(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("PST", -8*3600))
	s := shipment.Shipment{
		ID:      9,
		Carrier: "USPS",
		Status:  shipment.StatusVoided,
		To:      postal.Address{Name: "Jane", Street1: "179 N Harbor Dr", City: "Redondo Beach", State: "CA", Zip: "90277", Country: "US"},
		Parcel: postal.Parcel{
			Weight: decimal.RequireFromString("16"),
			Height: decimal.NewNullDecimal(decimal.RequireFromString("4.5")),
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	r := newShipmentResource(s)
	assert.Equal(t, "voided", r.Status)
	assert.True(t, r.IsVoided)
	assert.False(t, r.IsPurchased)
	assert.Nil(t, r.RateAmount)
	assert.Nil(t, r.TrackingCode)
	assert.Equal(t, "16.00", r.Package.Weight)
	assert.Nil(t, r.Package.Length)
	if assert.NotNil(t, r.Package.Height) {
		assert.Equal(t, "4.50", *r.Package.Height)
	}
	assert.Equal(t, "179 N Harbor Dr\nRedondo Beach, CA 90277", r.ToAddress.Formatted)
	assert.Equal(t, "2024-03-01T20:00:00Z", r.CreatedAt)
}

func TestNewShipmentCollectionSinglePage(t *testing.T) {
	u, _ := url.Parse("/api/shipments?status=voided")
	c := newShipmentCollection(shipment.Page{Items: []shipment.Shipment{{ID: 1}}, Total: 1, Page: 1, PerPage: 15}, u)

	assert.Equal(t, "/api/shipments?page=1&status=voided", c.Links.First)
	assert.Equal(t, c.Links.First, c.Links.Last)
	assert.Nil(t, c.Links.Prev)
	assert.Nil(t, c.Links.Next)
	if assert.NotNil(t, c.Meta.From) && assert.NotNil(t, c.Meta.To) {
		assert.Equal(t, 1, *c.Meta.From)
		assert.Equal(t, 1, *c.Meta.To)
	}
}
