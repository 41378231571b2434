package shipment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
)

// Shipment is the persisted record. Behaviour lives in status.go and in the
// Service, not on the record.
type Shipment struct {
	ID           int64
	UserID       int64
	TrackingCode *string
	Carrier      string
	ExternalID   *string
	Status       Status

	From   postal.Address
	To     postal.Address
	Parcel postal.Parcel

	LabelURL        *string
	TrackingURL     *string
	PostageLabelURL *string
	RateAmount      decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Changes lists the mutable columns. Nil fields are left untouched.
type Changes struct {
	Status      *Status
	TrackingURL *string
}

func (c Changes) empty() bool {
	return c.Status == nil && c.TrackingURL == nil
}

// Page is one page of a user's shipments, newest first.
type Page struct {
	Items   []Shipment
	Total   int
	Page    int
	PerPage int
}

func (p Page) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
