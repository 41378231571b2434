package carrier

import (
	"encoding/json"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
)

type wireAddress struct {
	Name          string          `json:"name,omitempty"`
	Street1       string          `json:"street1"`
	Street2       string          `json:"street2,omitempty"`
	City          string          `json:"city"`
	State         string          `json:"state"`
	Zip           string          `json:"zip"`
	Country       string          `json:"country"`
	Phone         string          `json:"phone,omitempty"`
	Email         string          `json:"email,omitempty"`
	Verifications json.RawMessage `json:"verifications,omitempty"`
}

type wireRate struct {
	ID       string `json:"id"`
	Carrier  string `json:"carrier"`
	Service  string `json:"service"`
	Rate     string `json:"rate"`
	Currency string `json:"currency,omitempty"`
}

type wirePostageLabel struct {
	LabelURL    string `json:"label_url"`
	LabelPDFURL string `json:"label_pdf_url"`
}

type wireTrackerRef struct {
	PublicURL string `json:"public_url"`
}

type wireShipment struct {
	ID           string            `json:"id"`
	TrackingCode string            `json:"tracking_code"`
	Rates        []wireRate        `json:"rates"`
	PostageLabel *wirePostageLabel `json:"postage_label"`
	Tracker      *wireTrackerRef   `json:"tracker"`
	RefundStatus string            `json:"refund_status"`
}

type wireTracker struct {
	Status          string          `json:"status"`
	TrackingDetails json.RawMessage `json:"tracking_details"`
	EstDeliveryDate *string         `json:"est_delivery_date"`
	PublicURL       *string         `json:"public_url"`
}

func toWireAddress(a postal.Address) wireAddress {
	country := a.Country
	if country == "" {
		country = postal.CountryUS
	}
	return wireAddress{
		Name:    a.Name,
		Street1: a.Street1,
		Street2: postal.Value(a.Street2),
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: country,
		Phone:   postal.Value(a.Phone),
		Email:   postal.Value(a.Email),
	}
}

func (w wireAddress) toAddress() postal.Address {
	return postal.Address{
		Name:    w.Name,
		Street1: w.Street1,
		Street2: postal.String(w.Street2),
		City:    w.City,
		State:   w.State,
		Zip:     w.Zip,
		Country: w.Country,
		Phone:   postal.String(w.Phone),
		Email:   postal.String(w.Email),
	}
}
