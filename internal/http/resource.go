package httpapi

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

type addressResource struct {
	Name      string  `json:"name"`
	Street1   string  `json:"street1"`
	Street2   *string `json:"street2"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Zip       string  `json:"zip"`
	Country   string  `json:"country"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Formatted string  `json:"formatted"`
}

type packageResource struct {
	Weight string  `json:"weight"`
	Length *string `json:"length"`
	Width  *string `json:"width"`
	Height *string `json:"height"`
}

type labelResource struct {
	URL             *string `json:"url"`
	TrackingURL     *string `json:"tracking_url"`
	PostageLabelURL *string `json:"postage_label_url"`
}

type shipmentResource struct {
	ID           int64           `json:"id"`
	TrackingCode *string         `json:"tracking_code"`
	Carrier      string          `json:"carrier"`
	Status       string          `json:"status"`
	FromAddress  addressResource `json:"from_address"`
	ToAddress    addressResource `json:"to_address"`
	Package      packageResource `json:"package"`
	Label        labelResource   `json:"label"`
	RateAmount   *string         `json:"rate_amount"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	IsPurchased  bool            `json:"is_purchased"`
	IsVoided     bool            `json:"is_voided"`
}

func newShipmentResource(s shipment.Shipment) shipmentResource {
	return shipmentResource{
		ID:           s.ID,
		TrackingCode: s.TrackingCode,
		Carrier:      s.Carrier,
		Status:       string(s.Status),
		FromAddress:  newAddressResource(s.From),
		ToAddress:    newAddressResource(s.To),
		Package: packageResource{
			Weight: s.Parcel.Weight.StringFixed(2),
			Length: fixed(s.Parcel.Length),
			Width:  fixed(s.Parcel.Width),
			Height: fixed(s.Parcel.Height),
		},
		Label: labelResource{
			URL:             s.LabelURL,
			TrackingURL:     s.TrackingURL,
			PostageLabelURL: s.PostageLabelURL,
		},
		RateAmount:  fixed(s.RateAmount),
		CreatedAt:   timestamp(s.CreatedAt),
		UpdatedAt:   timestamp(s.UpdatedAt),
		IsPurchased: shipment.IsPurchased(s),
		IsVoided:    shipment.IsVoided(s),
	}
}

func newShipmentResources(items []shipment.Shipment) []shipmentResource {
	out := make([]shipmentResource, 0, len(items))
	for _, s := range items {
		out = append(out, newShipmentResource(s))
	}
	return out
}

func newAddressResource(a postal.Address) addressResource {
	return addressResource{
		Name:      a.Name,
		Street1:   a.Street1,
		Street2:   a.Street2,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		Country:   a.Country,
		Phone:     a.Phone,
		Email:     a.Email,
		Formatted: postal.Format(a),
	}
}

func fixed(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type paginationLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type paginationMeta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	LastPage    int    `json:"last_page"`
	Path        string `json:"path"`
	PerPage     int    `json:"per_page"`
	To          *int   `json:"to"`
	Total       int    `json:"total"`
}

type shipmentCollection struct {
	Data  []shipmentResource `json:"data"`
	Links paginationLinks    `json:"links"`
	Meta  paginationMeta     `json:"meta"`
}

// newShipmentCollection renders a page with page links that keep the
// caller's other query parameters.
func newShipmentCollection(p shipment.Page, u *url.URL) shipmentCollection {
	last := p.LastPage()
	link := func(page int) string {
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		return u.Path + "?" + q.Encode()
	}

	links := paginationLinks{First: link(1), Last: link(last)}
	if p.Page > 1 {
		prev := link(p.Page - 1)
		links.Prev = &prev
	}
	if p.Page < last {
		next := link(p.Page + 1)
		links.Next = &next
	}

	meta := paginationMeta{
		CurrentPage: p.Page,
		LastPage:    last,
		Path:        u.Path,
		PerPage:     p.PerPage,
		Total:       p.Total,
	}
	if len(p.Items) > 0 {
		from := (p.Page-1)*p.PerPage + 1
		to := from + len(p.Items) - 1
		meta.From, meta.To = &from, &to
	}

	return shipmentCollection{
		Data:  newShipmentResources(p.Items),
		Links: links,
		Meta:  meta,
	}
}
