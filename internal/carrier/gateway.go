// Package carrier is the boundary to the external carrier-rate API
// (EasyPost-compatible). Only the label purchase returns an error; address
// verification, tracking and refunds degrade to structured results.
package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
)

const refundSubmitted = "submitted"

// Label is the normalized result of a purchased shipment.
type Label struct {
	ShipmentID      string
	TrackingCode    string
	LabelURL        string
	TrackingURL     *string
	PostageLabelURL string
	RateAmount      decimal.Decimal
	Carrier         string
}

type TrackingResult struct {
	Success         bool            `json:"success"`
	Status          string          `json:"status,omitempty"`
	TrackingDetails json.RawMessage `json:"tracking_details,omitempty"`
	EstDeliveryDate *string         `json:"est_delivery_date,omitempty"`
	PublicURL       *string         `json:"public_url,omitempty"`
	Error           string          `json:"error,omitempty"`
}

type Gateway struct {
	c       *Client
	logger  *slog.Logger
	metrics *Metrics
}

func NewGateway(c *Client, logger *slog.Logger, metrics *Metrics) *Gateway {
	return &Gateway{c: c, logger: logger, metrics: metrics}
}

// CreateAndPurchaseShipment quotes the shipment, picks the cheapest USPS rate
// and buys it. Every failure is logged and returned as *PurchaseError.
func (g *Gateway) CreateAndPurchaseShipment(ctx context.Context, from, to postal.Address, parcel postal.Parcel) (Label, error) {
	label, err := g.purchase(ctx, from, to, parcel)
	if err != nil {
		g.metrics.observe("purchase", outcomeFailed)
		g.logger.ErrorContext(ctx, "carrier purchase failed",
			"error", err.Error(),
			"code", errorCode(err),
		)
		return Label{}, &PurchaseError{Err: err}
	}
	g.metrics.observe("purchase", outcomeOK)
	return label, nil
}

func (g *Gateway) purchase(ctx context.Context, from, to postal.Address, parcel postal.Parcel) (Label, error) {
	var quoted wireShipment
	err := g.c.Do(ctx, http.MethodPost, "v2/shipments", map[string]any{
		"shipment": map[string]any{
			"from_address": toWireAddress(from),
			"to_address":   toWireAddress(to),
			"parcel":       parcel.Payload(),
		},
	}, &quoted)
	if err != nil {
		return Label{}, err
	}

	rate, ok := LowestUSPSRate(g.parseRates(ctx, quoted.Rates))
	if !ok {
		return Label{}, ErrNoUSPSRates
	}

	var bought wireShipment
	err = g.c.Do(ctx, http.MethodPost, "v2/shipments/"+url.PathEscape(quoted.ID)+"/buy", map[string]any{
		"rate": map[string]string{"id": rate.ID},
	}, &bought)
	if err != nil {
		return Label{}, err
	}
	if bought.PostageLabel == nil || bought.PostageLabel.LabelURL == "" {
		return Label{}, errors.New("carrier response has no postage label")
	}

	label := Label{
		ShipmentID:      bought.ID,
		TrackingCode:    bought.TrackingCode,
		LabelURL:        bought.PostageLabel.LabelURL,
		PostageLabelURL: bought.PostageLabel.LabelURL,
		RateAmount:      rate.Amount,
		Carrier:         rate.Carrier,
	}
	if label.ShipmentID == "" {
		label.ShipmentID = quoted.ID
	}
	if bought.PostageLabel.LabelPDFURL != "" {
		label.PostageLabelURL = bought.PostageLabel.LabelPDFURL
	}
	if bought.Tracker != nil {
		label.TrackingURL = postal.String(bought.Tracker.PublicURL)
	}
	return label, nil
}

func (g *Gateway) parseRates(ctx context.Context, in []wireRate) []Rate {
	out := make([]Rate, 0, len(in))
	for _, r := range in {
		amount, err := decimal.NewFromString(r.Rate)
		if err != nil {
			g.logger.WarnContext(ctx, "skipping unparseable rate", "rate_id", r.ID, "rate", r.Rate)
			continue
		}
		out = append(out, Rate{ID: r.ID, Carrier: r.Carrier, Service: r.Service, Amount: amount})
	}
	return out
}

// ValidateAddress implements postal.Verifier.
func (g *Gateway) ValidateAddress(ctx context.Context, a postal.Address) postal.VerificationResult {
	var resp struct {
		Address wireAddress `json:"address"`
	}
	err := g.c.Do(ctx, http.MethodPost, "v2/addresses/create_and_verify", map[string]any{
		"address": toWireAddress(a),
	}, &resp)
	if err != nil {
		g.metrics.observe("verify_address", outcomeFailed)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return postal.VerificationResult{Errors: []string{apiErr.Message}}
		}
		g.logger.ErrorContext(ctx, "address validation error", "error", err.Error())
		return postal.VerificationResult{Errors: []string{"Unable to validate address"}}
	}

	g.metrics.observe("verify_address", outcomeOK)
	corrected := resp.Address.toAddress()
	return postal.VerificationResult{
		Success:       true,
		Valid:         true,
		Address:       &corrected,
		Verifications: resp.Address.Verifications,
	}
}

// TrackingInfo looks up a tracker. Failures are reported in the result.
func (g *Gateway) TrackingInfo(ctx context.Context, trackingCode, carrierName string) TrackingResult {
	if carrierName == "" {
		carrierName = CarrierUSPS
	}

	var tr wireTracker
	err := g.c.Do(ctx, http.MethodPost, "v2/trackers", map[string]any{
		"tracker": map[string]string{
			"tracking_code": trackingCode,
			"carrier":       carrierName,
		},
	}, &tr)
	if err != nil {
		g.metrics.observe("tracking", outcomeFailed)
		return TrackingResult{Success: false, Error: errorMessage(err)}
	}

	g.metrics.observe("tracking", outcomeOK)
	details := tr.TrackingDetails
	if len(details) == 0 || string(details) == "null" {
		details = json.RawMessage("[]")
	}
	return TrackingResult{
		Success:         true,
		Status:          tr.Status,
		TrackingDetails: details,
		EstDeliveryDate: tr.EstDeliveryDate,
		PublicURL:       tr.PublicURL,
	}
}

// VoidShipment requests a postage refund. Only a "submitted" refund counts.
func (g *Gateway) VoidShipment(ctx context.Context, externalShipmentID string) bool {
	var refunded wireShipment
	err := g.c.Do(ctx, http.MethodPost, "v2/shipments/"+url.PathEscape(externalShipmentID)+"/refund", nil, &refunded)
	if err != nil {
		g.metrics.observe("void", outcomeFailed)
		g.logger.ErrorContext(ctx, "shipment void error",
			"error", err.Error(),
			"code", errorCode(err),
			"shipment_id", externalShipmentID,
		)
		return false
	}
	if refunded.RefundStatus != refundSubmitted {
		g.metrics.observe("void", outcomeRejected)
		return false
	}
	g.metrics.observe("void", outcomeOK)
	return true
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
