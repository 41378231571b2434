package shipment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/shipment-service-go/internal/carrier"
	"github.com/andreasstove999/shipment-service-go/internal/postal"
)

// Gateway is the slice of carrier.Gateway the service drives.
type Gateway interface {
	CreateAndPurchaseShipment(ctx context.Context, from, to postal.Address, parcel postal.Parcel) (carrier.Label, error)
	VoidShipment(ctx context.Context, externalShipmentID string) bool
	TrackingInfo(ctx context.Context, trackingCode, carrierName string) carrier.TrackingResult
}

// Publisher announces lifecycle changes. Publishing is best-effort.
type Publisher interface {
	ShipmentPurchased(ctx context.Context, s Shipment) error
	ShipmentVoided(ctx context.Context, s Shipment) error
	ShipmentDeleted(ctx context.Context, s Shipment) error
}

type CreateInput struct {
	From   postal.Address
	To     postal.Address
	Parcel postal.Parcel
}

// Service orchestrates the shipment use cases on top of the Store and the
// carrier Gateway.
type Service struct {
	store     Store
	gateway   Gateway
	publisher Publisher
	logger    *slog.Logger
}

func NewService(store Store, gateway Gateway, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = discard{}
	}
	return &Service{store: store, gateway: gateway, publisher: publisher, logger: logger}
}

// Create buys a label and records the purchased shipment. Nothing is written
// when the purchase fails.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (Shipment, error) {
	from := postal.Normalize(in.From)
	to := postal.Normalize(in.To)

	label, err := s.gateway.CreateAndPurchaseShipment(ctx, from, to, in.Parcel)
	if err != nil {
		return Shipment{}, err
	}

	carrierName := label.Carrier
	if carrierName == "" {
		carrierName = carrier.CarrierUSPS
	}

	created, err := s.store.Create(ctx, Shipment{
		UserID:          userID,
		TrackingCode:    postal.String(label.TrackingCode),
		Carrier:         carrierName,
		ExternalID:      postal.String(label.ShipmentID),
		Status:          StatusPurchased,
		From:            from,
		To:              to,
		Parcel:          in.Parcel,
		LabelURL:        postal.String(label.LabelURL),
		TrackingURL:     label.TrackingURL,
		PostageLabelURL: postal.String(label.PostageLabelURL),
		RateAmount:      decimal.NewNullDecimal(label.RateAmount),
	})
	if err != nil {
		// The label is already paid for at this point.
		s.logger.ErrorContext(ctx, "purchased shipment not persisted",
			"error", err.Error(),
			"user_id", userID,
			"external_id", label.ShipmentID,
			"tracking_code", label.TrackingCode,
		)
		return Shipment{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.logger.InfoContext(ctx, "shipment purchased",
		"shipment_id", created.ID,
		"user_id", userID,
		"rate", label.RateAmount.StringFixed(2),
	)
	s.publish(ctx, "purchased", created, s.publisher.ShipmentPurchased)
	return created, nil
}

// Get is the API lookup: a shipment owned by someone else is not found.
func (s *Service) Get(ctx context.Context, userID, id int64) (Shipment, error) {
	return s.store.FindByUserAndID(ctx, userID, id)
}

// Lookup is the browser lookup, which tells a foreign shipment apart from a
// missing one.
func (s *Service) Lookup(ctx context.Context, userID, id int64) (Shipment, error) {
	sh, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Shipment{}, err
	}
	if sh.UserID != userID {
		return Shipment{}, ErrForbidden
	}
	return sh, nil
}

func (s *Service) List(ctx context.Context, userID int64, page, perPage int) (Page, error) {
	return s.store.ListByUser(ctx, userID, page, perPage)
}

func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]Shipment, error) {
	return s.store.ListRecentByUser(ctx, userID, limit)
}

func (s *Service) ByStatus(ctx context.Context, userID int64, status Status) ([]Shipment, error) {
	return s.store.ListByUserAndStatus(ctx, userID, status)
}

// Delete soft-deletes a shipment the caller owns. Callers that need the
// browser 403/404 split run Lookup first.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	sh, err := s.store.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return err
	}

	ok, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "shipment deleted", "shipment_id", id, "user_id", userID)
	s.publish(ctx, "deleted", sh, s.publisher.ShipmentDeleted)
	return nil
}

// Update applies a requested status change. Only voiding is accepted, and only
// once the carrier has accepted the refund.
func (s *Service) Update(ctx context.Context, userID, id int64, requested Status) (Shipment, error) {
	if requested != StatusVoided {
		return Shipment{}, ErrStatusNotAllowed
	}

	sh, err := s.store.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return Shipment{}, err
	}
	if !CanTransition(sh.Status, requested) {
		return Shipment{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, sh.Status, requested)
	}
	if sh.ExternalID == nil || !s.gateway.VoidShipment(ctx, *sh.ExternalID) {
		return Shipment{}, ErrVoidRejected
	}

	ok, err := s.store.Update(ctx, id, Changes{Status: &requested})
	if err != nil {
		return Shipment{}, err
	}
	if !ok {
		return Shipment{}, ErrNotFound
	}

	updated, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Shipment{}, err
	}

	s.logger.InfoContext(ctx, "shipment voided", "shipment_id", id, "user_id", userID)
	s.publish(ctx, "voided", updated, s.publisher.ShipmentVoided)
	return updated, nil
}

// Track returns the carrier's advisory tracking state for an owned shipment.
func (s *Service) Track(ctx context.Context, userID, id int64) (carrier.TrackingResult, error) {
	sh, err := s.store.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return carrier.TrackingResult{}, err
	}
	if sh.TrackingCode == nil {
		return carrier.TrackingResult{Success: false, Error: "shipment has no tracking code"}, nil
	}
	return s.gateway.TrackingInfo(ctx, *sh.TrackingCode, sh.Carrier), nil
}

func (s *Service) publish(ctx context.Context, event string, sh Shipment, fn func(context.Context, Shipment) error) {
	if err := fn(ctx, sh); err != nil {
		s.logger.WarnContext(ctx, "publish shipment event failed",
			"event", event,
			"shipment_id", sh.ID,
			"error", err.Error(),
		)
	}
}

// IsPurchaseFailure reports whether err came from the carrier purchase step.
func IsPurchaseFailure(err error) bool {
	var pe *carrier.PurchaseError
	return errors.As(err, &pe)
}

type discard struct{}

func (discard) ShipmentPurchased(context.Context, Shipment) error { return nil }
func (discard) ShipmentVoided(context.Context, Shipment) error    { return nil }
func (discard) ShipmentDeleted(context.Context, Shipment) error   { return nil }
