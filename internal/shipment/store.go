package shipment

import (
	"context"
	"errors"
	"math"
)

var (
	ErrNotFound          = errors.New("shipment not found")
	ErrForbidden         = errors.New("shipment belongs to another user")
	ErrStatusNotAllowed  = errors.New("only voiding shipments is allowed")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrVoidRejected      = errors.New("carrier did not accept the refund request")
	ErrPersistFailed     = errors.New("purchased shipment could not be saved")
)

// Store persists shipments. Every lookup skips soft-deleted rows unless its
// name says otherwise.
type Store interface {
	ListByUser(ctx context.Context, userID int64, page, perPage int) (Page, error)
	ListAllByUser(ctx context.Context, userID int64) ([]Shipment, error)
	FindByID(ctx context.Context, id int64) (Shipment, error)
	FindByIDWithDeleted(ctx context.Context, id int64) (Shipment, error)
	FindByUserAndID(ctx context.Context, userID, id int64) (Shipment, error)
	Create(ctx context.Context, s Shipment) (Shipment, error)
	Update(ctx context.Context, id int64, c Changes) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	ListByUserAndStatus(ctx context.Context, userID int64, status Status) ([]Shipment, error)
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]Shipment, error)
}

// normalizePage applies defaults and caps page so (page-1)*perPage cannot
// overflow.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 15
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}
