package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/shipment-service-go/internal/auth"
	"github.com/andreasstove999/shipment-service-go/internal/carrier"
	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

const (
	maxPerPage   = 100
	maxBodyBytes = 1 << 20

	msgNotFoundView   = "Shipment not found or you do not have permission to view it."
	msgNotFoundUpdate = "Shipment not found or you do not have permission to update it."
	msgNotFoundDelete = "Shipment not found or you do not have permission to delete it."
)

// ShipmentService is what the handlers need from shipment.Service.
type ShipmentService interface {
	Create(ctx context.Context, userID int64, in shipment.CreateInput) (shipment.Shipment, error)
	Get(ctx context.Context, userID, id int64) (shipment.Shipment, error)
	Lookup(ctx context.Context, userID, id int64) (shipment.Shipment, error)
	List(ctx context.Context, userID int64, page, perPage int) (shipment.Page, error)
	Recent(ctx context.Context, userID int64, limit int) ([]shipment.Shipment, error)
	ByStatus(ctx context.Context, userID int64, status shipment.Status) ([]shipment.Shipment, error)
	Delete(ctx context.Context, userID, id int64) error
	Update(ctx context.Context, userID, id int64, requested shipment.Status) (shipment.Shipment, error)
	Track(ctx context.Context, userID, id int64) (carrier.TrackingResult, error)
}

// AddressValidator runs local address rules and carrier verification.
type AddressValidator interface {
	Validate(ctx context.Context, a postal.Address) postal.VerificationResult
}

type APIHandler struct {
	svc            ShipmentService
	validator      AddressValidator
	logger         *slog.Logger
	defaultPerPage int
}

func NewAPIHandler(svc ShipmentService, validator AddressValidator, logger *slog.Logger, defaultPerPage int) *APIHandler {
	if defaultPerPage < 1 {
		defaultPerPage = 15
	}
	return &APIHandler{svc: svc, validator: validator, logger: logger, defaultPerPage: defaultPerPage}
}

func (h *APIHandler) Index(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", h.defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	p, err := h.svc.List(r.Context(), userID, page, perPage)
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundView)
		return
	}
	writeJSON(w, http.StatusOK, newShipmentCollection(p, r.URL))
}

func (h *APIHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Malformed JSON body.", Error: err.Error()})
		return
	}
	in, err := req.validate()
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundView)
		return
	}

	created, err := h.svc.Create(r.Context(), mustUserID(r), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundView)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"data":    newShipmentResource(created),
		"message": "Shipment created successfully",
	})
}

func (h *APIHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: msgNotFoundView})
		return
	}
	s, err := h.svc.Get(r.Context(), mustUserID(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundView)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": newShipmentResource(s)})
}

// Update accepts {"status":"voided"} only. A body without status changes
// nothing and returns the shipment as is.
func (h *APIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: msgNotFoundUpdate})
		return
	}
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Malformed JSON body.", Error: err.Error()})
		return
	}

	userID := mustUserID(r)
	if req.Status == nil {
		s, err := h.svc.Get(r.Context(), userID, id)
		if err != nil {
			writeServiceError(w, r, h.logger, err, msgNotFoundUpdate)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": newShipmentResource(s)})
		return
	}

	s, err := h.svc.Update(r.Context(), userID, id, shipment.Status(*req.Status))
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundUpdate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":    newShipmentResource(s),
		"message": "Shipment voided successfully",
	})
}

func (h *APIHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: msgNotFoundDelete})
		return
	}
	if err := h.svc.Delete(r.Context(), mustUserID(r), id); err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundDelete)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Shipment deleted successfully"})
}

// Tracking answers 200 even when the carrier lookup failed; the body says so.
func (h *APIHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: msgNotFoundView})
		return
	}
	res, err := h.svc.Track(r.Context(), mustUserID(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, msgNotFoundView)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) ValidateAddress(w http.ResponseWriter, r *http.Request) {
	var a postal.Address
	if err := decodeJSON(r, &a); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Malformed JSON body.", Error: err.Error()})
		return
	}
	if res, ok := postal.CheckLocal(a); !ok {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, h.validator.Validate(r.Context(), a))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func shipmentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// mustUserID is only called behind an auth middleware.
func mustUserID(r *http.Request) int64 {
	id, ok := auth.UserID(r.Context())
	if !ok {
		panic("httpapi: handler mounted without authentication")
	}
	return id
}
