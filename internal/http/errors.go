package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

const (
	msgCreateFailed = "Failed to create shipment"
	msgNotSaved     = "The label was purchased but the shipment could not be saved. Please contact support."
	msgTryAgain     = "Failed to create shipment. Please try again."
)

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, errs ValidationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Message: "The given data was invalid.",
		Errors:  errs,
	})
}

// writeServiceError maps service errors onto the JSON API statuses.
// notFound is the 404 message for the current action.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFound string) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeValidation(w, verrs)
	case errors.Is(err, shipment.ErrNotFound), errors.Is(err, shipment.ErrForbidden):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: notFound})
	case errors.Is(err, shipment.ErrStatusNotAllowed):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message: msgOnlyVoiding,
			Errors:  map[string][]string{"status": {msgOnlyVoiding}},
		})
	case errors.Is(err, shipment.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Shipment cannot be voided in its current status."})
	case errors.Is(err, shipment.ErrVoidRejected):
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "The carrier did not accept the refund request."})
	case shipment.IsPurchaseFailure(err):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: msgCreateFailed,
			Error:   err.Error(),
		})
	case errors.Is(err, shipment.ErrPersistFailed):
		// The service already logged the database error with the label ids.
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: msgCreateFailed,
			Error:   msgNotSaved,
		})
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server Error"})
	}
}
