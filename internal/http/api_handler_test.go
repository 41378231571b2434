package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/shipment-service-go/internal/carrier"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

func TestAPI_RequiresBearerToken(t *testing.T) {
	h := newHarness(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/shipments"},
		{http.MethodPost, "/api/shipments"},
		{http.MethodGet, "/api/shipments/1"},
		{http.MethodPatch, "/api/shipments/1"},
		{http.MethodDelete, "/api/shipments/1"},
		{http.MethodGet, "/api/shipments/1/tracking"},
		{http.MethodPost, "/api/addresses/validate"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := h.api(tc.method, tc.path, 0, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthenticated.", decode(t, rec)["message"])
		})
	}
}

func TestAPI_StoreCreatesPurchasedShipment(t *testing.T) {
	h := newHarness(t)

	rec := h.api(http.MethodPost, "/api/shipments", 42, validPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Shipment created successfully", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "purchased", data["status"])
	assert.Equal(t, "USPS", data["carrier"])
	assert.Equal(t, "7.33", data["rate_amount"])
	assert.Equal(t, true, data["is_purchased"])
	assert.Equal(t, false, data["is_voided"])
	assert.Equal(t, "9400100000000000000001", data["tracking_code"])

	pkg := data["package"].(map[string]any)
	assert.Equal(t, "16.00", pkg["weight"])
	assert.Equal(t, "10.00", pkg["length"])
	assert.Equal(t, "8.50", pkg["width"])
	assert.Nil(t, pkg["height"])

	to := data["to_address"].(map[string]any)
	assert.Equal(t, "US", to["country"])
	assert.Equal(t, "Apt 2", to["street2"])
	assert.Equal(t, "179 N Harbor Dr\nApt 2\nRedondo Beach, CA 90277", to["formatted"])

	from := data["from_address"].(map[string]any)
	assert.Nil(t, from["street2"])

	label := data["label"].(map[string]any)
	assert.Equal(t, "https://labels.example/label.pdf", label["postage_label_url"])

	all, err := h.store.ListAllByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, shipment.StatusPurchased, all[0].Status)
}

func TestAPI_StoreValidation(t *testing.T) {
	h := newHarness(t)

	payload := validPayload()
	payload["from_state"] = "California"
	payload["to_zip"] = "9027"
	payload["to_country"] = "CA"
	payload["weight"] = 200
	delete(payload, "from_name")

	rec := h.api(http.MethodPost, "/api/shipments", 42, payload)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "The given data was invalid.", body["message"])
	errs := body["errors"].(map[string]any)
	assert.Equal(t, []any{"The from name field is required."}, errs["from_name"])
	assert.Equal(t, []any{"The from state must be a valid 2-letter US state code (e.g., CA, NY)."}, errs["from_state"])
	assert.Equal(t, []any{"The to ZIP code must be in the format 12345 or 12345-6789."}, errs["to_zip"])
	assert.Equal(t, []any{"Only US addresses are supported for the to address."}, errs["to_country"])
	assert.Equal(t, []any{"Package weight cannot exceed 150 ounces."}, errs["weight"])

	assert.Zero(t, h.gateway.purchases, "invalid requests never reach the carrier")
}

func TestAPI_StoreMalformedJSON(t *testing.T) {
	h := newHarness(t)
	rec := h.api(http.MethodPost, "/api/shipments", 42, `{"from_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_StorePurchaseFailure(t *testing.T) {
	h := newHarness(t)
	h.gateway.purchaseErr = &carrier.PurchaseError{Err: carrier.ErrNoUSPSRates}

	rec := h.api(http.MethodPost, "/api/shipments", 42, validPayload())
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Failed to create shipment", body["message"])
	assert.Equal(t, "failed to create shipment: no USPS rates available", body["error"])

	all, err := h.store.ListAllByUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAPI_StorePersistFailureHidesDatabaseError(t *testing.T) {
	h := newFailingInsertHarness(t)

	rec := h.api(http.MethodPost, "/api/shipments", 42, validPayload())
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	body := decode(t, rec)
	assert.Equal(t, "Failed to create shipment", body["message"])
	assert.Equal(t, msgNotSaved, body["error"])
}

func TestAPI_IndexPaginates(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 25; i++ {
		h.seed(42)
	}
	h.seed(7)

	rec := h.api(http.MethodGet, "/api/shipments?page=3&per_page=10", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body["data"], 5)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(25), meta["total"])
	assert.Equal(t, float64(3), meta["last_page"])
	assert.Equal(t, float64(3), meta["current_page"])
	assert.Equal(t, float64(10), meta["per_page"])
	assert.Equal(t, float64(21), meta["from"])
	assert.Equal(t, float64(25), meta["to"])
	assert.Equal(t, "/api/shipments", meta["path"])

	links := body["links"].(map[string]any)
	assert.Equal(t, "/api/shipments?page=1&per_page=10", links["first"])
	assert.Equal(t, "/api/shipments?page=2&per_page=10", links["prev"])
	assert.Nil(t, links["next"])
}

func TestAPI_IndexDefaultsAndCap(t *testing.T) {
	h := newHarness(t)

	rec := h.api(http.MethodGet, "/api/shipments", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["data"])
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(15), meta["per_page"])
	assert.Nil(t, meta["from"])

	rec = h.api(http.MethodGet, "/api/shipments?per_page=500", 42, nil)
	meta = decode(t, rec)["meta"].(map[string]any)
	assert.Equal(t, float64(maxPerPage), meta["per_page"])
}

func TestAPI_IndexHugePageIsEmpty(t *testing.T) {
	h := newHarness(t)
	h.seed(42)

	rec := h.api(http.MethodGet, "/api/shipments?page=1000000000000000000&per_page=10", 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
}

func TestAPI_ShowHidesOtherUsersShipments(t *testing.T) {
	h := newHarness(t)
	sh := h.seed(42)
	path := fmt.Sprintf("/api/shipments/%d", sh.ID)

	rec := h.api(http.MethodGet, path, 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(sh.ID), decode(t, rec)["data"].(map[string]any)["id"])

	rec = h.api(http.MethodGet, path, 7, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNotFoundView, decode(t, rec)["message"])

	rec = h.api(http.MethodGet, "/api/shipments/abc", 42, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Update(t *testing.T) {
	void := map[string]any{"status": "voided"}

	t.Run("voids a purchased shipment", func(t *testing.T) {
		h := newHarness(t)
		path := fmt.Sprintf("/api/shipments/%d", h.seed(42).ID)

		rec := h.api(http.MethodPatch, path, 42, void)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "Shipment voided successfully", body["message"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "voided", data["status"])
		assert.Equal(t, true, data["is_voided"])

		rec = h.api(http.MethodPatch, path, 42, void)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects other statuses", func(t *testing.T) {
		h := newHarness(t)
		path := fmt.Sprintf("/api/shipments/%d", h.seed(42).ID)

		rec := h.api(http.MethodPatch, path, 42, map[string]any{"status": "created"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decode(t, rec)["errors"].(map[string]any)
		assert.Equal(t, []any{msgOnlyVoiding}, errs["status"])
	})

	t.Run("carrier refuses refund", func(t *testing.T) {
		h := newHarness(t)
		h.gateway.voidOK = false
		sh := h.seed(42)

		rec := h.api(http.MethodPatch, fmt.Sprintf("/api/shipments/%d", sh.ID), 42, void)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		got, err := h.store.FindByID(context.Background(), sh.ID)
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusPurchased, got.Status)
	})

	t.Run("empty body changes nothing", func(t *testing.T) {
		h := newHarness(t)
		path := fmt.Sprintf("/api/shipments/%d", h.seed(42).ID)

		rec := h.api(http.MethodPatch, path, 42, map[string]any{})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "purchased", decode(t, rec)["data"].(map[string]any)["status"])
	})

	t.Run("foreign shipment", func(t *testing.T) {
		h := newHarness(t)
		path := fmt.Sprintf("/api/shipments/%d", h.seed(42).ID)

		rec := h.api(http.MethodPatch, path, 7, void)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, msgNotFoundUpdate, decode(t, rec)["message"])
	})
}

func TestAPI_Destroy(t *testing.T) {
	h := newHarness(t)
	sh := h.seed(42)
	path := fmt.Sprintf("/api/shipments/%d", sh.ID)

	rec := h.api(http.MethodDelete, path, 7, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNotFoundDelete, decode(t, rec)["message"])

	rec = h.api(http.MethodDelete, path, 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Shipment deleted successfully", decode(t, rec)["message"])

	rec = h.api(http.MethodGet, path, 42, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.api(http.MethodDelete, path, 42, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	kept, err := h.store.FindByIDWithDeleted(context.Background(), sh.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.DeletedAt)
}

func TestAPI_Tracking(t *testing.T) {
	h := newHarness(t)
	sh := h.seed(42)
	path := fmt.Sprintf("/api/shipments/%d/tracking", sh.ID)

	rec := h.api(http.MethodGet, path, 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "in_transit", body["status"])

	h.gateway.tracking = carrier.TrackingResult{Success: false, Error: "tracker not found"}
	rec = h.api(http.MethodGet, path, 42, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = h.api(http.MethodGet, path, 7, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ValidateAddress(t *testing.T) {
	h := newHarness(t)

	rec := h.api(http.MethodPost, "/api/addresses/validate", 42, map[string]any{
		"street1": "417 Montgomery St",
		"city":    "San Francisco",
		"state":   "California",
		"zip":     "94104",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, []any{"State must be a 2-letter code (e.g., CA, NY)"}, body["errors"])

	rec = h.api(http.MethodPost, "/api/addresses/validate", 42, map[string]any{
		"street1": "417 Montgomery St",
		"city":    "San Francisco",
		"state":   "CA",
		"zip":     "94104",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "US", body["address"].(map[string]any)["country"])
}
