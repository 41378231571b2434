package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/shipment-service-go/internal/auth"
	"github.com/andreasstove999/shipment-service-go/internal/carrier"
	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

type stubGateway struct {
	purchaseErr error
	voidOK      bool
	tracking    carrier.TrackingResult
	purchases   int
}

func (g *stubGateway) CreateAndPurchaseShipment(ctx context.Context, from, to postal.Address, parcel postal.Parcel) (carrier.Label, error) {
	if g.purchaseErr != nil {
		return carrier.Label{}, g.purchaseErr
	}
	g.purchases++
	tracking := fmt.Sprintf("94001000000000000000%02d", g.purchases)
	return carrier.Label{
		ShipmentID:      fmt.Sprintf("shp_%d", g.purchases),
		TrackingCode:    tracking,
		LabelURL:        "https://labels.example/label.png",
		PostageLabelURL: "https://labels.example/label.pdf",
		RateAmount:      decimal.RequireFromString("7.33"),
		Carrier:         carrier.CarrierUSPS,
	}, nil
}

func (g *stubGateway) VoidShipment(ctx context.Context, externalShipmentID string) bool {
	return g.voidOK
}

func (g *stubGateway) TrackingInfo(ctx context.Context, trackingCode, carrierName string) carrier.TrackingResult {
	return g.tracking
}

type stubVerifier struct{}

func (stubVerifier) ValidateAddress(ctx context.Context, a postal.Address) postal.VerificationResult {
	return postal.VerificationResult{Success: true, Valid: true, Address: &a}
}

type harness struct {
	t       *testing.T
	router  http.Handler
	tokens  *auth.Tokens
	store   *shipment.MemoryStore
	gateway *stubGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, func(m *shipment.MemoryStore) shipment.Store { return m })
}

// buildHarness lets a test put a wrapper between the service and the memory
// store.
func buildHarness(t *testing.T, wrap func(*shipment.MemoryStore) shipment.Store) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := shipment.NewMemoryStore()
	gw := &stubGateway{voidOK: true, tracking: carrier.TrackingResult{Success: true, Status: "in_transit"}}
	svc := shipment.NewService(wrap(store), gw, nil, logger)
	tokens := auth.NewTokens("test-secret")

	web, err := NewWebHandler(svc, logger)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	router := NewRouter(RouterDeps{
		API:      NewAPIHandler(svc, postal.NewValidator(stubVerifier{}), logger, 15),
		Web:      web,
		Tokens:   tokens,
		Logger:   logger,
		Metrics:  NewHTTPMetrics(reg),
		Gatherer: reg,
	})
	return &harness{t: t, router: router, tokens: tokens, store: store, gateway: gw}
}

func (h *harness) token(userID int64) string {
	h.t.Helper()
	tok, err := h.tokens.Issue(userID, time.Hour)
	require.NoError(h.t, err)
	return tok
}

// api sends a JSON request as userID; userID 0 sends no token.
func (h *harness) api(method, path string, userID int64, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("Authorization", "Bearer "+h.token(userID))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// page sends a browser request as userID; userID 0 sends no session cookie.
func (h *harness) page(method, path string, userID int64, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if form != nil {
		r = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, r)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if userID > 0 {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: h.token(userID)})
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// seed stores a purchased shipment for userID directly.
func (h *harness) seed(userID int64) shipment.Shipment {
	h.t.Helper()
	sh, err := h.store.Create(context.Background(), shipment.Shipment{
		UserID:       userID,
		Carrier:      carrier.CarrierUSPS,
		Status:       shipment.StatusPurchased,
		TrackingCode: postal.String("9400100000000000000000"),
		ExternalID:   postal.String("shp_seed"),
		From:         postal.Address{Name: "Warehouse", Street1: "417 Montgomery St", City: "San Francisco", State: "CA", Zip: "94104", Country: "US"},
		To:           postal.Address{Name: "Jane Doe", Street1: "179 N Harbor Dr", City: "Redondo Beach", State: "CA", Zip: "90277", Country: "US"},
		Parcel:       postal.Parcel{Weight: decimal.NewFromInt(16)},
		RateAmount:   decimal.NewNullDecimal(decimal.RequireFromString("7.33")),
	})
	require.NoError(h.t, err)
	return sh
}

func validPayload() map[string]any {
	return map[string]any{
		"from_name":    "Warehouse",
		"from_street1": "417 Montgomery St",
		"from_city":    "San Francisco",
		"from_state":   "CA",
		"from_zip":     "94104",
		"to_name":      "Jane Doe",
		"to_street1":   "179 N Harbor Dr",
		"to_street2":   "Apt 2",
		"to_city":      "Redondo Beach",
		"to_state":     "CA",
		"to_zip":       "90277",
		"weight":       16,
		"length":       "10",
		"width":        8.5,
	}
}

func validForm() url.Values {
	form := url.Values{}
	for k, v := range validPayload() {
		form.Set(k, fmt.Sprint(v))
	}
	return form
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type failingInsertStore struct {
	*shipment.MemoryStore
}

func (failingInsertStore) Create(context.Context, shipment.Shipment) (shipment.Shipment, error) {
	return shipment.Shipment{}, errors.New("insert shipment: connection refused")
}

func newFailingInsertHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, func(m *shipment.MemoryStore) shipment.Store { return failingInsertStore{m} })
}
