package httpapi

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	webPerPage   = 15
	recentLimit  = 5
	flashCreated = "created"
	flashDeleted = "deleted"
)

var flashMessages = map[string]string{
	flashCreated: "Shipment created successfully!",
	flashDeleted: "Shipment deleted successfully.",
}

type pageData struct {
	Flash string
}

type indexPage struct {
	pageData
	Shipments      []shipmentResource
	Links          paginationLinks
	Meta           paginationMeta
	Recent         []shipmentResource
	PurchasedCount int
}

type createPage struct {
	pageData
	Old           url.Values
	Errors        ValidationErrors
	Prefixes      []string
	AddressFields []string
	ParcelFields  []string
}

type showPage struct {
	pageData
	Shipment shipmentResource
}

type errorPage struct {
	pageData
	Status  int
	Message string
}

// WebHandler serves the server-rendered pages behind the session cookie.
type WebHandler struct {
	svc    ShipmentService
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewWebHandler(svc ShipmentService, logger *slog.Logger) (*WebHandler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &WebHandler{svc: svc, pages: pages, logger: logger}, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{"deref": postal.Value}
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"index.html", "create.html", "show.html", "error.html"} {
		base, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		t, err := base.ParseFS(templatesFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	ctx := r.Context()

	p, err := h.svc.List(ctx, userID, queryInt(r, "page", 1), webPerPage)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	recent, err := h.svc.Recent(ctx, userID, recentLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	purchased, err := h.svc.ByStatus(ctx, userID, shipment.StatusPurchased)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	c := newShipmentCollection(p, r.URL)
	h.render(w, r, http.StatusOK, "index.html", indexPage{
		pageData:       flashFrom(r),
		Shipments:      c.Data,
		Links:          c.Links,
		Meta:           c.Meta,
		Recent:         newShipmentResources(recent),
		PurchasedCount: len(purchased),
	})
}

func (h *WebHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "create.html", newCreatePage(nil, nil))
}

// Store re-renders the form with the submitted values on any failure.
func (h *WebHandler) Store(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "error.html", errorPage{Status: http.StatusBadRequest, Message: "Malformed form submission."})
		return
	}

	in, err := shipmentRequestFromForm(r.PostForm).validate()
	if err != nil {
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			verrs = ValidationErrors{"error": {err.Error()}}
		}
		h.render(w, r, http.StatusUnprocessableEntity, "create.html", newCreatePage(r.PostForm, verrs))
		return
	}

	created, err := h.svc.Create(r.Context(), mustUserID(r), in)
	if err != nil {
		msg := err.Error()
		switch {
		case shipment.IsPurchaseFailure(err):
			// carrier messages are shown as is
		case errors.Is(err, shipment.ErrPersistFailed):
			msg = msgNotSaved
		default:
			h.logger.ErrorContext(r.Context(), "create shipment failed", "error", err.Error())
			msg = msgTryAgain
		}
		h.render(w, r, http.StatusUnprocessableEntity, "create.html",
			newCreatePage(r.PostForm, ValidationErrors{"error": {msg}}))
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/shipments/%d?flash=%s", created.ID, flashCreated), http.StatusSeeOther)
}

func (h *WebHandler) Show(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "show.html", showPage{
		pageData: flashFrom(r),
		Shipment: newShipmentResource(s),
	})
}

func (h *WebHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), s.UserID, s.ID); err != nil {
		if errors.Is(err, shipment.ErrNotFound) {
			h.errorPage(w, r, http.StatusNotFound, "Shipment not found.")
			return
		}
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/shipments?flash="+flashDeleted, http.StatusSeeOther)
}

// lookup resolves the {id} shipment for the caller and writes the 403/404
// page itself when it cannot.
func (h *WebHandler) lookup(w http.ResponseWriter, r *http.Request) (shipment.Shipment, bool) {
	id, ok := shipmentID(r)
	if !ok {
		h.errorPage(w, r, http.StatusNotFound, "Shipment not found.")
		return shipment.Shipment{}, false
	}
	s, err := h.svc.Lookup(r.Context(), mustUserID(r), id)
	switch {
	case err == nil:
		return s, true
	case errors.Is(err, shipment.ErrForbidden):
		h.errorPage(w, r, http.StatusForbidden, "Unauthorized access to shipment.")
	case errors.Is(err, shipment.ErrNotFound):
		h.errorPage(w, r, http.StatusNotFound, "Shipment not found.")
	default:
		h.serverError(w, r, err)
	}
	return shipment.Shipment{}, false
}

func (h *WebHandler) errorPage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.render(w, r, status, "error.html", errorPage{Status: status, Message: msg})
}

func (h *WebHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "page failed", "path", r.URL.Path, "error", err.Error())
	h.errorPage(w, r, http.StatusInternalServerError, "Something went wrong.")
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "render page", "page", page, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func newCreatePage(old url.Values, errs ValidationErrors) createPage {
	return createPage{
		Old:           old,
		Errors:        errs,
		Prefixes:      []string{"from", "to"},
		AddressFields: []string{"name", "street1", "street2", "city", "state", "zip", "phone", "email"},
		ParcelFields:  []string{"weight", "length", "width", "height"},
	}
}

func flashFrom(r *http.Request) pageData {
	return pageData{Flash: flashMessages[r.URL.Query().Get("flash")]}
}
