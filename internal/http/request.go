package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/shipment-service-go/internal/postal"
	"github.com/andreasstove999/shipment-service-go/internal/shipment"
)

var (
	statePattern = regexp.MustCompile(`^[A-Z]{2}$`)

	minWeight    = decimal.RequireFromString("0.1")
	maxWeight    = decimal.NewFromInt(150)
	minDimension = decimal.RequireFromString("0.1")
	maxDimension = decimal.NewFromInt(100)
)

const (
	maxString = 255
	maxPhone  = 20

	minExponent = -10
	maxExponent = 10
)

// ValidationErrors maps a request field to its messages.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (v ValidationErrors) add(field, msg string) {
	v[field] = append(v[field], msg)
}

// First returns the first message for field, or "".
func (v ValidationErrors) First(field string) string {
	if msgs := v[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// number accepts a JSON number or a numeric string and keeps its text.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = number(strings.TrimSpace(s))
	default:
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return fmt.Errorf("expected a number, got %s", b)
		}
		*n = number(num)
	}
	return nil
}

type shipmentRequest struct {
	FromName    string `json:"from_name"`
	FromStreet1 string `json:"from_street1"`
	FromStreet2 string `json:"from_street2"`
	FromCity    string `json:"from_city"`
	FromState   string `json:"from_state"`
	FromZip     string `json:"from_zip"`
	FromCountry string `json:"from_country"`
	FromPhone   string `json:"from_phone"`
	FromEmail   string `json:"from_email"`

	ToName    string `json:"to_name"`
	ToStreet1 string `json:"to_street1"`
	ToStreet2 string `json:"to_street2"`
	ToCity    string `json:"to_city"`
	ToState   string `json:"to_state"`
	ToZip     string `json:"to_zip"`
	ToCountry string `json:"to_country"`
	ToPhone   string `json:"to_phone"`
	ToEmail   string `json:"to_email"`

	Weight number `json:"weight"`
	Length number `json:"length"`
	Width  number `json:"width"`
	Height number `json:"height"`
}

func shipmentRequestFromForm(form url.Values) shipmentRequest {
	return shipmentRequest{
		FromName:    form.Get("from_name"),
		FromStreet1: form.Get("from_street1"),
		FromStreet2: form.Get("from_street2"),
		FromCity:    form.Get("from_city"),
		FromState:   form.Get("from_state"),
		FromZip:     form.Get("from_zip"),
		FromCountry: form.Get("from_country"),
		FromPhone:   form.Get("from_phone"),
		FromEmail:   form.Get("from_email"),
		ToName:      form.Get("to_name"),
		ToStreet1:   form.Get("to_street1"),
		ToStreet2:   form.Get("to_street2"),
		ToCity:      form.Get("to_city"),
		ToState:     form.Get("to_state"),
		ToZip:       form.Get("to_zip"),
		ToCountry:   form.Get("to_country"),
		ToPhone:     form.Get("to_phone"),
		ToEmail:     form.Get("to_email"),
		Weight:      number(strings.TrimSpace(form.Get("weight"))),
		Length:      number(strings.TrimSpace(form.Get("length"))),
		Width:       number(strings.TrimSpace(form.Get("width"))),
		Height:      number(strings.TrimSpace(form.Get("height"))),
	}
}

type addressFields struct {
	prefix  string
	name    string
	street1 string
	street2 string
	city    string
	state   string
	zip     string
	country string
	phone   string
	email   string
}

func (req shipmentRequest) from() addressFields {
	return addressFields{"from", req.FromName, req.FromStreet1, req.FromStreet2, req.FromCity, req.FromState, req.FromZip, req.FromCountry, req.FromPhone, req.FromEmail}
}

func (req shipmentRequest) to() addressFields {
	return addressFields{"to", req.ToName, req.ToStreet1, req.ToStreet2, req.ToCity, req.ToState, req.ToZip, req.ToCountry, req.ToPhone, req.ToEmail}
}

// validate checks every field and reports all failures at once. Only a fully
// valid request produces a CreateInput.
func (req shipmentRequest) validate() (shipment.CreateInput, error) {
	errs := ValidationErrors{}

	from := validateAddress(req.from(), errs)
	to := validateAddress(req.to(), errs)

	weight, ok := parseDecimal("weight", string(req.Weight), true, errs)
	if ok {
		switch {
		case weight.LessThan(minWeight):
			errs.add("weight", "Package weight must be at least 0.1 ounces.")
		case weight.GreaterThan(maxWeight):
			errs.add("weight", "Package weight cannot exceed 150 ounces.")
		}
	}

	parcel := postal.Parcel{
		Weight: weight.Round(2),
		Length: validateDimension("length", req.Length, errs),
		Width:  validateDimension("width", req.Width, errs),
		Height: validateDimension("height", req.Height, errs),
	}

	if len(errs) > 0 {
		return shipment.CreateInput{}, errs
	}
	return shipment.CreateInput{From: from, To: to, Parcel: parcel}, nil
}

func validateAddress(f addressFields, errs ValidationErrors) postal.Address {
	field := func(name string) string { return f.prefix + "_" + name }
	label := func(name string) string { return f.prefix + " " + name }

	required := func(name, attr, value string) {
		if strings.TrimSpace(value) == "" {
			errs.add(field(name), fmt.Sprintf("The %s field is required.", attr))
		}
	}
	maxLen := func(name, attr, value string, max int) {
		if utf8.RuneCountInString(strings.TrimSpace(value)) > max {
			errs.add(field(name), fmt.Sprintf("The %s field must not be greater than %d characters.", attr, max))
		}
	}

	required("name", label("name"), f.name)
	maxLen("name", label("name"), f.name, maxString)
	required("street1", label("street address"), f.street1)
	maxLen("street1", label("street address"), f.street1, maxString)
	maxLen("street2", label("apartment/suite"), f.street2, maxString)
	required("city", label("city"), f.city)
	maxLen("city", label("city"), f.city, maxString)

	state := strings.TrimSpace(f.state)
	if state == "" {
		required("state", label("state"), state)
	} else if !statePattern.MatchString(state) {
		errs.add(field("state"), fmt.Sprintf("The %s state must be a valid 2-letter US state code (e.g., CA, NY).", f.prefix))
	}

	zip := strings.TrimSpace(f.zip)
	if zip == "" {
		required("zip", label("ZIP code"), zip)
	} else if !postal.ValidZip(zip) {
		errs.add(field("zip"), fmt.Sprintf("The %s ZIP code must be in the format 12345 or 12345-6789.", f.prefix))
	}

	if c := strings.TrimSpace(f.country); c != "" && c != postal.CountryUS {
		errs.add(field("country"), fmt.Sprintf("Only US addresses are supported for the %s address.", f.prefix))
	}

	maxLen("phone", label("phone"), f.phone, maxPhone)

	if email := strings.TrimSpace(f.email); email != "" {
		if !validEmail(email) {
			errs.add(field("email"), fmt.Sprintf("The %s field must be a valid email address.", label("email")))
		}
		maxLen("email", label("email"), email, maxString)
	}

	return postal.Normalize(postal.Address{
		Name:    f.name,
		Street1: f.street1,
		Street2: &f.street2,
		City:    f.city,
		State:   state,
		Zip:     zip,
		Country: postal.CountryUS,
		Phone:   &f.phone,
		Email:   &f.email,
	})
}

func validateDimension(name string, raw number, errs ValidationErrors) decimal.NullDecimal {
	d, ok := parseDecimal(name, string(raw), false, errs)
	if !ok {
		return decimal.NullDecimal{}
	}
	switch {
	case d.LessThan(minDimension):
		errs.add(name, fmt.Sprintf("The %s field must be at least 0.1.", name))
	case d.GreaterThan(maxDimension):
		errs.add(name, fmt.Sprintf("The %s field must not be greater than 100.", name))
	}
	return decimal.NewNullDecimal(d.Round(2))
}

// parseDecimal reports ok only when raw holds a number.
func parseDecimal(name, raw string, required bool, errs ValidationErrors) (decimal.Decimal, bool) {
	if raw == "" {
		if required {
			if name == "weight" {
				errs.add(name, "Package weight is required.")
			} else {
				errs.add(name, fmt.Sprintf("The %s field is required.", name))
			}
		}
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	// Comparing or rounding rescales to the exponent, so an unbounded one
	// would allocate without limit.
	if err != nil || d.Exponent() < minExponent || d.Exponent() > maxExponent {
		errs.add(name, fmt.Sprintf("The %s field must be a number.", name))
		return decimal.Zero, false
	}
	return d, true
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

type updateRequest struct {
	Status *string `json:"status"`
}

const msgOnlyVoiding = "Only voiding shipments is allowed. Other modifications are not permitted."
