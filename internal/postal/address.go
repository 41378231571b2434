// Package postal holds the US address and parcel model shared by the carrier
// gateway and the shipment orchestration, plus the local address rules.
package postal

import (
	"strings"
)

// CountryUS is the only destination and origin country supported.
const CountryUS = "US"

type Address struct {
	Name    string  `json:"name,omitempty"`
	Street1 string  `json:"street1"`
	Street2 *string `json:"street2,omitempty"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Zip     string  `json:"zip"`
	Country string  `json:"country,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// Normalize trims every field, forces the country to US and turns blank
// optional fields into nil.
func Normalize(a Address) Address {
	return Address{
		Name:    strings.TrimSpace(a.Name),
		Street1: strings.TrimSpace(a.Street1),
		Street2: optional(a.Street2),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Zip:     strings.TrimSpace(a.Zip),
		Country: CountryUS,
		Phone:   optional(a.Phone),
		Email:   optional(a.Email),
	}
}

// Format renders the address as a display block:
//
//	street1
//	street2 (when present)
//	city, state zip
func Format(a Address) string {
	lines := make([]string, 0, 3)
	lines = appendNonBlank(lines, a.Street1)
	if a.Street2 != nil {
		lines = appendNonBlank(lines, *a.Street2)
	}
	lines = appendNonBlank(lines, a.City+", "+a.State+" "+a.Zip)
	return strings.Join(lines, "\n")
}

// IsUS reports whether the address is domestic. A missing country counts as US.
func IsUS(a Address) bool {
	c := strings.TrimSpace(a.Country)
	return c == "" || strings.EqualFold(c, CountryUS)
}

// String returns a pointer to s, or nil when s is blank.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional field.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optional(p *string) *string {
	if p == nil {
		return nil
	}
	return String(*p)
}

func appendNonBlank(lines []string, s string) []string {
	// "city, state zip" with every part empty collapses to ",  "
	if strings.Trim(s, " ,") == "" {
		return lines
	}
	return append(lines, s)
}
