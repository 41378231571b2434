package postal

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

const (
	ReasonNonUS        = "Only US addresses are supported"
	ReasonStateFormat  = "State must be a 2-letter code (e.g., CA, NY)"
	ReasonZipFormat    = "Invalid ZIP code format"
	reasonMissingField = "Missing required fields: "
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// VerificationResult is the outcome of an address check. Local rule failures
// and carrier-side failures share this shape.
type VerificationResult struct {
	Success       bool            `json:"success"`
	Valid         bool            `json:"valid"`
	Address       *Address        `json:"address,omitempty"`
	Verifications json.RawMessage `json:"verifications,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
}

// Verifier performs the carrier-side verification once local rules pass.
type Verifier interface {
	ValidateAddress(ctx context.Context, a Address) VerificationResult
}

type Validator struct {
	verifier Verifier
}

func NewValidator(v Verifier) *Validator {
	return &Validator{verifier: v}
}

// Validate applies the local rules in order and stops at the first failing
// category. Only a locally valid address reaches the verifier.
func (v *Validator) Validate(ctx context.Context, a Address) VerificationResult {
	if res, ok := CheckLocal(a); !ok {
		return res
	}
	if a.Country == "" {
		a.Country = CountryUS
	}
	return v.verifier.ValidateAddress(ctx, a)
}

// CheckLocal runs the rules that need no network call.
func CheckLocal(a Address) (VerificationResult, bool) {
	country := a.Country
	if country == "" {
		country = CountryUS
	}
	if country != CountryUS {
		return failed(ReasonNonUS), false
	}

	if missing := MissingFields(a); len(missing) > 0 {
		return failed(reasonMissingField + strings.Join(missing, ", ")), false
	}

	if len(a.State) != 2 {
		return failed(ReasonStateFormat), false
	}

	if !ValidZip(a.Zip) {
		return failed(ReasonZipFormat), false
	}

	return VerificationResult{Success: true, Valid: true}, true
}

// MissingFields lists every blank required field in a fixed order.
func MissingFields(a Address) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"street1", a.Street1},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ValidZip accepts NNNNN and NNNNN-NNNN.
func ValidZip(zip string) bool {
	return zipPattern.MatchString(zip)
}

func failed(reason string) VerificationResult {
	return VerificationResult{
		Success: false,
		Valid:   false,
		Errors:  []string{reason},
	}
}
