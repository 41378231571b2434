package shipment

import "fmt"

type Status string

const (
	StatusCreated   Status = "created"
	StatusPurchased Status = "purchased"
	StatusVoided    Status = "voided"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCreated, StatusPurchased, StatusVoided:
		return st, nil
	default:
		return "", fmt.Errorf("unknown shipment status %q", s)
	}
}

// CanTransition allows created→purchased and purchased→voided only.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusCreated && to == StatusPurchased:
		return true
	case from == StatusPurchased && to == StatusVoided:
		return true
	default:
		return false
	}
}

func IsPurchased(s Shipment) bool { return s.Status == StatusPurchased }

func IsVoided(s Shipment) bool { return s.Status == StatusVoided }
