// Package address holds the structured result of a prediction and the
// decoder that builds it from per-character labels.
package address

import (
	"fmt"

	"github.com/address-predictor/internal/label"
)

// Address is the structured form of a free-text address. A field is empty
// when no character of the input was assigned to it.
type Address struct {
	Building string `json:"building"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
}

// Field returns the value held for a field label. Blank and unknown labels
// have no field and return "".
func (a Address) Field(l label.Label) string {
	switch l {
	case label.Building:
		return a.Building
	case label.Street:
		return a.Street
	case label.City:
		return a.City
	case label.State:
		return a.State
	case label.Postcode:
		return a.Postcode
	}
	return ""
}

// Fields returns the five fields keyed by label name.
func (a Address) Fields() map[string]string {
	fields := make(map[string]string, label.Count-1)
	for _, l := range label.Fields() {
		fields[l.String()] = a.Field(l)
	}
	return fields
}

// IsEmpty reports whether every field is empty.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

func (a Address) String() string {
	return fmt.Sprintf("Building: %s, Street: %s, City: %s, State: %s, Postcode: %s",
		a.Building, a.Street, a.City, a.State, a.Postcode)
}
