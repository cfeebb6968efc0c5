// Package label defines the six per-character classes of the address model.
package label

import "fmt"

// Label is a per-character class. Its numeric value is the column index of
// that class in the classifier output, so the constant order below must match
// the model's output layer.
type Label int

const (
	Building Label = iota
	Street
	City
	Postcode
	State
	Blank
)

// Count is the number of labels and the width of every classifier distribution.
const Count = 6

var names = [Count]string{"building", "street", "city", "postcode", "state", "blank"}

// All returns every label in column order.
func All() []Label {
	return []Label{Building, Street, City, Postcode, State, Blank}
}

// Fields returns the labels that carry an address field, i.e. all but Blank.
func Fields() []Label {
	return []Label{Building, Street, City, Postcode, State}
}

// Valid reports whether l is one of the six labels.
func (l Label) Valid() bool {
	return l >= 0 && int(l) < Count
}

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("label(%d)", int(l))
	}
	return names[l]
}

// Parse returns the label with the given name.
func Parse(name string) (Label, error) {
	for i, n := range names {
		if n == name {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", name)
}
