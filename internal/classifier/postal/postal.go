// Package postal provides a rule-based Classifier backed by libpostal. It maps
// the components libpostal finds back onto the characters of the input and
// emits one-hot distributions, so it can stand in for the trained model
// wherever the model sidecar is not deployed.
package postal

import (
	"context"
	"errors"
	"strings"
	"unicode"

	libpostal "github.com/openvenues/gopostal/parser"

	"github.com/address-predictor/internal/classifier"
	"github.com/address-predictor/internal/label"
	"github.com/address-predictor/internal/vocab"
)

// componentLabels maps libpostal component labels onto address fields.
// Components not listed (country, category, near, ...) stay blank.
var componentLabels = map[string]label.Label{
	"house":          label.Building,
	"house_number":   label.Street,
	"road":           label.Street,
	"po_box":         label.Street,
	"unit":           label.Street,
	"level":          label.Street,
	"staircase":      label.Street,
	"entrance":       label.Street,
	"suburb":         label.City,
	"city_district":  label.City,
	"city":           label.City,
	"island":         label.City,
	"state_district": label.State,
	"state":          label.State,
	"postcode":       label.Postcode,
}

// ParseFunc splits an address into libpostal components.
type ParseFunc func(address string) []libpostal.ParsedComponent

// Classifier labels characters from libpostal's parse of the decoded text.
type Classifier struct {
	vocab *vocab.Vocabulary
	parse ParseFunc
}

// Load returns the libpostal classifier for codes produced by v. libpostal
// keeps global parser state, so the result is serialised.
func Load(v *vocab.Vocabulary) (classifier.Classifier, error) {
	return load(v, libpostal.ParseAddress)
}

func load(v *vocab.Vocabulary, parse ParseFunc) (classifier.Classifier, error) {
	if v == nil {
		return nil, errors.New("postal: vocabulary is required")
	}
	return classifier.Serialize(&Classifier{vocab: v, parse: parse}), nil
}

// Classify decodes codes back to text, parses it and returns a one-hot
// distribution per character.
func (c *Classifier) Classify(ctx context.Context, codes []int) ([][]float32, error) {
	text, err := c.vocab.Decode(codes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := Align([]rune(text), c.parse(text))

	dists := make([][]float32, len(labels))
	for i, l := range labels {
		dists[i] = classifier.OneHot(l)
	}
	return dists, nil
}

// Align assigns a label to every rune of text from the parsed components.
// Components are matched token by token, left to right, in the order
// libpostal returned them; tokens that cannot be found (because libpostal
// normalised them) leave their characters blank. Whitespace runs between two
// characters of the same field are joined to that field.
func Align(text []rune, components []libpostal.ParsedComponent) []label.Label {
	lower := make([]rune, len(text))
	for i, r := range text {
		lower[i] = unicode.ToLower(r)
	}

	labels := make([]label.Label, len(text))
	for i := range labels {
		labels[i] = label.Blank
	}

	cursor := 0
	for _, comp := range components {
		l, ok := componentLabels[comp.Label]
		if !ok {
			l = label.Blank
		}
		for _, token := range strings.Fields(comp.Value) {
			start := indexRunes(lower, []rune(strings.ToLower(token)), cursor)
			if start < 0 {
				continue
			}
			end := start + len([]rune(token))
			for i := start; i < end; i++ {
				labels[i] = l
			}
			cursor = end
		}
	}

	fillGaps(text, labels)
	return labels
}

func fillGaps(text []rune, labels []label.Label) {
	prev := -1
	for i, l := range labels {
		if l == label.Blank {
			continue
		}
		if prev >= 0 && labels[prev] == l && i-prev > 1 && allSpace(text[prev+1:i]) {
			for j := prev + 1; j < i; j++ {
				labels[j] = l
			}
		}
		prev = i
	}
}

func allSpace(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
