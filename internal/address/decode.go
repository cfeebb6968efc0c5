package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/address-predictor/internal/label"
	"github.com/address-predictor/internal/normalize"
)

// ErrLengthMismatch is matched by errors reporting that the text and its
// labels do not line up. It always points at an integration bug.
var ErrLengthMismatch = errors.New("label count does not match text length")

// LengthMismatchError carries both lengths, counted in runes.
type LengthMismatchError struct {
	Text   int
	Labels int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %d runes, %d labels", ErrLengthMismatch, e.Text, e.Labels)
}

func (e *LengthMismatchError) Unwrap() error { return ErrLengthMismatch }

type decodeConfig struct {
	normalize normalize.Func
}

// DecodeOption tunes Decode.
type DecodeOption func(*decodeConfig)

// WithNormalizer replaces the per-field post-processing, which defaults to
// normalize.Trim.
func WithNormalizer(f normalize.Func) DecodeOption {
	return func(c *decodeConfig) {
		if f != nil {
			c.normalize = f
		}
	}
}

// Decode groups the runes of text by their label, keeping source order
// within each field, and drops Blank runes. labels[i] belongs to the i-th
// rune of text. The runes are taken from text as given, so the original
// casing is kept.
func Decode(text string, labels []label.Label, opts ...DecodeOption) (Address, error) {
	cfg := decodeConfig{normalize: normalize.Trim}
	for _, opt := range opts {
		opt(&cfg)
	}

	runes := []rune(text)
	if len(runes) != len(labels) {
		return Address{}, &LengthMismatchError{Text: len(runes), Labels: len(labels)}
	}

	var fields [label.Count]strings.Builder
	for i, r := range runes {
		l := labels[i]
		if !l.Valid() {
			return Address{}, fmt.Errorf("invalid label %d at offset %d", int(l), i)
		}
		if l == label.Blank {
			continue
		}
		fields[l].WriteRune(r)
	}

	return Address{
		Building: cfg.normalize(fields[label.Building].String()),
		Street:   cfg.normalize(fields[label.Street].String()),
		City:     cfg.normalize(fields[label.City].String()),
		State:    cfg.normalize(fields[label.State].String()),
		Postcode: cfg.normalize(fields[label.Postcode].String()),
	}, nil
}
