// Package vocab maps address text onto the closed character alphabet the
// sequence model was trained with.
package vocab

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultSymbols is the alphabet of the shipped model. The position of a
// symbol in this string is its code.
const DefaultSymbols = "0123456789abcdefghijklmnopqrstuvwxyz!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ \t\n\r"

// ErrEncoding is matched by every error Encode returns for a character the
// vocabulary does not contain.
var ErrEncoding = errors.New("character not in vocabulary")

// EncodingError reports the first rune of the input that has no code.
type EncodingError struct {
	Offset int  // rune offset into the input
	Rune   rune // the offending rune, as written in the input
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %q at offset %d", ErrEncoding, e.Rune, e.Offset)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }

// Vocabulary is an immutable rune <-> code table.
type Vocabulary struct {
	symbols []rune
	codes   map[rune]int
}

var defaultVocabulary = mustNew(DefaultSymbols)

// Default returns the vocabulary of the shipped model.
func Default() *Vocabulary {
	return defaultVocabulary
}

// New builds a vocabulary from an ordered symbol string. Duplicate symbols
// are rejected because they would make codes ambiguous.
func New(symbols string) (*Vocabulary, error) {
	if symbols == "" {
		return nil, errors.New("vocabulary must not be empty")
	}

	v := &Vocabulary{codes: make(map[rune]int)}
	for _, r := range symbols {
		if _, dup := v.codes[r]; dup {
			return nil, fmt.Errorf("duplicate vocabulary symbol %q", r)
		}
		v.codes[r] = len(v.symbols)
		v.symbols = append(v.symbols, r)
	}
	return v, nil
}

func mustNew(symbols string) *Vocabulary {
	v, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return v
}

// Size returns the number of symbols.
func (v *Vocabulary) Size() int {
	return len(v.symbols)
}

// Contains reports whether r, after lower-casing, has a code.
func (v *Vocabulary) Contains(r rune) bool {
	_, ok := v.codes[unicode.ToLower(r)]
	return ok
}

// Encode lower-cases text and returns one code per rune. Lower-casing is
// done rune by rune so the result always has the same length as the input
// measured in runes. The first rune without a code fails the whole call with
// an *EncodingError; no partial sequence is returned.
func (v *Vocabulary) Encode(text string) ([]int, error) {
	codes := make([]int, 0, len(text))
	offset := 0
	for _, r := range text {
		code, ok := v.codes[unicode.ToLower(r)]
		if !ok {
			return nil, &EncodingError{Offset: offset, Rune: r}
		}
		codes = append(codes, code)
		offset++
	}
	return codes, nil
}

// Decode maps codes back to their (lower-case) symbols.
func (v *Vocabulary) Decode(codes []int) (string, error) {
	var b strings.Builder
	b.Grow(len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(v.symbols) {
			return "", fmt.Errorf("code %d at offset %d out of range [0, %d)", c, i, len(v.symbols))
		}
		b.WriteRune(v.symbols[c])
	}
	return b.String(), nil
}

// Encode encodes text with the default vocabulary.
func Encode(text string) ([]int, error) {
	return defaultVocabulary.Encode(text)
}
