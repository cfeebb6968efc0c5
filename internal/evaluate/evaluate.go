// Package evaluate measures how well a predictor recovers known addresses
// when they are written with their fields in varying order.
package evaluate

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/label"
)

// Predictor is the part of predictor.Predictor the evaluator needs.
type Predictor interface {
	Predict(ctx context.Context, text string) (address.Address, error)
}

// DefaultSeparators are the field separators addresses are written with.
var DefaultSeparators = []string{",", " ", "\n"}

// Options control how sample text is composed.
type Options struct {
	Separators []string // one is drawn per sample
	Shuffle    bool     // shuffle city, state and postcode
	Seed       int64
}

// Case is one composed address and what the predictor made of it.
type Case struct {
	Text     string          `json:"text"`
	Expected address.Address `json:"expected"`
	Got      address.Address `json:"got"`
	Err      string          `json:"error,omitempty"`
	Wrong    []string        `json:"wrong_fields,omitempty"`
}

// Report summarises an evaluation run.
type Report struct {
	Total    int            `json:"total"`
	Exact    int            `json:"exact"`
	Errors   int            `json:"errors"`
	Checked  map[string]int `json:"checked"`
	Correct  map[string]int `json:"correct"`
	Failures []Case         `json:"failures"`
}

// Accuracy returns the share of samples whose checked fields all matched.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Exact) / float64(r.Total)
}

// FieldAccuracy returns the share of checked values of field that matched.
func (r Report) FieldAccuracy(field string) float64 {
	if r.Checked[field] == 0 {
		return 0
	}
	return float64(r.Correct[field]) / float64(r.Checked[field])
}

// Print writes a human readable summary.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Samples:   %d\n", r.Total)
	fmt.Fprintf(w, "Exact:     %d (%.1f%%)\n", r.Exact, r.Accuracy()*100)
	fmt.Fprintf(w, "Errors:    %d\n", r.Errors)

	fields := make([]string, 0, len(r.Checked))
	for f := range r.Checked {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %-9s %d/%d (%.1f%%)\n", f, r.Correct[f], r.Checked[f], r.FieldAccuracy(f)*100)
	}

	for _, c := range r.Failures {
		fmt.Fprintf(w, "\nFAIL %q\n", c.Text)
		if c.Err != "" {
			fmt.Fprintf(w, "  error: %s\n", c.Err)
			continue
		}
		for _, f := range c.Wrong {
			l, _ := label.Parse(f)
			fmt.Fprintf(w, "  %-9s want %q got %q\n", f, c.Expected.Field(l), c.Got.Field(l))
		}
	}
}

// Evaluator composes text from samples and scores predictions.
type Evaluator struct {
	predictor Predictor
	opts      Options
	rng       *rand.Rand
}

// New creates an Evaluator. Runs with the same seed compose the same text.
func New(p Predictor, opts Options) *Evaluator {
	if len(opts.Separators) == 0 {
		opts.Separators = DefaultSeparators
	}
	return &Evaluator{
		predictor: p,
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
	}
}

// Compose writes a as free text: the building (if any), the street, then
// city, state and postcode in the given order, joined by sep.
func Compose(a address.Address, tail []label.Label, sep string) string {
	var parts []string
	if a.Building != "" {
		parts = append(parts, a.Building)
	}
	parts = append(parts, a.Street)
	for _, l := range tail {
		parts = append(parts, a.Field(l))
	}
	return strings.Join(parts, sep)
}

// Text composes the next evaluation text for a.
func (e *Evaluator) Text(a address.Address) string {
	tail := []label.Label{label.City, label.State, label.Postcode}
	if e.opts.Shuffle {
		e.rng.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
	}
	sep := e.opts.Separators[e.rng.Intn(len(e.opts.Separators))]
	return Compose(a, tail, sep)
}

// Run predicts every sample and compares the result field by field. The
// building is only checked for samples that have one.
func (e *Evaluator) Run(ctx context.Context, samples []address.Address) (Report, error) {
	report := Report{
		Checked: make(map[string]int),
		Correct: make(map[string]int),
	}

	for _, want := range samples {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c := Case{Text: e.Text(want), Expected: want}
		report.Total++

		got, err := e.predictor.Predict(ctx, c.Text)
		if err != nil {
			c.Err = err.Error()
			report.Errors++
			report.Failures = append(report.Failures, c)
			continue
		}
		c.Got = got

		for _, l := range label.Fields() {
			if l == label.Building && want.Building == "" {
				continue
			}
			report.Checked[l.String()]++
			if got.Field(l) == want.Field(l) {
				report.Correct[l.String()]++
			} else {
				c.Wrong = append(c.Wrong, l.String())
			}
		}

		if len(c.Wrong) == 0 {
			report.Exact++
		} else {
			report.Failures = append(report.Failures, c)
		}
	}

	return report, nil
}
