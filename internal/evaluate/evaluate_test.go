package evaluate

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/label"
	"github.com/address-predictor/internal/samples"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, text string) (address.Address, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(address.Address), args.Error(1)
}

// perfect returns the reference sample whose street appears in the text.
type perfect struct{}

func (perfect) Predict(ctx context.Context, text string) (address.Address, error) {
	for _, a := range samples.Reference {
		if strings.Contains(text, a.Street) {
			return a, nil
		}
	}
	return address.Address{}, errors.New("unknown sample")
}

func TestCompose(t *testing.T) {
	a := samples.Reference[4]

	assert.Equal(t,
		"Dockland shopping centre\n777 Hill Road\nDockland\nVic\n3311",
		Compose(a, []label.Label{label.City, label.State, label.Postcode}, "\n"))
	assert.Equal(t,
		"16 colville crescent,3173,keysborough,vic",
		Compose(samples.Reference[0], []label.Label{label.Postcode, label.City, label.State}, ","))
}

func TestTextIsReproducible(t *testing.T) {
	a := samples.Reference[1]
	opts := Options{Shuffle: true, Seed: 42}

	first, second := New(perfect{}, opts), New(perfect{}, opts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Text(a), second.Text(a))
	}
}

func TestTextKeepsAllFields(t *testing.T) {
	e := New(perfect{}, Options{Shuffle: true, Seed: 7})
	for _, a := range samples.Reference {
		text := e.Text(a)
		for _, l := range label.Fields() {
			assert.Contains(t, text, a.Field(l))
		}
		if a.Building != "" {
			assert.True(t, strings.HasPrefix(text, a.Building))
		} else {
			assert.True(t, strings.HasPrefix(text, a.Street))
		}
	}
}

func TestRunPerfectPredictor(t *testing.T) {
	e := New(perfect{}, Options{Shuffle: true, Seed: 1})

	report, err := e.Run(context.Background(), samples.Reference)

	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 6, report.Exact)
	assert.Equal(t, 0, report.Errors)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1.0, report.Accuracy())
	assert.Equal(t, 2, report.Checked["building"], "building only checked where expected")
	assert.Equal(t, 6, report.Checked["street"])
	assert.Equal(t, 1.0, report.FieldAccuracy("postcode"))
}

func TestRunCountsWrongFieldsAndErrors(t *testing.T) {
	m := &mockPredictor{}
	good := samples.Reference[0]
	swapped := good
	swapped.State, swapped.Postcode = good.Postcode, good.State

	m.On("Predict", mock.Anything, mock.MatchedBy(func(s string) bool { return strings.Contains(s, "colville") })).
		Return(swapped, nil).Once()
	m.On("Predict", mock.Anything, mock.MatchedBy(func(s string) bool { return strings.Contains(s, "queen") })).
		Return(address.Address{}, errors.New("encode address: character not in vocabulary")).Once()

	e := New(m, Options{Separators: []string{","}})
	report, err := e.Run(context.Background(), samples.Reference[:2])

	require.NoError(t, err)
	m.AssertExpectations(t)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 0, report.Exact)
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, []string{"postcode", "state"}, report.Failures[0].Wrong)
	assert.Equal(t, "16 colville crescent,keysborough,vic,3173", report.Failures[0].Text)
	assert.Contains(t, report.Failures[1].Err, "not in vocabulary")
	assert.Equal(t, 0.0, report.FieldAccuracy("state"))
	assert.Equal(t, 1.0, report.FieldAccuracy("city"))

	var buf bytes.Buffer
	report.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Samples:   2")
	assert.Contains(t, out, `want "3173" got "vic"`)
	assert.Contains(t, out, "error: encode address")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(perfect{}, Options{}).Run(ctx, samples.Reference)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyReport(t *testing.T) {
	var r Report
	assert.Equal(t, 0.0, r.Accuracy())
	assert.Equal(t, 0.0, r.FieldAccuracy("city"))
}
