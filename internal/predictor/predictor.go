// Package predictor turns free-text addresses into structured addresses by
// running the encode, classify and decode steps in order.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/classifier"
	"github.com/address-predictor/internal/debug"
	"github.com/address-predictor/internal/metrics"
	"github.com/address-predictor/internal/vocab"
)

var (
	// ErrModelUnavailable is returned by every call on a Predictor whose
	// classifier failed to load.
	ErrModelUnavailable = errors.New("address model unavailable")

	// ErrClassification wraps failures of the classifier itself, including
	// output that does not have the expected shape.
	ErrClassification = errors.New("address classification failed")
)

// Predictor is safe for concurrent use; it holds no per-call state.
type Predictor struct {
	clf        classifier.Classifier
	initErr    error
	vocab      *vocab.Vocabulary
	log        *zap.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
	workers    int
	decodeOpts []address.DecodeOption
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithInitError records why the classifier could not be loaded. It is
// included in the ErrModelUnavailable returned by every call.
func WithInitError(err error) Option {
	return func(p *Predictor) { p.initErr = err }
}

// WithVocabulary replaces the default vocabulary. It must be the one the
// classifier was trained with.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(p *Predictor) {
		if v != nil {
			p.vocab = v
		}
	}
}

// WithLogger sets the logger used for timing and diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(p *Predictor) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics records outcomes and classifier latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Predictor) { p.metrics = m }
}

// WithTimeout bounds each classifier call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Predictor) { p.timeout = d }
}

// WithWorkers sets how many predictions PredictBatch runs at once.
func WithWorkers(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithDecodeOptions passes options through to address.Decode.
func WithDecodeOptions(opts ...address.DecodeOption) Option {
	return func(p *Predictor) { p.decodeOpts = append(p.decodeOpts, opts...) }
}

// New creates a Predictor around clf. A nil clf yields a Predictor that
// fails every call with ErrModelUnavailable.
func New(clf classifier.Classifier, opts ...Option) *Predictor {
	p := &Predictor{
		clf:     clf,
		vocab:   vocab.Default(),
		log:     zap.NewNop(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("predictor")
	return p
}

// Ready returns ErrModelUnavailable (wrapping the load error, if any) when
// the Predictor has no classifier.
func (p *Predictor) Ready() error {
	if p.clf != nil {
		return nil
	}
	if p.initErr != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, p.initErr)
	}
	return ErrModelUnavailable
}

// Predict parses text into an Address. Errors are one of
// ErrModelUnavailable, vocab.ErrEncoding, ErrClassification or
// address.ErrLengthMismatch (a classifier returning the wrong number of
// distributions); there is no partial result.
func (p *Predictor) Predict(ctx context.Context, text string) (address.Address, error) {
	if err := p.Ready(); err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeUnavailable)
		return address.Address{}, err
	}

	codes, err := p.vocab.Encode(text)
	if err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeEncodingError)
		return address.Address{}, fmt.Errorf("encode address: %w", err)
	}
	if len(codes) == 0 {
		p.metrics.ObservePrediction(metrics.OutcomeOK)
		return address.Address{}, nil
	}

	dists, err := p.classify(ctx, codes)
	if err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeClassification)
		return address.Address{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if len(dists) != len(codes) {
		p.metrics.ObservePrediction(metrics.OutcomeInternal)
		p.log.Error("classifier output length differs from input",
			zap.Int("chars", len(codes)), zap.Int("distributions", len(dists)))
		return address.Address{}, &address.LengthMismatchError{Text: len(codes), Labels: len(dists)}
	}

	labels, err := classifier.Argmax(dists)
	if err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeClassification)
		return address.Address{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	addr, err := address.Decode(text, labels, p.decodeOpts...)
	if err != nil {
		p.metrics.ObservePrediction(metrics.OutcomeInternal)
		p.log.Error("decode failed", zap.Error(err))
		return address.Address{}, err
	}

	p.metrics.ObservePrediction(metrics.OutcomeOK)
	return addr, nil
}

func (p *Predictor) classify(ctx context.Context, codes []int) ([][]float32, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	stop := debug.Timing(p.log, "predict", zap.Int("chars", len(codes)))
	defer stop()

	start := time.Now()
	dists, err := p.clf.Classify(ctx, codes)
	p.metrics.ObserveClassify(time.Since(start), len(codes))
	return dists, err
}
