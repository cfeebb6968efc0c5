// Package classifier defines the contract of the character sequence model and
// the helpers shared by its backends.
package classifier

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/address-predictor/internal/label"
)

// Classifier scores every position of an encoded address. The result has one
// distribution per input code, and column i of each distribution scores
// label.Label(i). Implementations must be deterministic for identical input.
type Classifier interface {
	Classify(ctx context.Context, codes []int) ([][]float32, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, codes []int) ([][]float32, error)

// Classify calls f(ctx, codes).
func (f Func) Classify(ctx context.Context, codes []int) ([][]float32, error) {
	return f(ctx, codes)
}

// Argmax picks the highest scoring label at each position. Ties go to the
// label with the lowest column index. Non-finite scores are rejected.
func Argmax(dists [][]float32) ([]label.Label, error) {
	labels := make([]label.Label, len(dists))
	for i, dist := range dists {
		if len(dist) != label.Count {
			return nil, fmt.Errorf("distribution %d has %d scores, want %d", i, len(dist), label.Count)
		}
		best := 0
		for j, score := range dist {
			if f := float64(score); math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("distribution %d has non-finite score %v for %s", i, score, label.Label(j))
			}
			if score > dist[best] {
				best = j
			}
		}
		labels[i] = label.Label(best)
	}
	return labels, nil
}

// OneHot returns a distribution scoring l as 1 and every other label as 0.
func OneHot(l label.Label) []float32 {
	dist := make([]float32, label.Count)
	dist[l] = 1
	return dist
}

// serialized guards a classifier whose forward pass is not reentrant.
type serialized struct {
	mu    sync.Mutex
	inner Classifier
}

// Serialize wraps c so that at most one Classify call runs at a time. Every
// prediction then queues on this lock, so it is the throughput ceiling of a
// process using a non-reentrant backend.
func Serialize(c Classifier) Classifier {
	return &serialized{inner: c}
}

func (s *serialized) Classify(ctx context.Context, codes []int) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.Classify(ctx, codes)
}
