package predictor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/address-predictor/internal/address"
)

// Result is the outcome of one input of PredictBatch.
type Result struct {
	Text    string          `json:"text"`
	Address address.Address `json:"address"`
	Err     error           `json:"-"`
}

// PredictBatch predicts every text, running up to the configured number of
// workers at once. Results are in input order and a failed item does not
// stop the others. Items not yet started when ctx is done fail with ctx.Err().
func (p *Predictor) PredictBatch(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			results[i].Text = text
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Address, results[i].Err = p.Predict(ctx, text)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
