package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/classifier"
	"github.com/address-predictor/internal/classifier/postal"
	"github.com/address-predictor/internal/classifier/serving"
	"github.com/address-predictor/internal/config"
	"github.com/address-predictor/internal/logger"
	"github.com/address-predictor/internal/metrics"
	"github.com/address-predictor/internal/normalize"
	"github.com/address-predictor/internal/predictor"
	"github.com/address-predictor/internal/vocab"
)

var (
	configFile string

	cfg *config.Config
	log *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "addrpredict",
		Short:        "Character-level address parser",
		Long:         `Splits free-text postal addresses into building, street, city, state and postcode using a per-character sequence model`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return err
			}
			log, err = logger.NewLogger(&cfg.Log)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file")

	rootCmd.AddCommand(createPredictCmd())
	rootCmd.AddCommand(createBatchCmd())
	rootCmd.AddCommand(createEvaluateCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadClassifier initialises the configured backend once.
func loadClassifier(ctx context.Context) (classifier.Classifier, error) {
	switch cfg.Classifier.Backend {
	case config.BackendPostal:
		return postal.Load(vocab.Default())
	default:
		c, err := serving.Load(ctx, serving.Config{
			URL:     cfg.Classifier.URL,
			Model:   cfg.Classifier.Model,
			Version: cfg.Classifier.Version,
			Timeout: cfg.Classifier.Timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// buildPredictor loads the classifier and wires the predictor. A classifier
// that fails to load is logged and leaves the predictor unavailable, so every
// prediction reports ErrModelUnavailable instead of guessing.
func buildPredictor(ctx context.Context, m *metrics.Metrics) *predictor.Predictor {
	norm, _ := normalize.ByName(cfg.Predictor.Normalize) // checked by config.Validate

	opts := []predictor.Option{
		predictor.WithLogger(log),
		predictor.WithMetrics(m),
		predictor.WithTimeout(cfg.Classifier.Timeout),
		predictor.WithWorkers(cfg.Predictor.Workers),
		predictor.WithDecodeOptions(address.WithNormalizer(norm)),
	}

	clf, err := loadClassifier(ctx)
	if err != nil {
		log.Error("unable to load address model", zap.String("backend", cfg.Classifier.Backend), zap.Error(err))
		return predictor.New(nil, append(opts, predictor.WithInitError(err))...)
	}
	log.Info("address model loaded", zap.String("backend", cfg.Classifier.Backend))
	return predictor.New(clf, opts...)
}
