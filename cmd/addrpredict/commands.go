package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/db"
	"github.com/address-predictor/internal/evaluate"
	"github.com/address-predictor/internal/metrics"
	"github.com/address-predictor/internal/predictor"
	"github.com/address-predictor/internal/samples"
	"github.com/address-predictor/internal/web"
)

func createPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict [text]",
		Short: "Parse one address",
		Long:  `Parse one address given as an argument, or read it from stdin when the argument is "-" or missing`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			p := buildPredictor(cmd.Context(), nil)
			addr, err := p.Predict(cmd.Context(), text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(addr)
		},
	}
}

func readText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

type batchLine struct {
	Text    string           `json:"text"`
	Address *address.Address `json:"address,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func createBatchCmd() *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Parse one address per line",
		Long:  `Parse one address per input line and write one JSON object per line to stdout`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			p := buildPredictor(cmd.Context(), nil)
			if err := p.Ready(); err != nil {
				return err
			}

			processed, failed, err := runBatch(cmd.Context(), p, in, cmd.OutOrStdout(), chunkSize)
			log.Info("batch complete", zap.Int("processed", processed), zap.Int("failed", failed))
			return err
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 500, "Addresses read per chunk before results are written out (concurrency is set by PREDICT_WORKERS)")

	return cmd
}

// runBatch streams lines from in through p in chunks, keeping input order.
func runBatch(ctx context.Context, p *predictor.Predictor, in io.Reader, out io.Writer, chunkSize int) (processed, failed int, err error) {
	if chunkSize < 1 {
		chunkSize = 1
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	w := bufio.NewWriter(out)
	defer w.Flush()
	enc := json.NewEncoder(w)

	flush := func(texts []string) error {
		for _, res := range p.PredictBatch(ctx, texts) {
			line := batchLine{Text: res.Text}
			if res.Err != nil {
				line.Error = res.Err.Error()
				failed++
			} else {
				addr := res.Address
				line.Address = &addr
			}
			processed++
			if err := enc.Encode(line); err != nil {
				return err
			}
		}
		return w.Flush()
	}

	chunk := make([]string, 0, chunkSize)
	for scanner.Scan() {
		chunk = append(chunk, scanner.Text())
		if len(chunk) == chunkSize {
			if err := flush(chunk); err != nil {
				return processed, failed, err
			}
			chunk = chunk[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return processed, failed, fmt.Errorf("read input: %w", err)
	}
	if len(chunk) > 0 {
		if err := flush(chunk); err != nil {
			return processed, failed, err
		}
	}
	return processed, failed, nil
}

func createEvaluateCmd() *cobra.Command {
	var (
		fromDB     bool
		limit      int
		seed       int64
		shuffle    bool
		separators []string
		asJSON     bool
		minAcc     float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Measure field accuracy on labelled addresses",
		Long:  `Compose free text from labelled addresses (building, street, then city, state and postcode in shuffled order), predict it and report per-field accuracy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var source samples.Source = samples.Reference
			if fromDB {
				conn, err := db.NewConnection(ctx, cfg.Database)
				if err != nil {
					return err
				}
				defer conn.Close()

				store, err := samples.NewStore(conn.DB, cfg.Database.Table)
				if err != nil {
					return err
				}
				source = store
			}

			list, err := source.Samples(ctx, limit)
			if err != nil {
				return err
			}

			p := buildPredictor(ctx, nil)
			if err := p.Ready(); err != nil {
				return err
			}

			e := evaluate.New(p, evaluate.Options{Separators: separators, Shuffle: shuffle, Seed: seed})
			report, err := e.Run(ctx, list)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				report.Print(cmd.OutOrStdout())
			}

			if report.Accuracy() < minAcc {
				return fmt.Errorf("accuracy %.3f below required %.3f", report.Accuracy(), minAcc)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromDB, "from-db", false, "Read samples from the configured Postgres table instead of the built-in reference set")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum samples to evaluate (0 = all)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for field order and separator choice")
	cmd.Flags().BoolVar(&shuffle, "shuffle", true, "Shuffle city, state and postcode")
	cmd.Flags().StringSliceVar(&separators, "sep", nil, `Field separators to draw from (default ",", " ", "\n")`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the report as JSON")
	cmd.Flags().Float64Var(&minAcc, "min-accuracy", 0, "Fail when whole-address accuracy is below this share")

	return cmd
}

func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			p := buildPredictor(ctx, m)

			return web.NewServer(cfg.Server, p, m, log).Start(ctx)
		},
	}
}

func createPingCmd() *cobra.Command {
	var checkDB bool

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the address model (and optionally the sample database) is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadClassifier(cmd.Context()); err != nil {
				return fmt.Errorf("address model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Address model (%s) available\n", cfg.Classifier.Backend)

			if checkDB {
				conn, err := db.NewConnection(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer conn.Close()

				store, err := samples.NewStore(conn.DB, cfg.Database.Table)
				if err != nil {
					return err
				}
				count, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Labelled samples: %d\n", count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkDB, "db", false, "Also check the sample database")

	return cmd
}
