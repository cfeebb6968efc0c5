// Package serving provides a Classifier that calls the exported address model
// through a TensorFlow Serving compatible REST endpoint. The model file itself
// is loaded by the serving sidecar; this package only speaks its protocol.
package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config points the client at one model on the sidecar.
type Config struct {
	URL     string        // e.g. http://address-model:8501
	Model   string        // model name, e.g. "address"
	Version string        // optional pinned model version
	Timeout time.Duration // per-request timeout
}

// Client calls the sidecar's :predict endpoint. It is safe for concurrent use.
type Client struct {
	predictURL string
	statusURL  string
	http       *http.Client
	log        *zap.Logger
}

// New creates a Client without checking that the model is being served.
// Most callers want Load.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	base := strings.TrimRight(cfg.URL, "/") + "/v1/models/" + cfg.Model
	statusURL := base
	if cfg.Version != "" {
		base += "/versions/" + cfg.Version
		statusURL = base
	}

	return &Client{
		predictURL: base + ":predict",
		statusURL:  statusURL,
		http:       &http.Client{Timeout: cfg.Timeout},
		log:        log.Named("serving"),
	}
}

// Load creates a Client and confirms that the sidecar reports the model as
// available. Any failure is returned to the caller; there is no fallback.
func Load(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("serving: classifier URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("serving: model name is required")
	}

	c := New(cfg, log)
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

type statusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
		Status  struct {
			ErrorCode    string `json:"error_code"`
			ErrorMessage string `json:"error_message"`
		} `json:"status"`
	} `json:"model_version_status"`
}

// Ready returns nil when at least one version of the model is AVAILABLE.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return fmt.Errorf("serving: status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("serving: model status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("serving: model status: %s", readError(resp))
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("serving: decode model status: %w", err)
	}

	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			c.log.Info("model available", zap.String("url", c.statusURL), zap.String("version", v.Version))
			return nil
		}
	}
	return fmt.Errorf("serving: no AVAILABLE version at %s", c.statusURL)
}

type predictRequest struct {
	Instances [][]int `json:"instances"`
}

type predictResponse struct {
	Predictions [][][]float32 `json:"predictions"`
}

// Classify sends one encoded address and returns its per-character scores.
func (c *Client) Classify(ctx context.Context, codes []int) ([][]float32, error) {
	if len(codes) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(predictRequest{Instances: [][]int{codes}})
	if err != nil {
		return nil, fmt.Errorf("serving: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serving: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serving: predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serving: predict: %s", readError(resp))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("serving: decode: %w", err)
	}
	if len(result.Predictions) != 1 {
		return nil, fmt.Errorf("serving: got %d predictions for 1 instance", len(result.Predictions))
	}

	c.log.Debug("predict", zap.Int("chars", len(codes)), zap.Duration("took", time.Since(start)))
	return result.Predictions[0], nil
}

// readError extracts the sidecar's {"error": "..."} message when present.
func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
