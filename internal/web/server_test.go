package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/classifier"
	"github.com/address-predictor/internal/config"
	"github.com/address-predictor/internal/label"
	"github.com/address-predictor/internal/metrics"
	"github.com/address-predictor/internal/predictor"
	"github.com/address-predictor/internal/web/handlers"
)

// digitsAsPostcode labels digits as postcode and everything else as city.
var digitsAsPostcode = classifier.Func(func(ctx context.Context, codes []int) ([][]float32, error) {
	dists := make([][]float32, len(codes))
	for i, c := range codes {
		switch {
		case c < 10:
			dists[i] = classifier.OneHot(label.Postcode)
		case c == 47: // ','
			dists[i] = classifier.OneHot(label.Blank)
		default:
			dists[i] = classifier.OneHot(label.City)
		}
	}
	return dists, nil
})

func newTestServer(clf classifier.Classifier, opts ...predictor.Option) *Server {
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, predictor.New(clf, opts...), metrics.New(), nil)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPredictEndpoint(t *testing.T) {
	s := newTestServer(digitsAsPostcode)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantAddr   *address.Address
		wantCode   string
	}{
		{
			name:       "valid address",
			body:       `{"text":"Alton,3311"}`,
			wantStatus: http.StatusOK,
			wantAddr:   &address.Address{City: "Alton", Postcode: "3311"},
		},
		{
			name:       "empty text",
			body:       `{"text":""}`,
			wantStatus: http.StatusOK,
			wantAddr:   &address.Address{},
		},
		{
			name:       "character outside the vocabulary",
			body:       `{"text":"Zürich"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "encoding_error",
		},
		{
			name:       "invalid json",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/predict", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			if tt.wantAddr != nil {
				var got address.Address
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, *tt.wantAddr, got)
			} else {
				var got handlers.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, tt.wantCode, got.Code)
			}
		})
	}
}

func TestPredictEndpointModelUnavailable(t *testing.T) {
	s := newTestServer(nil, predictor.WithInitError(errors.New("connection refused")))

	w := do(t, s, http.MethodPost, "/api/predict", `{"text":"Alton"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "model_unavailable")

	w = do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = do(t, s, http.MethodPost, "/api/predict/batch", `{"texts":["Alton"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPredictEndpointClassifierFailure(t *testing.T) {
	broken := classifier.Func(func(ctx context.Context, codes []int) ([][]float32, error) {
		return nil, errors.New("status 500")
	})
	s := newTestServer(broken)

	w := do(t, s, http.MethodPost, "/api/predict", `{"text":"Alton"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "classification_error")
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(digitsAsPostcode, predictor.WithWorkers(2))

	w := do(t, s, http.MethodPost, "/api/predict/batch", `{"texts":["Alton,3311","Zürich","Liss,3345"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []handlers.BatchItem `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 3)

	assert.Equal(t, "Alton", body.Results[0].Address.City)
	assert.Nil(t, body.Results[0].Error)
	assert.Nil(t, body.Results[1].Address)
	assert.Equal(t, "encoding_error", body.Results[1].Error.Code)
	assert.Equal(t, "3345", body.Results[2].Address.Postcode)
}

func TestBatchEndpointTooLarge(t *testing.T) {
	s := newTestServer(digitsAsPostcode)
	texts := make([]string, handlers.MaxBatchSize+1)
	body, err := json.Marshal(map[string][]string{"texts": texts})
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/predict/batch", string(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestBodyTooLarge(t *testing.T) {
	s := newTestServer(digitsAsPostcode)

	tests := []struct {
		name string
		path string
		body string
	}{
		{
			name: "single prediction",
			path: "/api/predict",
			body: `{"text":"` + strings.Repeat("a", handlers.MaxBodyBytes) + `"}`,
		},
		{
			name: "batch within the item limit",
			path: "/api/predict/batch",
			body: `{"texts":["` + strings.Repeat("a", handlers.MaxBatchBodyBytes) + `"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			var got handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, "body_too_large", got.Code)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(digitsAsPostcode, predictor.WithMetrics(nil))

	w := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(digitsAsPostcode)

	w := do(t, s, http.MethodGet, "/api/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
