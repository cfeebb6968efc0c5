package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/address-predictor/internal/address"
	"github.com/address-predictor/internal/predictor"
	"github.com/address-predictor/internal/vocab"
	"github.com/address-predictor/internal/web/middleware"
)

// MaxBatchSize caps the number of addresses in one batch request.
const MaxBatchSize = 1000

// Request body limits in bytes.
const (
	MaxBodyBytes      = 64 << 10
	MaxBatchBodyBytes = 4 << 20
)

// PredictHandler serves address predictions.
type PredictHandler struct {
	Predictor *predictor.Predictor
	Log       *zap.Logger
}

// PredictRequest is the body of POST /api/predict
type PredictRequest struct {
	Text string `json:"text"`
}

// BatchRequest is the body of POST /api/predict/batch
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// BatchItem is one result of a batch request
type BatchItem struct {
	Text    string           `json:"text"`
	Address *address.Address `json:"address,omitempty"`
	Error   *ErrorResponse   `json:"error,omitempty"`
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Predict parses one address
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if !decodeBody(w, r, MaxBodyBytes, &req) {
		return
	}

	addr, err := h.Predictor.Predict(r.Context(), req.Text)
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("predict failed", zap.Error(err), zap.String("request_id", middleware.RequestIDFrom(r.Context())))
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, addr)
}

// PredictBatch parses several addresses; each item carries its own error.
func (h *PredictHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, MaxBatchBodyBytes, &req) {
		return
	}
	if len(req.Texts) > MaxBatchSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Code: "batch_too_large", Message: "Too many addresses in one request"})
		return
	}
	if err := h.Predictor.Ready(); err != nil {
		status, body := errorResponse(err)
		writeJSON(w, status, body)
		return
	}

	results := h.Predictor.PredictBatch(r.Context(), req.Texts)
	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i].Text = res.Text
		if res.Err != nil {
			_, body := errorResponse(res.Err)
			items[i].Error = &body
			continue
		}
		addr := res.Address
		items[i].Address = &addr
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// Health reports whether the model is loaded
func (h *PredictHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Predictor.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse maps pipeline errors onto HTTP statuses.
func errorResponse(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, vocab.ErrEncoding):
		return http.StatusUnprocessableEntity, ErrorResponse{Code: "encoding_error", Message: err.Error()}
	case errors.Is(err, predictor.ErrModelUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Code: "model_unavailable", Message: err.Error()}
	case errors.Is(err, predictor.ErrClassification):
		return http.StatusBadGateway, ErrorResponse{Code: "classification_error", Message: "Address model request failed"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: "Internal error"}
	}
}

// decodeBody reads at most limit bytes of JSON into v. It writes the error
// response and returns false when the body is too large or malformed.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Code: "body_too_large", Message: "Request body too large"})
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "invalid_json", Message: "Invalid JSON"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
