package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string            `json:"error"`
	Range *domain.DateRange `json:"range,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// isJSON reports whether the request body is JSON. Anything else is
// treated as a submitted form.
func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

// wantsJSON reports whether the client expects a JSON reply rather than a
// redirect.
func wantsJSON(r *http.Request) bool {
	return isJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// decodeCredentials reads a login/signup submission.
func decodeCredentials(r *http.Request) (*domain.Credentials, error) {
	var req domain.Credentials
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Email = r.PostForm.Get("email")
	req.Password = r.PostForm.Get("password")
	return &req, nil
}

// decodeRecordInput reads an entry form submission. JSON amounts may be
// numbers or strings.
func decodeRecordInput(r *http.Request) (*domain.RecordInput, error) {
	if isJSON(r) {
		var body struct {
			Date        string          `json:"date"`
			Amount      json.RawMessage `json:"amount"`
			Description string          `json:"description"`
			Category    string          `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		amount := strings.Trim(string(body.Amount), `"`)
		if amount == "null" {
			amount = ""
		}
		return &domain.RecordInput{
			Date:        body.Date,
			Amount:      amount,
			Description: body.Description,
			Category:    body.Category,
		}, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return &domain.RecordInput{
		Date:        r.PostForm.Get("date"),
		Amount:      r.PostForm.Get("amount"),
		Description: r.PostForm.Get("description"),
		Category:    r.PostForm.Get("category"),
	}, nil
}

// parseDateParam reads an optional YYYY-MM-DD query parameter.
func parseDateParam(r *http.Request, name string) (*domain.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil, &domain.ErrValidation{Field: name, Message: err.Error()}
	}
	return &d, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var circuitOpen *domain.ErrCircuitOpen
	var invalidRange *domain.ErrInvalidRange
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &invalidRange):
		logger.Debug("invalid range", zap.String("kept", invalidRange.Previous.String()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Range: &invalidRange.Previous})
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &external):
		logger.Error("backend failure", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend unavailable")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
