package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/castkit/uploadd/pkg/guard"
)

// maxRequestBody bounds request bodies. A complete request with the full
// ten thousand parts stays well under this.
const maxRequestBody = 4 << 20

type errorEnvelope struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (handler *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		handler.logger.Error().Err(err).Msg("ResponseWriteError")
	}
}

// writeError resolves err into an Error and emits the JSON error envelope.
func (handler *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	detailedErr := resolveError(err)

	handler.Metrics.ErrorsTotal.WithLabelValues(detailedErr.ErrorCode).Inc()
	handler.logger.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("code", detailedErr.ErrorCode).
		Int("status", detailedErr.StatusCode).
		Str("error", detailedErr.Message).
		Msg("ResponseError")

	handler.writeJSON(w, detailedErr.StatusCode, errorEnvelope{
		OK:      false,
		Code:    detailedErr.ErrorCode,
		Message: detailedErr.Message,
	})
}

// resolveError maps guard failures onto their response errors and wraps
// everything unrecognized as an upstream failure.
func resolveError(err error) Error {
	var detailedErr Error
	if errors.As(err, &detailedErr) {
		return detailedErr
	}

	switch {
	case errors.Is(err, guard.ErrMalformedKey):
		return ErrInvalidKeyFormat
	case errors.Is(err, guard.ErrNotOwned):
		return ErrInvalidChannel
	default:
		return newUpstreamError(err)
	}
}

// decodeJSON parses the request body into dst. Numbers are kept as
// json.Number so that handlers can reject non-integer values themselves.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidJSONBody
	}
	return nil
}
