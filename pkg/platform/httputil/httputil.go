package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "shieldcare/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeUnavailable:        http.StatusServiceUnavailable,
	dErrors.CodeCanceled:           http.StatusConflict,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInvariantViolation: http.StatusInternalServerError,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps a domain error to an HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": code, "error_description": message}. Server
// side failures omit the description so internals do not leak.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := map[string]string{"error": string(dErrors.CodeOf(err))}
	if status < http.StatusInternalServerError {
		body["error_description"] = dErrors.Message(err)
	}
	WriteJSON(w, status, body)
}

// DecodeJSON decodes a bounded request body into T. An empty body yields the
// zero value when allowEmpty is set.
func DecodeJSON[T any](r *http.Request, allowEmpty bool) (T, error) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return v, nil
		}
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return v, nil
}

// Validatable is implemented by request bodies that normalize and check
// themselves after decoding.
type Validatable[T any] interface {
	*T
	Validate() error
}

// DecodeAndPrepare decodes the body into T and validates it, writing the error
// response on failure. The boolean reports whether the handler should
// continue.
func DecodeAndPrepare[T any, PT Validatable[T]](w http.ResponseWriter, r *http.Request, logger *slog.Logger, allowEmpty bool) (*T, bool) {
	ctx := r.Context()
	v, err := DecodeJSON[T](r, allowEmpty)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request body", "error", err)
		WriteError(w, err)
		return nil, false
	}
	req := PT(&v)
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request", "error", err)
		WriteError(w, err)
		return nil, false
	}
	return &v, true
}
