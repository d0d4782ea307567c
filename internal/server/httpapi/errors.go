package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/uptcauth/internal/common"
)

const (
	msgInvalidBody        = "invalid request body"
	msgValidation         = "validation error"
	msgAlreadyRegistered  = "email already registered"
	msgCodeInvalid        = "invalid or expired code"
	msgInvalidRegToken    = "invalid registration token"
	msgInvalidCredentials = "incorrect email or password"
	msgNotAuthenticated   = "not authenticated"
	msgUserNotFound       = "user not found"
	msgInternal           = "internal server error"
)

// apiError is an error the handler has already classified.
type apiError struct {
	Status int
	Detail string
	cause  error
}

func (e *apiError) Error() string { return e.Detail }
func (e *apiError) Unwrap() error { return e.cause }

func badRequest(detail string, cause error) error {
	return &apiError{Status: http.StatusBadRequest, Detail: detail, cause: cause}
}

type errorBody struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// classify maps service errors to a status and public body. Anything it does
// not recognise is a 500 with a generic detail.
func classify(err error) (int, errorBody) {
	var (
		apiErr *apiError
		valErr *common.ValidationError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status, errorBody{Detail: apiErr.Detail}
	case errors.As(err, &valErr):
		return http.StatusBadRequest, errorBody{Detail: msgValidation, Errors: valErr.Fields}
	case errors.Is(err, common.ErrEmailAlreadyRegistered):
		return http.StatusBadRequest, errorBody{Detail: msgAlreadyRegistered}
	case errors.Is(err, common.ErrCodeInvalidOrExpired):
		return http.StatusBadRequest, errorBody{Detail: msgCodeInvalid}
	case errors.Is(err, common.ErrInvalidRegistrationToken):
		return http.StatusBadRequest, errorBody{Detail: msgInvalidRegToken}
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Detail: msgInvalidCredentials}
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, errorBody{Detail: msgNotAuthenticated}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorBody{Detail: msgUserNotFound}
	default:
		return http.StatusInternalServerError, errorBody{Detail: msgInternal}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type appHandler func(w http.ResponseWriter, r *http.Request) error

// wrap turns an appHandler into an http.HandlerFunc that renders returned
// errors as {"detail": ...} and logs them.
func (h *Handler) wrap(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		status, body := classify(err)
		ctx := r.Context()
		if status >= http.StatusInternalServerError {
			h.log.Error(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		} else {
			h.log.Debug(ctx, "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		}

		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(w, status, body)
	}
}
