// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/service"
)

// errorBody is the stable failure shape: a machine error kind plus a
// human-readable message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP. Anything unmapped is an
// internal error with a generic message.
func writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *appErrors.ErrNotFound
		conflict     *appErrors.ErrConflict
		insufficient *appErrors.ErrInsufficientBalance
		unavailable  *appErrors.ErrStoreUnavailable
		validation   validator.ValidationErrors
	)

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: err.Error()})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "insufficient_balance", Message: err.Error()})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store_unavailable", Message: err.Error()})
	case errors.As(err, &validation),
		errors.Is(err, service.ErrNoRecipients),
		errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrInvalidAccountName):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "Unable to process request. Please try again."})
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
