package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/store"
	"medibook/backend/internal/verify"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError translates service errors into HTTP status codes. Unexpected
// errors are logged and hidden behind a generic 500.
func (s *Server) respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *booking.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		respondJSON(w, http.StatusBadRequest, errorBody{Error: vErr.Error()})
	case errors.Is(err, booking.ErrPastTime):
		log.Warn("invalid request", slog.Any("err", err))
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, verify.ErrCodeInvalid):
		log.Warn("verification rejected", slog.Any("err", err))
		respondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		log.Warn("forbidden", slog.Any("err", err))
		respondJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.Is(err, store.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, store.ErrConflict):
		log.Info("slot conflict")
		respondJSON(w, http.StatusConflict, errorBody{Error: "That slot is no longer available. Pick a different time."})
	default:
		log.Error("request failed", slog.Any("err", err))
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
