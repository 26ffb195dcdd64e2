package httpapi

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"medibook/backend/internal/verify"
)

// handleVerificationRequest issues a fresh code to the address, replacing
// any previous one. The response never reveals whether the address is known.
func (s *Server) handleVerificationRequest(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "VerificationRequest"))

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid email address"})
		return
	}

	code, err := verify.NewCode()
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	if err := s.codes.Put(r.Context(), email, code, s.codeTTL); err != nil {
		s.respondError(w, log, err)
		return
	}

	if err := s.notifier.Send(r.Context(), email,
		"Your verification code",
		"Your verification code is "+code+". It expires in 10 minutes."); err != nil {
		log.Warn("verification code delivery failed", slog.Any("err", err))
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// handleVerificationConfirm consumes the code. A wrong guess leaves the code
// valid; a correct one removes it so it cannot be replayed.
func (s *Server) handleVerificationConfirm(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "VerificationConfirm"))

	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Code == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "email and code are required"})
		return
	}

	if err := s.codes.Consume(r.Context(), email, req.Code); err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("contact verified", slog.String("email", email))
	respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
