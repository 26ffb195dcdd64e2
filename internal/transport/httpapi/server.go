// Package httpapi exposes the booking engine over a JSON HTTP API. All
// routes except contact verification sit behind bearer-token auth; the
// transport extracts the caller identity and leaves every permission
// decision to the service layer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/notify"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/store"
	"medibook/backend/internal/verify"
)

type BookingService interface {
	Create(ctx context.Context, caller booking.Caller, in booking.CreateInput) (domain.Appointment, error)
	Decide(ctx context.Context, caller booking.Caller, id uuid.UUID, decision booking.Decision) (domain.Appointment, error)
	Cancel(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error)
	UpdateNotes(ctx context.Context, caller booking.Caller, id uuid.UUID, in booking.NotesInput) (domain.Appointment, error)
	Get(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error)
	History(ctx context.Context, caller booking.Caller, in booking.HistoryInput) ([]domain.Appointment, store.ListPage, error)
	ProviderSchedule(ctx context.Context, caller booking.Caller, in booking.ScheduleInput) (booking.Schedule, error)
	Availability(ctx context.Context, providerID uuid.UUID, date string) (booking.DayAvailability, error)
	DeclareWindow(ctx context.Context, caller booking.Caller, in booking.DeclareInput) ([]domain.AvailabilitySlot, error)
	ListOwnAvailability(ctx context.Context, caller booking.Caller, date string) ([]domain.AvailabilitySlot, error)
	ToggleAvailability(ctx context.Context, caller booking.Caller, slotID uuid.UUID, available bool) (domain.AvailabilitySlot, error)
	DeleteAvailability(ctx context.Context, caller booking.Caller, slotID uuid.UUID) error
}

type ReminderRunner interface {
	Sweep(ctx context.Context) (int, error)
}

type Server struct {
	svc       BookingService
	reminders ReminderRunner
	codes     verify.Store
	notifier  notify.Notifier
	codeTTL   time.Duration
	auth      *Authenticator
	log       *slog.Logger
}

func NewServer(svc BookingService, reminders ReminderRunner, codes verify.Store, notifier notify.Notifier, codeTTL time.Duration, auth *Authenticator, log *slog.Logger) *Server {
	if codeTTL <= 0 {
		codeTTL = verify.DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:       svc,
		reminders: reminders,
		codes:     codes,
		notifier:  notifier,
		codeTTL:   codeTTL,
		auth:      auth,
		log:       log.With(slog.String("component", "httpapi")),
	}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	// Contact verification happens before a caller has a token.
	api.HandleFunc("/verification/request", s.handleVerificationRequest).Methods(http.MethodPost)
	api.HandleFunc("/verification/confirm", s.handleVerificationConfirm).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.auth.Middleware)

	// Literal appointment paths before the {id} pattern.
	authed.HandleFunc("/appointments/history", s.handleHistory).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/schedule", s.handleSchedule).Methods(http.MethodGet)
	authed.HandleFunc("/appointments", s.handleCreateAppointment).Methods(http.MethodPost)
	authed.HandleFunc("/appointments/{id}", s.handleGetAppointment).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}", s.handleUpdateNotes).Methods(http.MethodPut)
	authed.HandleFunc("/appointments/{id}/decision", s.handleDecide).Methods(http.MethodPut)
	authed.HandleFunc("/appointments/{id}/cancel", s.handleCancel).Methods(http.MethodPut)

	authed.HandleFunc("/providers/{providerId}/availability", s.handleProviderAvailability).Methods(http.MethodGet)

	authed.HandleFunc("/availability", s.handleDeclareAvailability).Methods(http.MethodPost)
	authed.HandleFunc("/availability", s.handleListAvailability).Methods(http.MethodGet)
	authed.HandleFunc("/availability/{id}", s.handleToggleAvailability).Methods(http.MethodPut)
	authed.HandleFunc("/availability/{id}", s.handleDeleteAvailability).Methods(http.MethodDelete)

	authed.HandleFunc("/reminders/run", s.handleRunReminders).Methods(http.MethodPost)

	return router
}

func caller(ident Identity) booking.Caller {
	return booking.Caller{ID: ident.ID, Role: ident.Role}
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "CreateAppointment"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ProviderID      uuid.UUID `json:"provider_id"`
		Date            string    `json:"date"`
		StartTime       string    `json:"start_time"`
		DurationMinutes int       `json:"duration_minutes"`
		Reason          string    `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	appt, err := s.svc.Create(r.Context(), caller(ident), booking.CreateInput{
		ProviderID:      req.ProviderID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
	})
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", appt.ProviderID.String()),
		slog.String("date", appt.Date),
		slog.String("start_time", appt.StartTime),
	)
	respondJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Decide"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid appointment id"})
		return
	}

	var req struct {
		Decision string `json:"decision"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	appt, err := s.svc.Decide(r.Context(), caller(ident), id, booking.Decision(req.Decision))
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("appointment decided",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	respondJSON(w, http.StatusOK, appt)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Cancel"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid appointment id"})
		return
	}

	appt, err := s.svc.Cancel(r.Context(), caller(ident), id)
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("appointment cancelled", slog.String("appointment_id", appt.ID.String()))
	respondJSON(w, http.StatusOK, appt)
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "UpdateNotes"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid appointment id"})
		return
	}

	var req struct {
		Notes        *string `json:"notes"`
		OutcomeNotes *string `json:"outcome_notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	appt, err := s.svc.UpdateNotes(r.Context(), caller(ident), id, booking.NotesInput{
		Notes:        req.Notes,
		OutcomeNotes: req.OutcomeNotes,
	})
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "GetAppointment"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid appointment id"})
		return
	}

	appt, err := s.svc.Get(r.Context(), caller(ident), id)
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

type listResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
	Page         store.ListPage       `json:"pagination"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "History"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	rows, pageInfo, err := s.svc.History(r.Context(), caller(ident), booking.HistoryInput{
		Status:   domain.AppointmentStatus(q.Get("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	if rows == nil {
		rows = []domain.Appointment{}
	}
	respondJSON(w, http.StatusOK, listResponse{Appointments: rows, Page: pageInfo})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "Schedule"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	sched, err := s.svc.ProviderSchedule(r.Context(), caller(ident), booking.ScheduleInput{
		Date:     q.Get("date"),
		Status:   domain.AppointmentStatus(q.Get("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	if sched.Appointments == nil {
		sched.Appointments = []domain.Appointment{}
	}
	respondJSON(w, http.StatusOK, sched)
}

func (s *Server) handleProviderAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ProviderAvailability"))

	if _, err := identityFromRequest(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	providerID, ok := pathID(r, "providerId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid provider id"})
		return
	}

	day, err := s.svc.Availability(r.Context(), providerID, r.URL.Query().Get("date"))
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	respondJSON(w, http.StatusOK, day)
}

func (s *Server) handleDeclareAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "DeclareAvailability"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Date            string `json:"date"`
		StartTime       string `json:"start_time"`
		EndTime         string `json:"end_time"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	slots, err := s.svc.DeclareWindow(r.Context(), caller(ident), booking.DeclareInput{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("availability declared",
		slog.String("date", req.Date),
		slog.Int("slots", len(slots)),
	)
	respondJSON(w, http.StatusCreated, map[string]any{"slots": slots})
}

func (s *Server) handleListAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ListAvailability"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	slots, err := s.svc.ListOwnAvailability(r.Context(), caller(ident), r.URL.Query().Get("date"))
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	if slots == nil {
		slots = []domain.AvailabilitySlot{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *Server) handleToggleAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "ToggleAvailability"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid slot id"})
		return
	}

	var req struct {
		Available *bool `json:"available"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Available == nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	slot, err := s.svc.ToggleAvailability(r.Context(), caller(ident), id, *req.Available)
	if err != nil {
		s.respondError(w, log, err)
		return
	}
	respondJSON(w, http.StatusOK, slot)
}

func (s *Server) handleDeleteAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "DeleteAvailability"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid slot id"})
		return
	}

	if err := s.svc.DeleteAvailability(r.Context(), caller(ident), id); err != nil {
		s.respondError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunReminders triggers the reminder sweep out of schedule. Admin only.
func (s *Server) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	log := s.log.With(slog.String("handler", "RunReminders"))

	ident, err := identityFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if ident.Role != domain.RoleAdmin {
		s.respondError(w, log, booking.ErrForbidden)
		return
	}

	sent, err := s.reminders.Sweep(r.Context())
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Info("manual reminder sweep", slog.Int("sent", sent))
	respondJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
