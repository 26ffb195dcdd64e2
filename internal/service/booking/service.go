package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"medibook/backend/internal/clock"
	"medibook/backend/internal/domain"
	"medibook/backend/internal/notify"
	"medibook/backend/internal/store"
)

// Caller is the authenticated identity an operation runs as. The transport
// layer extracts it from the request; the service trusts it.
type Caller struct {
	ID   uuid.UUID
	Role domain.Role
}

// Grid describes the fallback slot grid used for dates with no declared
// availability.
type Grid struct {
	DayStart    string
	DayEnd      string
	SlotMinutes int
}

func DefaultGrid() Grid {
	return Grid{
		DayStart:    domain.DefaultDayStart,
		DayEnd:      domain.DefaultDayEnd,
		SlotMinutes: domain.DefaultSlotMinutes,
	}
}

type Service struct {
	appts    store.AppointmentStore
	slots    store.AvailabilityStore
	users    store.UserDirectory
	notifier notify.Notifier
	clock    clock.Clock
	grid     Grid
	log      *slog.Logger
}

func NewService(
	appts store.AppointmentStore,
	slots store.AvailabilityStore,
	users store.UserDirectory,
	notifier notify.Notifier,
	clk clock.Clock,
	grid Grid,
	log *slog.Logger,
) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if grid.SlotMinutes <= 0 {
		grid = DefaultGrid()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		appts:    appts,
		slots:    slots,
		users:    users,
		notifier: notifier,
		clock:    clk,
		grid:     grid,
		log:      log.With(slog.String("component", "booking")),
	}
}

type CreateInput struct {
	ProviderID      uuid.UUID
	Date            string
	StartTime       string
	DurationMinutes int
	Reason          string
}

// Create books a slot for the caller with the given provider. The slot claim
// is a single atomic insert; a losing racer gets store.ErrConflict.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (domain.Appointment, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return domain.Appointment{}, validationError("reason is required")
	}
	if caller.ID == uuid.Nil {
		return domain.Appointment{}, validationError("caller is required")
	}
	if in.ProviderID == uuid.Nil {
		return domain.Appointment{}, validationError("provider_id is required")
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = domain.DefaultDurationMinutes
	}
	if duration < 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}

	startsAt, err := domain.CombineDateTime(in.Date, in.StartTime)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}
	if !startsAt.After(s.clock.Now()) {
		return domain.Appointment{}, ErrPastTime
	}

	provider, err := s.users.Resolve(ctx, in.ProviderID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if provider.Role != domain.RoleProvider {
		return domain.Appointment{}, store.ErrNotFound
	}

	appt, err := s.appts.Create(ctx, domain.Appointment{
		ClientID:        caller.ID,
		ProviderID:      in.ProviderID,
		Date:            in.Date,
		StartTime:       in.StartTime,
		DurationMinutes: duration,
		Status:          domain.AppointmentRequested,
		Reason:          reason,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.send(ctx, provider.Email,
		"New appointment request",
		fmt.Sprintf("You have a new appointment request for %s at %s. Reason: %s",
			appt.Date, appt.StartTime, appt.Reason))

	return appt, nil
}

type Decision string

const (
	DecisionConfirm  Decision = "confirm"
	DecisionReject   Decision = "reject"
	DecisionComplete Decision = "complete"
)

// Decide lets the named provider confirm or reject a requested appointment,
// or mark a confirmed one completed.
func (s *Service) Decide(ctx context.Context, caller Caller, id uuid.UUID, decision Decision) (domain.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if caller.ID != appt.ProviderID {
		return domain.Appointment{}, ErrForbidden
	}

	var (
		from    []domain.AppointmentStatus
		to      domain.AppointmentStatus
		outcome string
	)
	switch decision {
	case DecisionConfirm:
		from, to = []domain.AppointmentStatus{domain.AppointmentRequested}, domain.AppointmentConfirmed
		outcome = "confirmed"
	case DecisionReject:
		from, to = []domain.AppointmentStatus{domain.AppointmentRequested}, domain.AppointmentCancelled
		outcome = "declined"
	case DecisionComplete:
		from, to = []domain.AppointmentStatus{domain.AppointmentConfirmed}, domain.AppointmentCompleted
		outcome = "marked completed"
	default:
		return domain.Appointment{}, validationError("decision must be confirm, reject or complete")
	}

	updated, err := s.appts.SetStatus(ctx, id, from, to)
	if err != nil {
		return domain.Appointment{}, err
	}

	if client, resolveErr := s.users.Resolve(ctx, updated.ClientID); resolveErr == nil {
		s.send(ctx, client.Email,
			fmt.Sprintf("Appointment %s", outcome),
			fmt.Sprintf("Your appointment on %s at %s has been %s.",
				updated.Date, updated.StartTime, outcome))
	}

	return updated, nil
}

// Cancel lets either named party cancel a future appointment.
func (s *Service) Cancel(ctx context.Context, caller Caller, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if caller.ID != appt.ClientID && caller.ID != appt.ProviderID {
		return domain.Appointment{}, ErrForbidden
	}

	startsAt, err := appt.StartsAt()
	if err != nil {
		return domain.Appointment{}, err
	}
	if !startsAt.After(s.clock.Now()) {
		return domain.Appointment{}, ErrPastTime
	}

	updated, err := s.appts.SetStatus(ctx, id,
		domain.LiveStatuses(), domain.AppointmentCancelled)
	if err != nil {
		return domain.Appointment{}, err
	}

	// Tell the other side.
	counterpartID := updated.ProviderID
	if caller.ID == updated.ProviderID {
		counterpartID = updated.ClientID
	}
	if counterpart, resolveErr := s.users.Resolve(ctx, counterpartID); resolveErr == nil {
		s.send(ctx, counterpart.Email,
			"Appointment cancelled",
			fmt.Sprintf("The appointment on %s at %s has been cancelled.",
				updated.Date, updated.StartTime))
	}

	return updated, nil
}

type NotesInput struct {
	Notes        *string
	OutcomeNotes *string
}

// UpdateNotes lets the client annotate the appointment and the provider
// record outcome notes. No status change; closed appointments are immutable.
func (s *Service) UpdateNotes(ctx context.Context, caller Caller, id uuid.UUID, in NotesInput) (domain.Appointment, error) {
	if in.Notes == nil && in.OutcomeNotes == nil {
		return domain.Appointment{}, validationError("nothing to update")
	}

	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if caller.ID != appt.ClientID && caller.ID != appt.ProviderID {
		return domain.Appointment{}, ErrForbidden
	}
	if appt.Status.Terminal() {
		return domain.Appointment{}, validationError("appointment is closed")
	}
	if in.Notes != nil && caller.ID != appt.ClientID {
		return domain.Appointment{}, ErrForbidden
	}
	if in.OutcomeNotes != nil && caller.ID != appt.ProviderID {
		return domain.Appointment{}, ErrForbidden
	}

	return s.appts.UpdateNotes(ctx, id, store.NotesUpdate{
		Notes:        in.Notes,
		OutcomeNotes: in.OutcomeNotes,
	})
}

// Get returns the appointment to its named parties or an admin.
func (s *Service) Get(ctx context.Context, caller Caller, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if caller.ID != appt.ClientID && caller.ID != appt.ProviderID && caller.Role != domain.RoleAdmin {
		return domain.Appointment{}, ErrForbidden
	}
	return appt, nil
}

type HistoryInput struct {
	Status   domain.AppointmentStatus
	Page     int
	PageSize int
}

// History lists the caller's own bookings, newest first. Admins see all.
func (s *Service) History(ctx context.Context, caller Caller, in HistoryInput) ([]domain.Appointment, store.ListPage, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, store.ListPage{}, validationError("unknown status filter")
	}

	f := store.ListFilter{
		Status:   in.Status,
		Page:     in.Page,
		PageSize: in.PageSize,
	}
	switch caller.Role {
	case domain.RoleProvider:
		f.ProviderID = caller.ID
	case domain.RoleAdmin:
		// unscoped
	default:
		f.ClientID = caller.ID
	}

	return s.appts.List(ctx, f)
}

type ScheduleInput struct {
	Date     string
	Status   domain.AppointmentStatus
	Page     int
	PageSize int
}

type Schedule struct {
	Appointments []domain.Appointment `json:"appointments"`
	Stats        store.ProviderStats  `json:"stats"`
	Page         store.ListPage       `json:"pagination"`
}

// ProviderSchedule is the provider's forward-looking dashboard: own bookings
// oldest first, with headline counts.
func (s *Service) ProviderSchedule(ctx context.Context, caller Caller, in ScheduleInput) (Schedule, error) {
	if caller.Role != domain.RoleProvider {
		return Schedule{}, ErrForbidden
	}
	if in.Date != "" {
		if _, err := domain.ParseDate(in.Date); err != nil {
			return Schedule{}, validationError(err.Error())
		}
	}
	if in.Status != "" && !in.Status.Valid() {
		return Schedule{}, validationError("unknown status filter")
	}

	rows, page, err := s.appts.List(ctx, store.ListFilter{
		ProviderID:  caller.ID,
		Status:      in.Status,
		Date:        in.Date,
		OldestFirst: true,
		Page:        in.Page,
		PageSize:    in.PageSize,
	})
	if err != nil {
		return Schedule{}, err
	}

	today := s.clock.Now().Format(domain.DateLayout)
	stats, err := s.appts.ProviderStats(ctx, caller.ID, today)
	if err != nil {
		return Schedule{}, err
	}

	return Schedule{Appointments: rows, Stats: stats, Page: page}, nil
}

type DayAvailability struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Slots      []string  `json:"slots"`
	Declared   int       `json:"declared_slots"`
}

// Availability returns the open start times for a provider on a date.
// Declared slots, when any exist for that date, fully replace the default
// grid; the two sources never merge.
func (s *Service) Availability(ctx context.Context, providerID uuid.UUID, date string) (DayAvailability, error) {
	if providerID == uuid.Nil {
		return DayAvailability{}, validationError("provider_id is required")
	}
	if _, err := domain.ParseDate(date); err != nil {
		return DayAvailability{}, validationError(err.Error())
	}

	occupied, err := s.appts.OccupiedStarts(ctx, providerID, date)
	if err != nil {
		return DayAvailability{}, err
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	declared, err := s.slots.CountDeclared(ctx, providerID, date)
	if err != nil {
		return DayAvailability{}, err
	}

	var candidates []string
	if declared > 0 {
		starts, err := s.slots.AvailableStarts(ctx, providerID, date)
		if err != nil {
			return DayAvailability{}, err
		}
		candidates = starts
	} else {
		gridSlots, err := domain.GenerateSlots(s.grid.DayStart, s.grid.DayEnd, s.grid.SlotMinutes)
		if err != nil {
			return DayAvailability{}, err
		}
		for _, sl := range gridSlots {
			candidates = append(candidates, sl.StartTime)
		}
	}

	open := make([]string, 0, len(candidates))
	for _, start := range candidates {
		if _, ok := taken[start]; ok {
			continue
		}
		open = append(open, start)
	}

	return DayAvailability{
		ProviderID: providerID,
		Date:       date,
		Slots:      open,
		Declared:   declared,
	}, nil
}

// send delivers a best-effort notification. Failures are logged, never
// surfaced: the state transition that triggered the message is already
// durable.
func (s *Service) send(ctx context.Context, to, subject, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.log.Warn("notification delivery failed",
			slog.Any("err", err),
			slog.String("subject", subject),
		)
	}
}
