// Package reminder sends next-day appointment reminders. A daily sweep
// selects confirmed, not-yet-reminded appointments for tomorrow and marks
// each row only after its reminder was actually delivered, so a failed send
// is retried by the next sweep.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/clock"
	"medibook/backend/internal/domain"
	"medibook/backend/internal/notify"
)

// DefaultHour is the local hour of day the scheduled sweep fires at.
const DefaultHour = 8

type AppointmentSource interface {
	DueReminders(ctx context.Context, date string) ([]domain.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

type UserResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (domain.User, error)
}

type Sweeper struct {
	appts    AppointmentSource
	users    UserResolver
	notifier notify.Notifier
	clock    clock.Clock
	hour     int
	log      *slog.Logger
}

func NewSweeper(appts AppointmentSource, users UserResolver, notifier notify.Notifier, clk clock.Clock, hour int, log *slog.Logger) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	if hour < 0 || hour > 23 {
		hour = DefaultHour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		appts:    appts,
		users:    users,
		notifier: notifier,
		clock:    clk,
		hour:     hour,
		log:      log.With(slog.String("component", "reminder")),
	}
}

// Run fires a sweep at the configured local hour, daily, until the context
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(time.Until(s.nextFire()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		sent, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error("reminder sweep failed", slog.Any("err", err))
			continue
		}
		s.log.Info("reminder sweep finished", slog.Int("sent", sent))
	}
}

func (s *Sweeper) nextFire() time.Time {
	now := s.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Sweep reminds every confirmed appointment scheduled for tomorrow that has
// not been reminded yet. A failure on one row is logged and the sweep moves
// on; the row stays unmarked for the next attempt. Returns the number of
// reminders delivered.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	target := s.clock.Now().AddDate(0, 0, 1).Format(domain.DateLayout)

	due, err := s.appts.DueReminders(ctx, target)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, appt := range due {
		client, err := s.users.Resolve(ctx, appt.ClientID)
		if err != nil {
			s.log.Warn("reminder skipped, client not resolved",
				slog.String("appointment_id", appt.ID.String()),
				slog.Any("err", err))
			continue
		}

		body := fmt.Sprintf("Reminder: you have an appointment tomorrow, %s at %s.",
			appt.Date, appt.StartTime)
		if err := s.notifier.Send(ctx, client.Email, "Appointment reminder", body); err != nil {
			s.log.Warn("reminder delivery failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.Any("err", err))
			continue
		}

		// Mark only after a successful send.
		if err := s.appts.MarkReminderSent(ctx, appt.ID); err != nil {
			s.log.Warn("reminder sent but not marked",
				slog.String("appointment_id", appt.ID.String()),
				slog.Any("err", err))
			continue
		}
		sent++
	}
	return sent, nil
}
