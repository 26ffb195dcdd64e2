package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

// liveSlotIndex is the partial unique index over (provider_id, date,
// start_time) restricted to live statuses. It is what makes Create an
// atomic claim on the slot.
const liveSlotIndex = "appointments_live_slot"

type AppointmentRepo struct {
	db bun.IDB
}

func NewAppointmentRepo(db bun.IDB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == liveSlotIndex {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) SetStatus(ctx context.Context, id uuid.UUID, from []domain.AppointmentStatus, to domain.AppointmentStatus) (domain.Appointment, error) {
	var m domain.Appointment
	res, err := r.db.NewUpdate().
		Model(&m).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from)).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		// Distinguish a missing row from one that moved on.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return domain.Appointment{}, getErr
		}
		return domain.Appointment{}, store.ErrConflict
	}
	return m, nil
}

func (r *AppointmentRepo) UpdateNotes(ctx context.Context, id uuid.UUID, set store.NotesUpdate) (domain.Appointment, error) {
	var m domain.Appointment
	q := r.db.NewUpdate().
		Model(&m).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Returning("*")
	if set.Notes != nil {
		q = q.Set("notes = ?", *set.Notes)
	}
	if set.OutcomeNotes != nil {
		q = q.Set("outcome_notes = ?", *set.OutcomeNotes)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AppointmentRepo) List(ctx context.Context, f store.ListFilter) ([]domain.Appointment, store.ListPage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	var rows []domain.Appointment
	q := r.db.NewSelect().Model(&rows)
	if f.ClientID != uuid.Nil {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.ProviderID != uuid.Nil {
		q = q.Where("provider_id = ?", f.ProviderID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.OldestFirst {
		q = q.OrderExpr("date ASC, start_time ASC")
	} else {
		q = q.OrderExpr("date DESC, start_time DESC")
	}

	total, err := q.Offset((page - 1) * pageSize).Limit(pageSize).ScanAndCount(ctx)
	if err != nil {
		return nil, store.ListPage{}, err
	}

	return rows, store.ListPage{
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *AppointmentRepo) ProviderStats(ctx context.Context, providerID uuid.UUID, today string) (store.ProviderStats, error) {
	var out store.ProviderStats

	base := func() *bun.SelectQuery {
		return r.db.NewSelect().
			Model((*domain.Appointment)(nil)).
			Where("provider_id = ?", providerID)
	}

	var err error
	if out.Today, err = base().
		Where("date = ?", today).
		Where("status = ?", domain.AppointmentConfirmed).
		Count(ctx); err != nil {
		return store.ProviderStats{}, err
	}
	if out.Pending, err = base().
		Where("status = ?", domain.AppointmentRequested).
		Count(ctx); err != nil {
		return store.ProviderStats{}, err
	}
	if out.Confirmed, err = base().
		Where("status = ?", domain.AppointmentConfirmed).
		Count(ctx); err != nil {
		return store.ProviderStats{}, err
	}
	if out.Total, err = base().Count(ctx); err != nil {
		return store.ProviderStats{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) OccupiedStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	var starts []string
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("start_time").
		Where("provider_id = ?", providerID).
		Where("date = ?", date).
		Where("status IN (?)", bun.In(domain.LiveStatuses())).
		OrderExpr("start_time ASC").
		Scan(ctx, &starts)
	if err != nil {
		return nil, err
	}
	return starts, nil
}

func (r *AppointmentRepo) DueReminders(ctx context.Context, date string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("date = ?", date).
		Where("status = ?", domain.AppointmentConfirmed).
		Where("reminder_sent = FALSE").
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("reminder_sent = TRUE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
