package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type AvailabilityRepo struct {
	db bun.IDB
}

func NewAvailabilityRepo(db bun.IDB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

func (r *AvailabilityRepo) Upsert(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	m := slot
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (provider_id, date, start_time) DO UPDATE").
		Set("end_time = EXCLUDED.end_time").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("is_available = EXCLUDED.is_available").
		Set("max_bookings = EXCLUDED.max_bookings").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) ListOwn(ctx context.Context, providerID uuid.UUID, date string) ([]domain.AvailabilitySlot, error) {
	var rows []domain.AvailabilitySlot
	q := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	err := q.OrderExpr("date ASC, start_time ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) SetAvailable(ctx context.Context, id, providerID uuid.UUID, available bool) (domain.AvailabilitySlot, error) {
	var m domain.AvailabilitySlot
	res, err := r.db.NewUpdate().
		Model(&m).
		Set("is_available = ?", available).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("provider_id = ?", providerID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	if affected == 0 {
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AvailabilityRepo) Delete(ctx context.Context, id, providerID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.AvailabilitySlot)(nil)).
		Where("id = ?", id).
		Where("provider_id = ?", providerID).
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

func (r *AvailabilityRepo) AvailableStarts(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	var starts []string
	err := r.db.NewSelect().
		Model((*domain.AvailabilitySlot)(nil)).
		Column("start_time").
		Where("provider_id = ?", providerID).
		Where("date = ?", date).
		Where("is_available = TRUE").
		OrderExpr("start_time ASC").
		Scan(ctx, &starts)
	if err != nil {
		return nil, err
	}
	return starts, nil
}

func (r *AvailabilityRepo) CountDeclared(ctx context.Context, providerID uuid.UUID, date string) (int, error) {
	return r.db.NewSelect().
		Model((*domain.AvailabilitySlot)(nil)).
		Where("provider_id = ?", providerID).
		Where("date = ?", date).
		Count(ctx)
}
