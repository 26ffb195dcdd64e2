package store

import (
	"context"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
)

// UserDirectory resolves a caller or counterparty identity to its role and
// contact address. Returns ErrNotFound for unknown ids.
type UserDirectory interface {
	Resolve(ctx context.Context, id uuid.UUID) (domain.User, error)
}
