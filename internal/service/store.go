package service

import (
	"context"
	"time"

	"github.com/iliyamo/runclub-api/internal/model"
)

// UserStore is the credential store consumed by the auth service.
// Implementations report absence with repository.ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, email, name, password string, role model.Role, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByRefreshHash(ctx context.Context, hash string) (model.User, error)
	AssignRole(ctx context.Context, userID string, role model.Role) error
	RemoveRole(ctx context.Context, userID string, role model.Role) error
	SetRefresh(ctx context.Context, userID, hash string, exp time.Time) error
	SwapRefresh(ctx context.Context, userID, oldHash, newHash string, exp, now time.Time) (bool, error)
	ClearRefresh(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) (bool, error)
}

// RoleStore persists the role catalog.
type RoleStore interface {
	EnsureCatalog(ctx context.Context) error
	List(ctx context.Context) ([]model.RoleEntry, error)
	Delete(ctx context.Context, role model.Role) (bool, error)
}

// Notifier receives out-of-band notifications such as the email
// verification request sent after registration.
type Notifier interface {
	NotifyRegistered(ctx context.Context, u model.User) error
}
