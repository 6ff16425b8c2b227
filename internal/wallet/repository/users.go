package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/pkg/errors"
)

// UserRepository persists local users keyed by their external identity.
type UserRepository struct {
	store *Store[interfaces.User]
	log   *zap.Logger
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *gorm.DB, log *zap.Logger) *UserRepository {
	return &UserRepository{
		store: NewStore[interfaces.User](db, "user", log),
		log:   log,
	}
}

// EnsureByExternalID returns the local user for an external identity,
// creating it race-safely on first sight. The bool reports whether this call
// created the user; concurrent duplicate syncs converge to one row and
// exactly one caller observes created=true.
func (r *UserRepository) EnsureByExternalID(ctx context.Context, externalID, email string) (*interfaces.User, bool, error) {
	now := time.Now()
	user := &interfaces.User{
		ID:                 uuid.New(),
		ExternalIdentityID: externalID,
		Email:              email,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return r.store.Create(ctx, user, map[string]interface{}{
		"external_identity_id": externalID,
	})
}

// GetByID returns a user by internal id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*interfaces.User, error) {
	return r.store.FindUnique(ctx, map[string]interface{}{"id": id})
}

// SetUniqueName sets a user's display name, at most once. A second attempt
// on the same user or a collision with another user's name surfaces Conflict.
func (r *UserRepository) SetUniqueName(ctx context.Context, userID uuid.UUID, name string) (*interfaces.User, error) {
	user, err := r.store.FindUnique(ctx, map[string]interface{}{"id": userID})
	if err != nil {
		return nil, err
	}
	if user.UniqueName != nil {
		return nil, errors.New(errors.CodeConflict, "unique name is already set for this user")
	}
	return r.store.Update(ctx,
		map[string]interface{}{"id": userID},
		map[string]interface{}{"unique_name": name},
	)
}
