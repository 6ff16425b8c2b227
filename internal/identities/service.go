// Package identities syncs external identities into local users and kicks
// off wallet provisioning for new ones.
package identities

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blocpay/walletcore/internal/wallet/cache"
	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/internal/wallet/repository"
)

// Enqueuer dispatches fire-and-forget provisioning for a user.
type Enqueuer interface {
	Enqueue(userID uuid.UUID)
}

// Service resolves external identities to stable internal user ids.
type Service struct {
	users   *repository.UserRepository
	cache   cache.Cache
	trigger Enqueuer
	log     *zap.Logger
}

// NewService creates the identity sync service.
func NewService(db *gorm.DB, c cache.Cache, trigger Enqueuer, log *zap.Logger) *Service {
	return &Service{
		users:   repository.NewUserRepository(db, log),
		cache:   c,
		trigger: trigger,
		log:     log,
	}
}

func identityKey(externalID string) string {
	return fmt.Sprintf("user:identity:%s", externalID)
}

// EnsureUser returns the local user for an external identity, creating it on
// first successful sync. Creation is race-safe: concurrent duplicate syncs
// converge to one row, and provisioning is enqueued exactly once, by the call
// that created the row. The user is never written synchronously with its
// wallets; those arrive through the trigger.
func (s *Service) EnsureUser(ctx context.Context, externalID, email string) (*interfaces.User, error) {
	key := identityKey(externalID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if id, parseErr := uuid.Parse(cached); parseErr == nil {
			if user, lookupErr := s.users.GetByID(ctx, id); lookupErr == nil {
				return user, nil
			}
		}
	} else if !stderrors.Is(err, cache.ErrMiss) {
		s.log.Warn("identity cache read failed", zap.Error(err), zap.String("key", key))
	}

	user, created, err := s.users.EnsureByExternalID(ctx, externalID, email)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("created local user for external identity",
			zap.String("user_id", user.ID.String()),
			zap.String("external_id", externalID))
		s.trigger.Enqueue(user.ID)
	}

	if err := s.cache.Set(ctx, key, user.ID.String(), 0); err != nil {
		s.log.Warn("failed to cache identity mapping", zap.Error(err), zap.String("key", key))
	}
	return user, nil
}

// SetUniqueName sets the user's display name, at most once.
func (s *Service) SetUniqueName(ctx context.Context, userID uuid.UUID, name string) (*interfaces.User, error) {
	return s.users.SetUniqueName(ctx, userID, name)
}
