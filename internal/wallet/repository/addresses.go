package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blocpay/walletcore/internal/wallet/cache"
	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/pkg/metrics"
)

// AddressRepository persists wallet address records and resolves the
// provider-side address identifier per (user, chain) through a cache-aside
// read. Rows are immutable once created, so cache staleness can only add
// latency, never serve wrong data.
type AddressRepository struct {
	store *Store[interfaces.WalletAddress]
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewAddressRepository creates an address repository with the given
// address-id cache TTL.
func NewAddressRepository(db *gorm.DB, c cache.Cache, ttl time.Duration, log *zap.Logger) *AddressRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AddressRepository{
		store: NewStore[interfaces.WalletAddress](db, "wallet address", log),
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

func addressIDKey(userID uuid.UUID, chain string) string {
	return fmt.Sprintf("user:%s:address-id:%s", userID, chain)
}

// CreateAddress persists an address record, race-protected on
// (user_id, chain): concurrent duplicate creates converge to one row, which
// is returned to every caller.
func (r *AddressRepository) CreateAddress(ctx context.Context, address *interfaces.WalletAddress) (*interfaces.WalletAddress, error) {
	record, _, err := r.store.Create(ctx, address, map[string]interface{}{
		"user_id": address.UserID,
		"chain":   address.Chain,
	})
	return record, err
}

// GetAddressID resolves the provider-side address identifier for
// (userID, chain), cache-aside: a hit is served directly, a miss falls back
// to the store of record and repopulates the cache. Cache faults are logged
// and swallowed; they never fail the call.
func (r *AddressRepository) GetAddressID(ctx context.Context, userID uuid.UUID, chain string) (string, error) {
	key := addressIDKey(userID, chain)
	value, err := r.cache.Get(ctx, key)
	if err == nil {
		metrics.AddressCacheLookups.WithLabelValues("hit").Inc()
		return value, nil
	}
	if !stderrors.Is(err, cache.ErrMiss) {
		r.log.Warn("address-id cache read failed",
			zap.Error(err),
			zap.String("key", key))
	}
	metrics.AddressCacheLookups.WithLabelValues("miss").Inc()

	record, err := r.store.FindUnique(ctx, map[string]interface{}{
		"user_id": userID,
		"chain":   chain,
	})
	if err != nil {
		return "", err
	}
	r.WarmAddressID(ctx, record)
	return record.ProviderAddressID, nil
}

// WarmAddressID populates the address-id cache for a persisted record.
// Failures are logged and swallowed.
func (r *AddressRepository) WarmAddressID(ctx context.Context, record *interfaces.WalletAddress) {
	key := addressIDKey(record.UserID, record.Chain)
	if err := r.cache.Set(ctx, key, record.ProviderAddressID, r.ttl); err != nil {
		r.log.Warn("failed to populate address-id cache",
			zap.Error(err),
			zap.String("key", key))
	}
}

// GetAddress returns the address record for (userID, chain).
func (r *AddressRepository) GetAddress(ctx context.Context, userID uuid.UUID, chain string) (*interfaces.WalletAddress, error) {
	return r.store.FindUnique(ctx, map[string]interface{}{
		"user_id": userID,
		"chain":   chain,
	})
}

// ListUserAddresses returns all addresses held for a user.
func (r *AddressRepository) ListUserAddresses(ctx context.Context, userID uuid.UUID) ([]interfaces.WalletAddress, error) {
	return r.store.FindMany(ctx, map[string]interface{}{"user_id": userID}, "created_at DESC")
}

// HealthCheck performs a health check on the database.
func (r *AddressRepository) HealthCheck(ctx context.Context) error {
	var result int
	return r.store.DB().WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}
