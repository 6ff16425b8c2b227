package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet/cache"
	"github.com/blocpay/walletcore/internal/wallet/repository"
	"github.com/blocpay/walletcore/pkg/errors"
)

func newAddressRepo(t *testing.T) (*repository.AddressRepository, *cache.Memory) {
	db := setupTestDB(t)
	mem := cache.NewMemory(time.Minute, zap.NewNop())
	t.Cleanup(mem.Stop)
	return repository.NewAddressRepository(db, mem, time.Hour, zap.NewNop()), mem
}

func TestGetAddressIDCacheTransparency(t *testing.T) {
	repo, mem := newAddressRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.CreateAddress(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"))
	require.NoError(t, err)

	// miss path: store fallback repopulates the cache
	require.NoError(t, mem.FlushAll(ctx))
	fromStore, err := repo.GetAddressID(ctx, userID, "base")
	require.NoError(t, err)
	assert.Equal(t, "addr_1", fromStore)

	// hit path returns the same value
	fromCache, err := repo.GetAddressID(ctx, userID, "base")
	require.NoError(t, err)
	assert.Equal(t, fromStore, fromCache)
}

func TestGetAddressIDSurvivesCacheFlush(t *testing.T) {
	repo, mem := newAddressRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	record, err := repo.CreateAddress(ctx, addressRecord(userID, "solana", "SoLAddr", "addr_2"))
	require.NoError(t, err)
	repo.WarmAddressID(ctx, record)

	for i := 0; i < 3; i++ {
		require.NoError(t, mem.FlushAll(ctx))
		id, err := repo.GetAddressID(ctx, userID, "solana")
		require.NoError(t, err)
		assert.Equal(t, "addr_2", id)
	}
}

func TestGetAddressIDNotFound(t *testing.T) {
	repo, _ := newAddressRepo(t)

	_, err := repo.GetAddressID(context.Background(), uuid.New(), "base")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestCreateAddressDuplicateConverges(t *testing.T) {
	repo, _ := newAddressRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.CreateAddress(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"))
	require.NoError(t, err)

	second, err := repo.CreateAddress(ctx, addressRecord(userID, "base", "0xBBB", "addr_9"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "addr_1", second.ProviderAddressID)
}

func TestListUserAddresses(t *testing.T) {
	repo, _ := newAddressRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := repo.CreateAddress(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"))
	require.NoError(t, err)
	_, err = repo.CreateAddress(ctx, addressRecord(userID, "solana", "SoLAddr", "addr_2"))
	require.NoError(t, err)
	_, err = repo.CreateAddress(ctx, addressRecord(uuid.New(), "base", "0xCCC", "addr_3"))
	require.NoError(t, err)

	records, err := repo.ListUserAddresses(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, userID, record.UserID)
	}
}

func TestGetAddress(t *testing.T) {
	repo, _ := newAddressRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := repo.CreateAddress(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"))
	require.NoError(t, err)

	record, err := repo.GetAddress(ctx, userID, "base")
	require.NoError(t, err)
	assert.Equal(t, created.ID, record.ID)
	assert.Equal(t, "0xAAA", record.Address)

	_, err = repo.GetAddress(ctx, userID, "solana")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestAddressRepositoryHealthCheck(t *testing.T) {
	repo, _ := newAddressRepo(t)
	assert.NoError(t, repo.HealthCheck(context.Background()))
}
