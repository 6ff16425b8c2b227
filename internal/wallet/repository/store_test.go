package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/internal/wallet/repository"
	"github.com/blocpay/walletcore/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every open handle sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&interfaces.User{}, &interfaces.WalletAddress{}))
	return db
}

func newAddressStore(t *testing.T, db *gorm.DB) *repository.Store[interfaces.WalletAddress] {
	return repository.NewStore[interfaces.WalletAddress](db, "wallet address", zap.NewNop())
}

func addressRecord(userID uuid.UUID, chain, addr, providerID string) *interfaces.WalletAddress {
	return &interfaces.WalletAddress{
		ID:                uuid.New(),
		UserID:            userID,
		Chain:             chain,
		Address:           addr,
		ProviderAddressID: providerID,
		AddressName:       "test",
	}
}

func TestCreateRaceProtected(t *testing.T) {
	db := setupTestDB(t)
	store := newAddressStore(t, db)
	ctx := context.Background()
	userID := uuid.New()
	unique := map[string]interface{}{"user_id": userID, "chain": "base"}

	first, created, err := store.Create(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"), unique)
	require.NoError(t, err)
	assert.True(t, created)

	// duplicate create converges to the surviving row instead of conflicting
	second, created, err := store.Create(ctx, addressRecord(userID, "base", "0xBBB", "addr_2"), unique)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "0xAAA", second.Address)

	var count int64
	require.NoError(t, db.Model(&interfaces.WalletAddress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateConcurrentDuplicates(t *testing.T) {
	db := setupTestDB(t)
	store := newAddressStore(t, db)
	ctx := context.Background()
	userID := uuid.New()
	unique := map[string]interface{}{"user_id": userID, "chain": "base"}

	const callers = 8
	results := make([]*interfaces.WalletAddress, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = store.Create(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"), unique)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.NotNil(t, results[i], "caller %d", i)
		assert.Equal(t, results[0].ID, results[i].ID)
	}

	var count int64
	require.NoError(t, db.Model(&interfaces.WalletAddress{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewStore[interfaces.User](db, "user", zap.NewNop())
	ctx := context.Background()

	_, err := store.Update(ctx,
		map[string]interface{}{"id": uuid.New()},
		map[string]interface{}{"email": "new@example.com"},
	)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestDeleteNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := newAddressStore(t, db)

	err := store.Delete(context.Background(), map[string]interface{}{"id": uuid.New()})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestDeleteExisting(t *testing.T) {
	db := setupTestDB(t)
	store := newAddressStore(t, db)
	ctx := context.Background()
	userID := uuid.New()

	record, _, err := store.Create(ctx, addressRecord(userID, "base", "0xAAA", "addr_1"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, map[string]interface{}{"id": record.ID}))

	_, err = store.FindUnique(ctx, map[string]interface{}{"id": record.ID})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestUpsert(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewStore[interfaces.User](db, "user", zap.NewNop())
	ctx := context.Background()

	user := &interfaces.User{ID: uuid.New(), ExternalIdentityID: "ext_1", Email: "a@example.com"}
	_, err := store.Upsert(ctx, user, []string{"external_identity_id"}, map[string]interface{}{"email": "a@example.com"})
	require.NoError(t, err)

	other := &interfaces.User{ID: uuid.New(), ExternalIdentityID: "ext_1", Email: "b@example.com"}
	_, err = store.Upsert(ctx, other, []string{"external_identity_id"}, map[string]interface{}{"email": "b@example.com"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&interfaces.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := store.FindUnique(ctx, map[string]interface{}{"external_identity_id": "ext_1"})
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", stored.Email)
}

func TestRunAtomicRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	err := repository.RunAtomic(ctx, db,
		repository.CreateOp(addressRecord(userID, "base", "0xAAA", "addr_1"), nil),
		// updating a missing row fails the batch
		repository.UpdateOp[interfaces.WalletAddress](
			map[string]interface{}{"id": uuid.New()},
			map[string]interface{}{"address_name": "renamed"},
		),
	)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&interfaces.WalletAddress{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRunAtomicCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()

	err := repository.RunAtomic(ctx, db,
		repository.CreateOp(addressRecord(userID, "base", "0xAAA", "addr_1"), nil),
		repository.CreateOp(addressRecord(userID, "solana", "SoLAddr", "addr_2"), nil),
	)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&interfaces.WalletAddress{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
