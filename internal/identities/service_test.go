package identities_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blocpay/walletcore/internal/identities"
	"github.com/blocpay/walletcore/internal/wallet/cache"
	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/pkg/errors"
)

type countingEnqueuer struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (e *countingEnqueuer) Enqueue(userID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.users = append(e.users, userID)
}

func (e *countingEnqueuer) enqueued() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uuid.UUID(nil), e.users...)
}

func newService(t *testing.T) (*identities.Service, *countingEnqueuer) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&interfaces.User{}))

	mem := cache.NewMemory(time.Minute, zap.NewNop())
	t.Cleanup(mem.Stop)

	enq := &countingEnqueuer{}
	return identities.NewService(db, mem, enq, zap.NewNop()), enq
}

func TestEnsureUserCreatesAndEnqueuesOnce(t *testing.T) {
	svc, enq := newService(t)
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, "ext_1", "a@example.com")
	require.NoError(t, err)

	second, err := svc.EnsureUser(ctx, "ext_1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// provisioning kicks off only for the sync that created the row
	require.Len(t, enq.enqueued(), 1)
	assert.Equal(t, first.ID, enq.enqueued()[0])
}

func TestEnsureUserConcurrentSyncs(t *testing.T) {
	svc, enq := newService(t)
	ctx := context.Background()

	const syncs = 8
	users := make([]*interfaces.User, syncs)
	errs := make([]error, syncs)
	var wg sync.WaitGroup
	for i := 0; i < syncs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i], errs[i] = svc.EnsureUser(ctx, "ext_1", "a@example.com")
		}(i)
	}
	wg.Wait()

	for i := 0; i < syncs; i++ {
		require.NoError(t, errs[i], "sync %d", i)
		assert.Equal(t, users[0].ID, users[i].ID)
	}
	assert.Len(t, enq.enqueued(), 1)
}

func TestEnsureUserDistinctIdentities(t *testing.T) {
	svc, enq := newService(t)
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, "ext_1", "a@example.com")
	require.NoError(t, err)
	second, err := svc.EnsureUser(ctx, "ext_2", "b@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, enq.enqueued(), 2)
}

func TestServiceSetUniqueName(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.EnsureUser(ctx, "ext_1", "a@example.com")
	require.NoError(t, err)

	updated, err := svc.SetUniqueName(ctx, user.ID, "satoshi")
	require.NoError(t, err)
	require.NotNil(t, updated.UniqueName)
	assert.Equal(t, "satoshi", *updated.UniqueName)

	_, err = svc.SetUniqueName(ctx, user.ID, "finney")
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}
