// Package trigger dispatches asynchronous address provisioning for newly
// created users.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/pkg/metrics"
)

// Provisioner is the subset of the provisioning service the trigger needs.
type Provisioner interface {
	ProvisionAddresses(ctx context.Context, userID uuid.UUID, label string, chains []string) ([]interfaces.ProvisionedAddress, error)
}

// Trigger is a bounded task queue with a background consumer. Dispatch is
// fire-and-forget relative to the request that created the user: delivery is
// at-most-once, failures are logged and never retried or surfaced, so a user
// may exist with zero wallet addresses and readers must treat a missing
// address as recoverable.
type Trigger struct {
	provisioner Provisioner
	chains      []string
	runTimeout  time.Duration
	log         *zap.Logger

	jobs     chan uuid.UUID
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a trigger provisioning the given chains for each enqueued user.
func New(provisioner Provisioner, chains []string, queueSize int, runTimeout time.Duration, log *zap.Logger) *Trigger {
	if queueSize <= 0 {
		queueSize = 256
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &Trigger{
		provisioner: provisioner,
		chains:      chains,
		runTimeout:  runTimeout,
		log:         log,
		jobs:        make(chan uuid.UUID, queueSize),
		quit:        make(chan struct{}),
	}
}

// Name identifies the worker.
func (t *Trigger) Name() string { return "provisioning-trigger" }

// Start launches the background consumer.
func (t *Trigger) Start(ctx context.Context) error {
	t.wg.Add(1)
	go t.consume()
	t.log.Info("provisioning trigger started", zap.Int("queue_size", cap(t.jobs)))
	return nil
}

// Stop halts the consumer. Queued jobs that have not started are dropped.
func (t *Trigger) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() { close(t.quit) })
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("provisioning trigger did not stop in time: %w", ctx.Err())
	}
}

// Enqueue schedules provisioning for a user without blocking the caller.
// When the queue is full the job is dropped and logged.
func (t *Trigger) Enqueue(userID uuid.UUID) {
	select {
	case t.jobs <- userID:
	default:
		metrics.TriggerDropped.Inc()
		t.log.Warn("provisioning queue full, dropping job",
			zap.String("user_id", userID.String()))
	}
}

func (t *Trigger) consume() {
	defer t.wg.Done()
	for {
		select {
		case <-t.quit:
			return
		case userID := <-t.jobs:
			t.run(userID)
		}
	}
}

func (t *Trigger) run(userID uuid.UUID) {
	// The triggering request never awaits this run, so it gets its own
	// deadline rather than inheriting a request context.
	ctx, cancel := context.WithTimeout(context.Background(), t.runTimeout)
	defer cancel()

	if _, err := t.provisioner.ProvisionAddresses(ctx, userID, userID.String(), t.chains); err != nil {
		t.log.Error("asynchronous provisioning failed",
			zap.Error(err),
			zap.String("user_id", userID.String()))
		return
	}
	t.log.Info("asynchronous provisioning completed",
		zap.String("user_id", userID.String()))
}
