// Package services implements the wallet provisioning orchestration.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet/chains"
	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/internal/wallet/repository"
	"github.com/blocpay/walletcore/pkg/errors"
	"github.com/blocpay/walletcore/pkg/metrics"
)

// ProvisioningService orchestrates per-user, multi-chain address generation:
// one provider call covers the whole shared-address-capable set, one call per
// isolated chain, all issued concurrently. Generation is all-or-nothing;
// persistence is per-chain best-effort (a failed write does not roll back
// sibling chains).
type ProvisioningService struct {
	classifier *chains.Classifier
	provider   interfaces.ProvisioningClient
	addresses  *repository.AddressRepository
	log        *zap.Logger
}

// NewProvisioningService creates the provisioning service.
func NewProvisioningService(
	classifier *chains.Classifier,
	provider interfaces.ProvisioningClient,
	addresses *repository.AddressRepository,
	log *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		classifier: classifier,
		provider:   provider,
		addresses:  addresses,
		log:        log,
	}
}

// generation is one provider call and the chains its address will serve.
type generation struct {
	chains   []string
	walletID string
	result   *interfaces.GeneratedAddress
	err      error
}

// ProvisionAddresses generates and persists custodial addresses for the
// given chains. It is idempotent per chain: re-invoking for a chain that
// already has a row converges to the existing row instead of duplicating.
func (s *ProvisioningService) ProvisionAddresses(ctx context.Context, userID uuid.UUID, label string, chainNames []string) ([]interfaces.ProvisionedAddress, error) {
	if len(chainNames) == 0 {
		return nil, nil
	}

	shared, isolated := s.classifier.Partition(chainNames)

	// Resolve every wallet id up front so a missing mapping fails the batch
	// before any provider-side allocation happens.
	var gens []*generation
	if len(shared) > 0 {
		walletID, err := s.classifier.ResolveWalletID(shared[0])
		if err != nil {
			metrics.ProvisioningRuns.WithLabelValues("configuration_error").Inc()
			return nil, err
		}
		gens = append(gens, &generation{chains: shared, walletID: walletID})
	}
	for _, chain := range isolated {
		walletID, err := s.classifier.ResolveWalletID(chain)
		if err != nil {
			metrics.ProvisioningRuns.WithLabelValues("configuration_error").Inc()
			return nil, err
		}
		gens = append(gens, &generation{chains: []string{chain}, walletID: walletID})
	}

	var wg sync.WaitGroup
	for _, g := range gens {
		wg.Add(1)
		go func(g *generation) {
			defer wg.Done()
			g.result, g.err = s.provider.GenerateAddress(ctx, g.walletID, label)
		}(g)
	}
	wg.Wait()

	// All-or-nothing at generation: one failed call aborts the whole batch
	// with nothing persisted for any chain.
	for _, g := range gens {
		if g.err != nil {
			metrics.ProvisioningRuns.WithLabelValues("generation_failed").Inc()
			s.log.Error("address generation failed, aborting batch",
				zap.Error(g.err),
				zap.String("user_id", userID.String()),
				zap.Strings("chains", g.chains))
			return nil, errors.FromProvider(g.err)
		}
	}

	generatedByChain := make(map[string]*interfaces.GeneratedAddress, len(chainNames))
	for _, g := range gens {
		for _, chain := range g.chains {
			generatedByChain[chain] = g.result
		}
	}

	// Persist each chain concurrently; every write is independently
	// race-protected on (user_id, chain).
	records := make([]*interfaces.WalletAddress, len(chainNames))
	writeErrs := make([]error, len(chainNames))
	var pw sync.WaitGroup
	for i, chain := range chainNames {
		pw.Add(1)
		go func(i int, chain string) {
			defer pw.Done()
			generated := generatedByChain[chain]
			records[i], writeErrs[i] = s.addresses.CreateAddress(ctx, &interfaces.WalletAddress{
				ID:                uuid.New(),
				UserID:            userID,
				Chain:             chain,
				Address:           generated.Address,
				ProviderAddressID: generated.ProviderAddressID,
				AddressName:       label,
				CreatedAt:         time.Now(),
			})
		}(i, chain)
	}
	pw.Wait()

	provisioned := make([]interfaces.ProvisionedAddress, 0, len(chainNames))
	var firstErr error
	for i, chain := range chainNames {
		if writeErrs[i] != nil {
			// Persisted siblings are not reverted; the user keeps whatever
			// chains made it through.
			s.log.Error("failed to persist wallet address",
				zap.Error(writeErrs[i]),
				zap.String("user_id", userID.String()),
				zap.String("chain", chain))
			if firstErr == nil {
				firstErr = writeErrs[i]
			}
			continue
		}
		s.addresses.WarmAddressID(ctx, records[i])
		provisioned = append(provisioned, interfaces.ProvisionedAddress{
			Chain:             chain,
			Address:           records[i].Address,
			ProviderAddressID: records[i].ProviderAddressID,
		})
	}
	if firstErr != nil {
		metrics.ProvisioningRuns.WithLabelValues("persist_failed").Inc()
		return provisioned, firstErr
	}

	metrics.ProvisioningRuns.WithLabelValues("success").Inc()
	s.log.Info("provisioned wallet addresses",
		zap.String("user_id", userID.String()),
		zap.Int("chains", len(provisioned)))
	return provisioned, nil
}

// GetAddressID resolves the provider-side address identifier for
// (userID, chain).
func (s *ProvisioningService) GetAddressID(ctx context.Context, userID uuid.UUID, chain string) (string, error) {
	return s.addresses.GetAddressID(ctx, userID, chain)
}

// GetWalletBalance returns the balance held at the user's address on chain.
func (s *ProvisioningService) GetWalletBalance(ctx context.Context, userID uuid.UUID, chain string) (*interfaces.AddressBalance, error) {
	addressID, err := s.addresses.GetAddressID(ctx, userID, chain)
	if err != nil {
		return nil, err
	}
	balance, err := s.provider.GetBalance(ctx, addressID)
	if err != nil {
		return nil, errors.FromProvider(err)
	}
	return balance, nil
}

// GetTransactions lists provider-side transactions for the user's address on
// chain.
func (s *ProvisioningService) GetTransactions(ctx context.Context, userID uuid.UUID, chain string) ([]interfaces.Transaction, error) {
	addressID, err := s.addresses.GetAddressID(ctx, userID, chain)
	if err != nil {
		return nil, err
	}
	txs, err := s.provider.GetTransactions(ctx, addressID)
	if err != nil {
		return nil, errors.FromProvider(err)
	}
	return txs, nil
}

// Withdraw moves funds out of the user's address on chain.
func (s *ProvisioningService) Withdraw(ctx context.Context, userID uuid.UUID, chain string, req *interfaces.WithdrawRequest) (*interfaces.Transaction, error) {
	addressID, err := s.addresses.GetAddressID(ctx, userID, chain)
	if err != nil {
		return nil, err
	}
	tx, err := s.provider.Withdraw(ctx, addressID, req)
	if err != nil {
		return nil, errors.FromProvider(err)
	}
	return tx, nil
}

// HealthCheck verifies the storage layer is reachable.
func (s *ProvisioningService) HealthCheck(ctx context.Context) error {
	return s.addresses.HealthCheck(ctx)
}
