// Package interfaces provides types and interfaces for the wallet module
package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a local user created on first successful identity sync.
// Users are never the owner-writer of their own wallet addresses; those are
// created indirectly through the provisioning trigger.
type User struct {
	ID                 uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ExternalIdentityID string    `json:"external_identity_id" gorm:"size:100;uniqueIndex"`
	Email              string    `json:"email,omitempty" gorm:"size:255"`
	UniqueName         *string   `json:"unique_name,omitempty" gorm:"size:50;uniqueIndex"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WalletAddress represents a custodial address held for a user on one chain.
// At most one row exists per (user_id, chain); rows are immutable once
// created, so there is no update path.
type WalletAddress struct {
	ID                uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID            uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_wallet_addresses_user_chain"`
	Chain             string    `json:"chain" gorm:"size:50;uniqueIndex:idx_wallet_addresses_user_chain"`
	Address           string    `json:"address" gorm:"size:120;index"`
	ProviderAddressID string    `json:"provider_address_id" gorm:"size:100"`
	AddressName       string    `json:"address_name" gorm:"size:100"`
	CreatedAt         time.Time `json:"created_at"`
}

// ProvisionedAddress is the per-chain result of a provisioning batch.
type ProvisionedAddress struct {
	Chain             string `json:"chain"`
	Address           string `json:"address"`
	ProviderAddressID string `json:"provider_address_id"`
}

// GeneratedAddress is the custodial wallet API's response to address generation.
type GeneratedAddress struct {
	Address           string `json:"address"`
	ProviderAddressID string `json:"id"`
}

// AddressBalance is the balance held at a provider-side address.
type AddressBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Chain   string          `json:"chain"`
	Asset   string          `json:"asset"`
}

// Transaction is a provider-side transaction record.
type Transaction struct {
	ID        string          `json:"id"`
	Chain     string          `json:"chain"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Status    string          `json:"status"`
	TxHash    string          `json:"tx_hash,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// WithdrawRequest asks the custodial wallet API to move funds out of an address.
type WithdrawRequest struct {
	ToAddress string          `json:"to_address"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
}

// ProvisioningClient is the adapter boundary to the custodial wallet API.
type ProvisioningClient interface {
	GenerateAddress(ctx context.Context, walletID, name string) (*GeneratedAddress, error)
	GetBalance(ctx context.Context, addressID string) (*AddressBalance, error)
	GetTransactions(ctx context.Context, addressID string) ([]Transaction, error)
	Withdraw(ctx context.Context, addressID string, req *WithdrawRequest) (*Transaction, error)
}

// ProvisioningService is the sanctioned entry point into the wallet core.
type ProvisioningService interface {
	ProvisionAddresses(ctx context.Context, userID uuid.UUID, label string, chains []string) ([]ProvisionedAddress, error)
	GetAddressID(ctx context.Context, userID uuid.UUID, chain string) (string, error)
	GetWalletBalance(ctx context.Context, userID uuid.UUID, chain string) (*AddressBalance, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, chain string) ([]Transaction, error)
	Withdraw(ctx context.Context, userID uuid.UUID, chain string, req *WithdrawRequest) (*Transaction, error)
	HealthCheck(ctx context.Context) error
}
