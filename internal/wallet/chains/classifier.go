// Package chains maps chain names to backing provider wallets and to their
// address-compatibility class.
package chains

import (
	"sort"
	"strings"

	"github.com/blocpay/walletcore/internal/wallet/config"
	"github.com/blocpay/walletcore/pkg/errors"
)

// DefaultChain resolves to an arbitrary configured wallet id, for maintenance
// use only.
const DefaultChain = "default"

// Classifier is the static, process-wide chain classification. It is built
// once at startup from configuration and injected; it is read-only for the
// process lifetime.
type Classifier struct {
	wallets    map[string]string
	shared     map[string]bool
	configured []string
}

// NewClassifier expands the comma-joined wallet groups of cfg into a flat
// per-chain lookup.
func NewClassifier(cfg config.ChainsConfig) *Classifier {
	c := &Classifier{
		wallets: make(map[string]string),
		shared:  make(map[string]bool),
	}
	for group, walletID := range cfg.WalletGroups {
		for _, chain := range strings.Split(group, ",") {
			chain = strings.TrimSpace(chain)
			if chain == "" {
				continue
			}
			c.wallets[chain] = walletID
		}
	}
	for _, chain := range cfg.SharedCapable {
		c.shared[strings.TrimSpace(chain)] = true
	}
	for chain := range c.wallets {
		c.configured = append(c.configured, chain)
	}
	sort.Strings(c.configured)
	return c
}

// ResolveWalletID returns the provider wallet id backing the given chain.
// DefaultChain resolves to an arbitrary configured wallet. An unmapped chain
// fails with a ConfigurationError naming the missing chain and listing the
// configured ones.
func (c *Classifier) ResolveWalletID(chain string) (string, error) {
	if chain == DefaultChain && len(c.configured) > 0 {
		return c.wallets[c.configured[0]], nil
	}
	walletID, ok := c.wallets[chain]
	if !ok {
		return "", &errors.ConfigurationError{Chain: chain, Configured: c.Configured()}
	}
	return walletID, nil
}

// IsShared reports whether the chain belongs to the shared-address-capable class.
func (c *Classifier) IsShared(chain string) bool {
	return c.shared[chain]
}

// Partition splits chains into the shared-address-capable set and the
// isolated set, preserving input order.
func (c *Classifier) Partition(chains []string) (shared, isolated []string) {
	for _, chain := range chains {
		if c.shared[chain] {
			shared = append(shared, chain)
		} else {
			isolated = append(isolated, chain)
		}
	}
	return shared, isolated
}

// Configured returns the sorted list of all configured chain names.
func (c *Classifier) Configured() []string {
	return append([]string(nil), c.configured...)
}
