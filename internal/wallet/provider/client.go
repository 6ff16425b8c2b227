// Package provider implements the adapter to the custodial wallet API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/pkg/errors"
	"github.com/blocpay/walletcore/pkg/metrics"
)

const apiKeyHeader = "X-Api-Key"

// Client is a stateless HTTP adapter to the custodial wallet API. The
// provider holds the private key material; this process only ever sees
// addresses and opaque address identifiers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *zap.Logger
}

// NewClient creates a custodial wallet API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		log:        log,
	}
}

type generateAddressRequest struct {
	Name string `json:"name"`
}

type transactionsResponse struct {
	Transactions []interfaces.Transaction `json:"transactions"`
}

type providerErrorBody struct {
	Message string `json:"message"`
}

// GenerateAddress allocates a new address under the given provider wallet.
func (c *Client) GenerateAddress(ctx context.Context, walletID, name string) (*interfaces.GeneratedAddress, error) {
	var out interfaces.GeneratedAddress
	path := fmt.Sprintf("/v1/wallets/%s/addresses", walletID)
	if err := c.do(ctx, http.MethodPost, path, "generate_address", generateAddressRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns the balance held at a provider-side address.
func (c *Client) GetBalance(ctx context.Context, addressID string) (*interfaces.AddressBalance, error) {
	var out interfaces.AddressBalance
	path := fmt.Sprintf("/v1/addresses/%s/balance", addressID)
	if err := c.do(ctx, http.MethodGet, path, "get_balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactions lists transactions recorded against a provider-side address.
func (c *Client) GetTransactions(ctx context.Context, addressID string) ([]interfaces.Transaction, error) {
	var out transactionsResponse
	path := fmt.Sprintf("/v1/addresses/%s/transactions", addressID)
	if err := c.do(ctx, http.MethodGet, path, "get_transactions", nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// Withdraw asks the provider to move funds out of an address.
func (c *Client) Withdraw(ctx context.Context, addressID string, req *interfaces.WithdrawRequest) (*interfaces.Transaction, error) {
	var out interfaces.Transaction
	path := fmt.Sprintf("/v1/addresses/%s/withdrawals", addressID)
	if err := c.do(ctx, http.MethodPost, path, "withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, operation string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(operation, "transport_error").Inc()
		c.log.Error("custodial wallet request failed",
			zap.Error(err),
			zap.String("operation", operation))
		return fmt.Errorf("custodial wallet request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequests.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := readProviderMessage(resp.Body)
		c.log.Warn("custodial wallet API returned an error",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return &errors.ProviderError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

func readProviderMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail provided"
	}
	var parsed providerErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}
