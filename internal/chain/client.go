package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	dialTimeout    = 10 * time.Second
	chainIDTimeout = 5 * time.Second
	pollInterval   = 2 * time.Second
)

// Client manages connections to the chains of a registry, keyed by chain id.
type Client struct {
	registry *Registry
	log      *zap.Logger
	rps      float64
	poll     time.Duration

	mu       sync.Mutex
	clients  map[int64]*ethclient.Client
	limiters map[int64]*rate.Limiter

	meta *metadataCache
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRateLimit caps read calls per chain at rps requests per second.
// Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.rps = rps }
}

// WithPollInterval sets how often WaitMined polls for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.poll = d }
}

// NewClient creates a multi-chain client over the registry's chains.
func NewClient(registry *Registry, opts ...Option) *Client {
	c := &Client{
		registry: registry,
		log:      zap.NewNop(),
		poll:     pollInterval,
		clients:  make(map[int64]*ethclient.Client),
		limiters: make(map[int64]*rate.Limiter),
		meta:     newMetadataCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the chains this client serves.
func (c *Client) Registry() *Registry {
	return c.registry
}

// getClient returns an ethclient for the chain, dialing one if needed. The
// write lock is held for the whole dial so concurrent callers never create
// duplicate connections.
func (c *Client) getClient(chainID int64) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, ok := c.registry.Lookup(chainID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	if client, exists := c.clients[chainID]; exists {
		return client, nil
	}

	var lastErr error
	for _, rpcURL := range config.RPCURLs {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), chainIDTimeout)
		remoteID, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			client.Close()
			lastErr = err
			continue
		}

		if remoteID.Cmp(config.ChainID) != 0 {
			client.Close()
			lastErr = fmt.Errorf("chain ID mismatch: expected %s, got %s", config.ChainID.String(), remoteID.String())
			continue
		}

		c.log.Debug("rpc connected", zap.String("chain", config.Key), zap.String("rpc", rpcURL))
		c.clients[chainID] = client
		return client, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no rpc urls")
	}
	return nil, fmt.Errorf("failed to connect to %s: %w", config.Name, lastErr)
}

func (c *Client) limiter(chainID int64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[chainID]
	if !ok {
		limit := rate.Inf
		burst := 1
		if c.rps > 0 {
			limit = rate.Limit(c.rps)
			burst = int(c.rps)
			if burst < 1 {
				burst = 1
			}
		}
		l = rate.NewLimiter(limit, burst)
		c.limiters[chainID] = l
	}
	return l
}

// readClient waits for the chain's read budget and returns its connection.
func (c *Client) readClient(ctx context.Context, chainID int64) (*ethclient.Client, error) {
	if err := c.limiter(chainID).Wait(ctx); err != nil {
		return nil, err
	}
	return c.getClient(chainID)
}

// NativeBalance returns the native balance of an address in the smallest unit.
func (c *Client) NativeBalance(ctx context.Context, chainID int64, address common.Address) (*big.Int, error) {
	client, err := c.readClient(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return client.BalanceAt(ctx, address, nil)
}

// CallContract executes a read-only contract call against the latest block.
func (c *Client) CallContract(ctx context.Context, chainID int64, msg ethereum.CallMsg) ([]byte, error) {
	client, err := c.readClient(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return client.CallContract(ctx, msg, nil)
}

// PendingNonceAt returns the next nonce for an address.
func (c *Client) PendingNonceAt(ctx context.Context, chainID int64, address common.Address) (uint64, error) {
	client, err := c.getClient(chainID)
	if err != nil {
		return 0, err
	}
	return client.PendingNonceAt(ctx, address)
}

// EstimateGas estimates gas for a call.
func (c *Client) EstimateGas(ctx context.Context, chainID int64, msg ethereum.CallMsg) (uint64, error) {
	client, err := c.getClient(chainID)
	if err != nil {
		return 0, err
	}
	return client.EstimateGas(ctx, msg)
}

// SuggestGasPrice returns the suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	client, err := c.getClient(chainID)
	if err != nil {
		return nil, err
	}
	return client.SuggestGasPrice(ctx)
}

// SuggestGasTipCap returns the suggested tip cap for EIP-1559 transactions.
func (c *Client) SuggestGasTipCap(ctx context.Context, chainID int64) (*big.Int, error) {
	client, err := c.getClient(chainID)
	if err != nil {
		return nil, err
	}
	return client.SuggestGasTipCap(ctx)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, chainID int64, tx *types.Transaction) error {
	client, err := c.getClient(chainID)
	if err != nil {
		return err
	}
	return client.SendTransaction(ctx, tx)
}

// WaitMined polls until the transaction has a receipt or ctx ends. Without a
// deadline on ctx this can wait forever.
func (c *Client) WaitMined(ctx context.Context, chainID int64, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.getClient(chainID)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		// not mined yet

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes all client connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[int64]*ethclient.Client)
}
