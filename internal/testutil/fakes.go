package testutil

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yolodolo42/gswap/internal/token"
)

var (
	ErrFakeRPC      = errors.New("fake rpc failure")
	ErrFakeRejected = errors.New("user rejected the request")
)

// FakeChain is an in-memory chain client. Balances are per chain, keyed by
// the holder for native balances and by token address for contract balances.
type FakeChain struct {
	mu sync.Mutex

	native   map[int64]*big.Int
	tokens   map[int64]map[common.Address]*big.Int
	failures map[common.Address]int
	metadata map[common.Address]token.Metadata

	NativeErr     error
	ReceiptStatus uint64
	WaitErr       error
	// WaitGate, when set, blocks WaitMined until it is closed.
	WaitGate chan struct{}

	NativeCalls int
	TokenCalls  map[common.Address]int
	Waited      []common.Hash
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		native:        make(map[int64]*big.Int),
		tokens:        make(map[int64]map[common.Address]*big.Int),
		failures:      make(map[common.Address]int),
		metadata:      make(map[common.Address]token.Metadata),
		ReceiptStatus: types.ReceiptStatusSuccessful,
		TokenCalls:    make(map[common.Address]int),
	}
}

// SetNative sets the native balance returned on chainID.
func (f *FakeChain) SetNative(chainID int64, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.native[chainID] = v
}

// SetToken sets the balance returned for a token contract on chainID.
func (f *FakeChain) SetToken(chainID int64, addr string, v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens[chainID] == nil {
		f.tokens[chainID] = make(map[common.Address]*big.Int)
	}
	f.tokens[chainID][common.HexToAddress(addr)] = v
}

// FailToken makes the next n balance reads of a token fail.
func (f *FakeChain) FailToken(addr string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[common.HexToAddress(addr)] = n
}

// SetMetadata registers what a contract reports from symbol()/decimals().
func (f *FakeChain) SetMetadata(addr string, symbol string, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := common.HexToAddress(addr)
	f.metadata[a] = token.Metadata{Address: a.Hex(), Symbol: symbol, Decimals: decimals}
}

func (f *FakeChain) NativeBalance(ctx context.Context, chainID int64, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NativeCalls++
	if f.NativeErr != nil {
		return nil, f.NativeErr
	}
	if v, ok := f.native[chainID]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *FakeChain) TokenBalance(ctx context.Context, chainID int64, tokenAddress, holder common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TokenCalls[tokenAddress]++
	if n := f.failures[tokenAddress]; n > 0 {
		f.failures[tokenAddress] = n - 1
		return nil, ErrFakeRPC
	}
	if v, ok := f.tokens[chainID][tokenAddress]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *FakeChain) TokenMetadata(ctx context.Context, chainID int64, tokenAddress common.Address) (token.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	md, ok := f.metadata[tokenAddress]
	if !ok {
		return token.Metadata{}, fmt.Errorf("symbol: %w", ErrFakeRPC)
	}
	return md, nil
}

func (f *FakeChain) WaitMined(ctx context.Context, chainID int64, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	gate := f.WaitGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Waited = append(f.Waited, txHash)
	if f.WaitErr != nil {
		return nil, f.WaitErr
	}
	return &types.Receipt{TxHash: txHash, Status: f.ReceiptStatus}, nil
}

// SentTx is one call recorded by FakeSender.
type SentTx struct {
	ChainID  int64
	From     common.Address
	To       common.Address
	Value    *big.Int
	Data     []byte
	Contract bool
}

// FakeSender records transfers and returns deterministic hashes.
type FakeSender struct {
	mu       sync.Mutex
	Err      error
	Sent     []SentTx
	attempts int
}

func (s *FakeSender) SendNative(ctx context.Context, chainID int64, from, to common.Address, value *big.Int) (common.Hash, error) {
	return s.record(SentTx{ChainID: chainID, From: from, To: to, Value: value})
}

func (s *FakeSender) SendContractCall(ctx context.Context, chainID int64, from, contract common.Address, data []byte) (common.Hash, error) {
	return s.record(SentTx{ChainID: chainID, From: from, To: contract, Data: data, Contract: true})
}

func (s *FakeSender) record(tx SentTx) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.Err != nil {
		return common.Hash{}, s.Err
	}
	s.Sent = append(s.Sent, tx)
	return common.BigToHash(big.NewInt(int64(len(s.Sent)))), nil
}

// Attempts returns how many sends were requested, failed or not.
func (s *FakeSender) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// FakeBackend answers the fee, nonce and gas queries used to build a
// transaction and records broadcasts.
type FakeBackend struct {
	mu sync.Mutex

	Nonce    uint64
	Tip      *big.Int
	GasPrice *big.Int
	Gas      uint64

	NonceErr error
	SendErr  error

	Estimates   []ethereum.CallMsg
	Broadcasts  []*types.Transaction
	BroadcastOn []int64
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Nonce:    7,
		Tip:      big.NewInt(1_000_000_000),
		GasPrice: big.NewInt(3_000_000_000),
		Gas:      21_000,
	}
}

func (b *FakeBackend) PendingNonceAt(ctx context.Context, chainID int64, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NonceErr != nil {
		return 0, b.NonceErr
	}
	return b.Nonce, nil
}

func (b *FakeBackend) SuggestGasTipCap(ctx context.Context, chainID int64) (*big.Int, error) {
	return new(big.Int).Set(b.Tip), nil
}

func (b *FakeBackend) SuggestGasPrice(ctx context.Context, chainID int64) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *FakeBackend) EstimateGas(ctx context.Context, chainID int64, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Estimates = append(b.Estimates, msg)
	return b.Gas, nil
}

func (b *FakeBackend) SendTransaction(ctx context.Context, chainID int64, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return b.SendErr
	}
	b.Broadcasts = append(b.Broadcasts, tx)
	b.BroadcastOn = append(b.BroadcastOn, chainID)
	return nil
}
