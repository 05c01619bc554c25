package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"

	"github.com/yolodolo42/gswap/internal/token"
)

const (
	metadataTTL     = 24 * time.Hour
	metadataCleanup = time.Hour
)

type metadataCache struct {
	c *cache.Cache
}

func newMetadataCache() *metadataCache {
	return &metadataCache{c: cache.New(metadataTTL, metadataCleanup)}
}

func metadataKey(chainID int64, addr common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(addr.Hex()))
}

func (m *metadataCache) get(chainID int64, addr common.Address) (token.Metadata, bool) {
	v, ok := m.c.Get(metadataKey(chainID, addr))
	if !ok {
		return token.Metadata{}, false
	}
	md, ok := v.(token.Metadata)
	return md, ok
}

func (m *metadataCache) set(chainID int64, addr common.Address, md token.Metadata) {
	m.c.SetDefault(metadataKey(chainID, addr), md)
}

// TokenBalance returns the raw ERC-20 balance of holder.
func (c *Client) TokenBalance(ctx context.Context, chainID int64, tokenAddress, holder common.Address) (*big.Int, error) {
	data, err := PackBalanceOf(holder)
	if err != nil {
		return nil, err
	}

	result, err := c.CallContract(ctx, chainID, ethereum.CallMsg{To: &tokenAddress, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}

	return unpackBigInt("balanceOf", result)
}

// TokenMetadata reads symbol(), decimals() and, best effort, name() from a
// contract. Results are cached per chain and address.
func (c *Client) TokenMetadata(ctx context.Context, chainID int64, tokenAddress common.Address) (token.Metadata, error) {
	if md, ok := c.meta.get(chainID, tokenAddress); ok {
		return md, nil
	}

	symbol, err := c.callString(ctx, chainID, tokenAddress, "symbol")
	if err != nil {
		return token.Metadata{}, err
	}

	decimals, err := c.callUint8(ctx, chainID, tokenAddress, "decimals")
	if err != nil {
		return token.Metadata{}, err
	}

	name, _ := c.callString(ctx, chainID, tokenAddress, "name")

	md := token.Metadata{
		Address:  tokenAddress.Hex(),
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
	}
	c.meta.set(chainID, tokenAddress, md)
	return md, nil
}

func (c *Client) call(ctx context.Context, chainID int64, to common.Address, method string) ([]byte, error) {
	data, err := ERC20ABI.Pack(method)
	if err != nil {
		return nil, err
	}
	out, err := c.CallContract(ctx, chainID, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (c *Client) callString(ctx context.Context, chainID int64, to common.Address, method string) (string, error) {
	out, err := c.call(ctx, chainID, to, method)
	if err != nil {
		return "", err
	}
	return unpackString(method, out)
}

func (c *Client) callUint8(ctx context.Context, chainID int64, to common.Address, method string) (uint8, error) {
	out, err := c.call(ctx, chainID, to, method)
	if err != nil {
		return 0, err
	}
	return unpackUint8(method, out)
}
