package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/yolodolo42/gswap/internal/store"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
)

// AddCustomToken reads symbol() and decimals() from the contract on the active
// chain, adds it to that chain's custom list, persists the registry and
// refreshes balances.
func (c *Controller) AddCustomToken(ctx context.Context, address string) (token.Token, error) {
	c.mu.Lock()
	c.notice = nil
	if !c.cfg.AllowCustomTokens {
		c.setNoticeLocked(NoticeError, msgCustomDisabled)
		c.mu.Unlock()
		return token.Token{}, ErrCustomTokensDisabled
	}
	if !c.registry.IsSupported(c.chainID) {
		c.setNoticeLocked(NoticeError, msgAddUnsupported)
		c.mu.Unlock()
		return token.Token{}, transfer.ErrUnsupportedChain
	}
	normalized, err := token.NormalizeAddress(address)
	if err != nil {
		c.setNoticeLocked(NoticeError, msgInvalidContract)
		c.mu.Unlock()
		return token.Token{}, err
	}
	contract := common.HexToAddress(normalized)
	if token.Contains(c.catalogLocked(), normalized) {
		c.setNoticeLocked(NoticeError, msgDuplicateToken)
		c.mu.Unlock()
		return token.Token{}, ErrDuplicateToken
	}
	chainID := c.chainID
	c.addingTok = true
	c.mu.Unlock()

	md, err := c.reader.TokenMetadata(ctx, chainID, contract)

	c.mu.Lock()
	c.addingTok = false
	if err != nil {
		c.setNoticeLocked(NoticeError, msgTokenUnreadable)
		c.mu.Unlock()
		c.log.Warn("failed to read token metadata", zap.String("address", contract.Hex()), zap.Error(err))
		return token.Token{}, fmt.Errorf("read token %s: %w", contract.Hex(), err)
	}
	if chainID != c.chainID {
		c.mu.Unlock()
		return token.Token{}, fmt.Errorf("network changed while reading %s", contract.Hex())
	}
	if token.Contains(c.catalogLocked(), normalized) {
		c.setNoticeLocked(NoticeError, msgDuplicateToken)
		c.mu.Unlock()
		return token.Token{}, ErrDuplicateToken
	}

	added := token.ERC20(md.Symbol, md.Decimals, contract.Hex())
	c.custom = c.custom.With(chainID, added)
	persistErr := store.Save(c.store, store.CustomTokensKey, c.custom)
	c.setNoticeLocked(NoticeSuccess, fmt.Sprintf(msgTokenAdded, md.Symbol))
	c.mu.Unlock()

	if persistErr != nil {
		c.log.Warn("failed to persist custom tokens", zap.Error(persistErr))
	}
	c.log.Info("custom token added", zap.Int64("chain_id", chainID), zap.String("symbol", md.Symbol), zap.String("address", contract.Hex()))

	added.Custom = true
	return added, c.RefreshBalances(ctx)
}

// RemoveCustomToken drops a custom token from the active chain's list.
// Addresses match case-insensitively.
func (c *Controller) RemoveCustomToken(address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil

	if !c.cfg.AllowCustomTokens {
		c.setNoticeLocked(NoticeError, msgCustomDisabled)
		return ErrCustomTokensDisabled
	}

	chainID := c.activeChainLocked().ChainIDInt
	found := false
	for _, t := range c.custom.ForChain(chainID) {
		if strings.EqualFold(t.Address, strings.TrimSpace(address)) {
			found = true
			break
		}
	}
	if !found {
		c.setNoticeLocked(NoticeError, msgNotCustom)
		return ErrTokenNotCustom
	}

	c.custom = c.custom.Without(chainID, strings.TrimSpace(address))
	c.ensureSelectedLocked()
	c.setNoticeLocked(NoticeSuccess, msgTokenRemoved)
	if err := store.Save(c.store, store.CustomTokensKey, c.custom); err != nil {
		c.log.Warn("failed to persist custom tokens", zap.Error(err))
		return err
	}
	return nil
}

// CustomTokens returns the custom registry across all chains.
func (c *Controller) CustomTokens() token.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(token.Registry, len(c.custom))
	for id, list := range c.custom {
		out[id] = append([]token.Token(nil), list...)
	}
	return out
}
