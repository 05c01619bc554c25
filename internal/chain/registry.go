package chain

import (
	"errors"
	"fmt"
)

var (
	ErrNoChains       = errors.New("no chains configured")
	ErrDuplicateChain = errors.New("duplicate chain id")
	ErrUnknownChain   = errors.New("unknown chain")
)

// Registry is the immutable set of supported chains with one default.
type Registry struct {
	chains []*ChainConfig
	byID   map[int64]*ChainConfig
	byKey  map[string]*ChainConfig
	def    *ChainConfig
}

// NewRegistry validates the chain set. A zero defaultID selects the first chain.
func NewRegistry(chains []*ChainConfig, defaultID int64) (*Registry, error) {
	if len(chains) == 0 {
		return nil, ErrNoChains
	}

	r := &Registry{
		chains: make([]*ChainConfig, 0, len(chains)),
		byID:   make(map[int64]*ChainConfig, len(chains)),
		byKey:  make(map[string]*ChainConfig, len(chains)),
	}
	for _, c := range chains {
		if c.ChainID == nil || c.ChainID.Int64() != c.ChainIDInt {
			return nil, fmt.Errorf("chain %s: ChainID and ChainIDInt mismatch", c.Key)
		}
		if _, dup := r.byID[c.ChainIDInt]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateChain, c.ChainIDInt)
		}
		r.chains = append(r.chains, c)
		r.byID[c.ChainIDInt] = c
		if c.Key != "" {
			r.byKey[c.Key] = c
		}
	}

	if defaultID == 0 {
		r.def = r.chains[0]
		return r, nil
	}
	def, ok := r.byID[defaultID]
	if !ok {
		return nil, fmt.Errorf("default chain %d: %w", defaultID, ErrUnknownChain)
	}
	r.def = def
	return r, nil
}

// MustRegistry is NewRegistry for static chain tables.
func MustRegistry(chains []*ChainConfig, defaultID int64) *Registry {
	r, err := NewRegistry(chains, defaultID)
	if err != nil {
		panic(err)
	}
	return r
}

// Subset narrows the registry to the given chain keys, preserving order. The
// default is kept when it survives, otherwise the first remaining chain is used.
func (r *Registry) Subset(keys []string) (*Registry, error) {
	if len(keys) == 0 {
		return r, nil
	}
	picked := make([]*ChainConfig, 0, len(keys))
	for _, k := range keys {
		c, ok := r.byKey[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChain, k)
		}
		picked = append(picked, c)
	}
	defaultID := int64(0)
	for _, c := range picked {
		if c == r.def {
			defaultID = c.ChainIDInt
		}
	}
	return NewRegistry(picked, defaultID)
}

// Resolve returns the configured chain for chainID, or the default chain when
// the id is zero or not supported.
func (r *Registry) Resolve(chainID int64) *ChainConfig {
	if c, ok := r.byID[chainID]; ok {
		return c
	}
	return r.def
}

// Lookup returns the chain for chainID without falling back.
func (r *Registry) Lookup(chainID int64) (*ChainConfig, bool) {
	c, ok := r.byID[chainID]
	return c, ok
}

// ByKey looks a chain up by its short key ("bsc", "polygon", ...).
func (r *Registry) ByKey(key string) (*ChainConfig, bool) {
	c, ok := r.byKey[key]
	return c, ok
}

// IsSupported reports whether chainID is in the registry.
func (r *Registry) IsSupported(chainID int64) bool {
	_, ok := r.byID[chainID]
	return ok
}

// Default returns the designated default chain.
func (r *Registry) Default() *ChainConfig {
	return r.def
}

// Chains returns the supported chains in configuration order.
func (r *Registry) Chains() []*ChainConfig {
	return append([]*ChainConfig(nil), r.chains...)
}

// TxURL links hash on chainID's explorer, using the default chain's explorer
// for chains that are no longer configured.
func (r *Registry) TxURL(chainID int64, hash string) string {
	return r.Resolve(chainID).TxURL(hash)
}
