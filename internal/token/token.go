package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind distinguishes a chain's base asset from ERC-20 contracts.
type Kind string

const (
	KindNative Kind = "native"
	KindERC20  Kind = "erc20"
)

var ErrInvalidAddress = errors.New("invalid contract address")

// Token is one entry of a chain's catalog. The JSON shape matches what is
// persisted for custom tokens; Custom is derived when catalogs are merged.
type Token struct {
	Symbol   string `json:"symbol"`
	Kind     Kind   `json:"type"`
	Decimals uint8  `json:"decimals"`
	Address  string `json:"address,omitempty"`
	Custom   bool   `json:"-"`
}

// Native returns a native token entry.
func Native(symbol string, decimals uint8) Token {
	return Token{Symbol: symbol, Kind: KindNative, Decimals: decimals}
}

// ERC20 returns a contract token entry. The address is kept as given; Key
// normalizes it.
func ERC20(symbol string, decimals uint8, address string) Token {
	return Token{Symbol: symbol, Kind: KindERC20, Decimals: decimals, Address: address}
}

// IsNative reports whether the token is transferred without a contract call.
func (t Token) IsNative() bool {
	return t.Kind == KindNative
}

// Key returns the identity key: native:<SYMBOL> or erc20:<lower-cased address>.
func (t Token) Key() string {
	if t.IsNative() {
		return "native:" + t.Symbol
	}
	return "erc20:" + strings.ToLower(t.Address)
}

// ContractAddress returns the parsed contract address. Zero for native tokens.
func (t Token) ContractAddress() common.Address {
	if t.IsNative() {
		return common.Address{}
	}
	return common.HexToAddress(t.Address)
}

// NormalizeAddress validates a hex address and lower-cases it.
func NormalizeAddress(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// Merge builds a catalog: defaults first, then customs whose identity key is
// not present yet. First registration wins, so defaults beat customs and a
// custom listed twice only appears once. Customs without an address are skipped.
func Merge(defaults, custom []Token) []Token {
	merged := make([]Token, 0, len(defaults)+len(custom))
	known := make(map[string]struct{}, len(defaults)+len(custom))

	for _, t := range defaults {
		key := t.Key()
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		t.Custom = false
		merged = append(merged, t)
	}

	for _, t := range custom {
		if t.Address == "" {
			continue
		}
		t.Kind = KindERC20
		key := t.Key()
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		t.Custom = true
		merged = append(merged, t)
	}

	return merged
}

// Find returns the catalog entry with the given identity key.
func Find(catalog []Token, key string) (Token, bool) {
	for _, t := range catalog {
		if t.Key() == key {
			return t, true
		}
	}
	return Token{}, false
}

// Contains reports whether a contract address is already in the catalog.
func Contains(catalog []Token, address string) bool {
	addr := strings.ToLower(address)
	for _, t := range catalog {
		if !t.IsNative() && strings.ToLower(t.Address) == addr {
			return true
		}
	}
	return false
}

// Metadata is what an ERC-20 contract reports about itself.
type Metadata struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}
