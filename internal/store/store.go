// Package store is the key-value persistence used for transfer history,
// custom tokens and connector session artifacts. Every write replaces the
// whole value stored under a key.
package store

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("store: key not found")

// Keys owned by the portal itself.
const (
	HistoryKey      = "gswap_tx_history"
	CustomTokensKey = "gswap_custom_tokens_by_chain"
)

// Store is a string-keyed blob store scoped to one data directory.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

var codec = sonic.ConfigStd

// Load decodes the value under key into dst. It reports false when the key is
// absent or the stored content does not decode, leaving dst untouched in
// either case; a corrupted value is never surfaced as an error.
func Load[T any](s Store, key string, dst *T) bool {
	raw, err := s.Get(key)
	if err != nil || len(raw) == 0 {
		return false
	}
	var v T
	if err := codec.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

// Save encodes v and overwrites whatever is stored under key.
func Save(s Store, key string, v any) error {
	raw, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key. Missing keys are not an error.
func Clear(s Store, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
