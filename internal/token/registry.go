package token

import "strings"

// Registry holds user-added tokens per chain id. Methods never mutate the
// receiver so a value can be persisted and swapped in wholesale.
type Registry map[int64][]Token

// ForChain returns the custom tokens registered for a chain.
func (r Registry) ForChain(chainID int64) []Token {
	if r == nil {
		return nil
	}
	return r[chainID]
}

// With returns a copy of the registry with t appended to chainID's list.
func (r Registry) With(chainID int64, t Token) Registry {
	next := r.clone()
	list := append([]Token(nil), next[chainID]...)
	t.Custom = false
	next[chainID] = append(list, t)
	return next
}

// Without returns a copy of the registry with the given contract removed from
// chainID's list. Matching is case-insensitive.
func (r Registry) Without(chainID int64, address string) Registry {
	next := r.clone()
	current := next[chainID]
	filtered := make([]Token, 0, len(current))
	for _, t := range current {
		if strings.EqualFold(t.Address, address) {
			continue
		}
		filtered = append(filtered, t)
	}
	next[chainID] = filtered
	return next
}

// Len returns the number of custom tokens across all chains.
func (r Registry) Len() int {
	n := 0
	for _, list := range r {
		n += len(list)
	}
	return n
}

func (r Registry) clone() Registry {
	next := make(Registry, len(r)+1)
	for id, list := range r {
		next[id] = list
	}
	return next
}
