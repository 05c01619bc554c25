package balance

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Entry is one token's balance. Unavailable means the read failed, which is
// not the same as a zero balance.
type Entry struct {
	Raw         *big.Int
	Amount      decimal.Decimal
	Unavailable bool
}

// NewEntry scales a raw on-chain amount by the token's decimals.
func NewEntry(raw *big.Int, decimals uint8) Entry {
	if raw == nil {
		raw = new(big.Int)
	}
	return Entry{
		Raw:    raw,
		Amount: decimal.NewFromBigInt(raw, -int32(decimals)),
	}
}

// UnavailableEntry marks a failed read.
func UnavailableEntry() Entry {
	return Entry{Unavailable: true}
}

// Snapshot maps identity keys to balances for one account on one chain.
type Snapshot struct {
	ChainID   int64
	Account   common.Address
	Balances  map[string]Entry
	FetchedAt time.Time
}

// Empty reports whether the snapshot holds no balances.
func (s Snapshot) Empty() bool {
	return len(s.Balances) == 0
}

// Get returns the balance for an identity key.
func (s Snapshot) Get(key string) (Entry, bool) {
	e, ok := s.Balances[key]
	return e, ok
}

// Matches reports whether the snapshot was taken for this account and chain.
func (s Snapshot) Matches(account common.Address, chainID int64) bool {
	return s.Account == account && s.ChainID == chainID
}

var displayFloor = decimal.New(1, -4)

// Format renders a balance tile value: N/A for failed reads, 0, <0.0001 for
// dust, otherwise four decimals.
func Format(e Entry) string {
	if e.Unavailable {
		return "N/A"
	}
	if e.Amount.IsZero() {
		return "0"
	}
	if e.Amount.LessThan(displayFloor) {
		return "<0.0001"
	}
	return e.Amount.StringFixed(4)
}

// FormatFull renders the exact amount without trailing zeros.
func FormatFull(e Entry) string {
	if e.Unavailable {
		return "N/A"
	}
	return e.Amount.String()
}
