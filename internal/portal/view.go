package portal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yolodolo42/gswap/internal/balance"
	"github.com/yolodolo42/gswap/internal/chain"
	"github.com/yolodolo42/gswap/internal/history"
	"github.com/yolodolo42/gswap/internal/token"
	"github.com/yolodolo42/gswap/internal/transfer"
)

// Status is the connection state of the portal.
type Status int

const (
	StatusDisconnected Status = iota
	StatusUnsupported
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusUnsupported:
		return "unsupported network"
	case StatusReady:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Notice is the transient message left by the last action.
type Notice struct {
	Kind    NoticeKind
	Message string
	TxURL   string
}

const (
	msgDisconnected     = "Wallet disconnected."
	msgDisconnectFailed = "Could not disconnect the wallet. Try again."
	msgSwitchFailed     = "Could not switch the wallet's network. Try again."
	msgCustomCleared    = "Custom tokens were removed after switching networks."
	msgCustomDisabled   = "Custom tokens are not enabled."
	msgAddUnsupported   = "Switch to a supported network before adding tokens."
	msgInvalidContract  = "Invalid contract address."
	msgDuplicateToken   = "That token is already listed on this network."
	msgTokenUnreadable  = "Could not read the token. Check that it is an ERC-20 contract on this network."
	msgTokenAdded       = "Token %s added."
	msgTokenRemoved     = "Token removed from the custom list."
	msgNotCustom        = "That token is not in the custom list."
	msgNotConnected     = "Connect your wallet first."
	msgUnsupported      = "Unsupported network. Use %s."
	msgNoSigner         = "Could not initialise the wallet signer. Disconnect and connect again."
	msgBadRecipient     = "Invalid recipient address."
	msgBadAmount        = "Enter a valid amount."
	msgBadToken         = "Select a valid token."
	msgTransferFailed   = "The transaction failed or was rejected."
	msgTransferSent     = "Transfer sent: %s"
)

// submitMessage maps a submission error to the single user-facing line shown
// for it. Every non-validation failure reads the same.
func (c *Controller) submitMessage(err error) string {
	switch {
	case errors.Is(err, transfer.ErrNotConnected):
		return msgNotConnected
	case errors.Is(err, transfer.ErrUnsupportedChain):
		names := make([]string, 0, len(c.registry.Chains()))
		for _, ch := range c.registry.Chains() {
			names = append(names, ch.Name)
		}
		return fmt.Sprintf(msgUnsupported, strings.Join(names, ", "))
	case errors.Is(err, transfer.ErrNoSigner):
		return msgNoSigner
	case errors.Is(err, transfer.ErrInvalidRecipient):
		return msgBadRecipient
	case errors.Is(err, transfer.ErrInvalidAmount):
		return msgBadAmount
	case errors.Is(err, transfer.ErrUnknownToken):
		return msgBadToken
	case errors.Is(err, ErrBusy):
		return err.Error()
	default:
		return msgTransferFailed
	}
}

// HistoryRow is a history record with its explorer link.
type HistoryRow struct {
	history.Record
	URL string
}

// View is a copy of the portal state for rendering.
type View struct {
	Status       Status
	ChainID      int64
	Chain        *chain.ChainConfig // nil when the chain is not supported
	Account      common.Address
	CanSign      bool
	Catalog      []token.Token
	Selected     string
	Recipient    string
	Amount       string
	Balances     balance.Snapshot
	Refreshing   bool
	Submitting   bool
	AddingToken  bool
	CustomTokens bool
	History      []HistoryRow
	Notice       *Notice
}

// SelectedToken returns the catalog entry picked in the form.
func (v View) SelectedToken() (token.Token, bool) {
	return token.Find(v.Catalog, v.Selected)
}

// View snapshots the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Status:       c.statusLocked(),
		ChainID:      c.chainID,
		Account:      c.account,
		CanSign:      c.sender != nil,
		Catalog:      c.catalogLocked(),
		Selected:     c.selectedLocked(),
		Recipient:    c.recipient,
		Amount:       c.amount,
		Balances:     copySnapshot(c.snapshot),
		Refreshing:   c.refreshing,
		Submitting:   c.submitting,
		AddingToken:  c.addingTok,
		CustomTokens: c.cfg.AllowCustomTokens,
	}
	if cfg, ok := c.registry.Lookup(c.chainID); ok {
		v.Chain = cfg
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}

	records := c.history.Records()
	v.History = make([]HistoryRow, 0, len(records))
	for _, r := range records {
		v.History = append(v.History, HistoryRow{Record: r, URL: c.registry.TxURL(r.ChainID, r.Hash)})
	}
	return v
}

func copySnapshot(s balance.Snapshot) balance.Snapshot {
	if s.Balances == nil {
		return s
	}
	out := s
	out.Balances = make(map[string]balance.Entry, len(s.Balances))
	for k, e := range s.Balances {
		out.Balances[k] = e
	}
	return out
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
