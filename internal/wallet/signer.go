package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer signs transactions for one account.
type Signer interface {
	// Address returns the Ethereum address of the signer
	Address() common.Address

	// SignTransaction signs a transaction with the given chain ID
	SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// SignerType names where a signer's key lives. It is what the connector
// remembers as the last used wallet.
type SignerType string

const (
	SignerTypeKeystore SignerType = "keystore"
)
