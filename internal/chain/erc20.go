package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// ERC20ABI is the subset of the ERC-20 interface used for reads and transfers.
var ERC20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}

// PackTransfer encodes transfer(to, value) calldata.
func PackTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, value)
}

// PackBalanceOf encodes balanceOf(owner) calldata.
func PackBalanceOf(owner common.Address) ([]byte, error) {
	return ERC20ABI.Pack("balanceOf", owner)
}

func unpackBigInt(method string, data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty result (not a contract?)", method)
	}
	out, err := ERC20ABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

func unpackUint8(method string, data []byte) (uint8, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%s: empty result (not a contract?)", method)
	}
	out, err := ERC20ABI.Unpack(method, data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

// unpackString decodes a string result. Some older tokens return bytes32
// instead of an ABI string, so short payloads are read as raw bytes.
func unpackString(method string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%s: empty result (not a contract?)", method)
	}
	if len(data) < 64 {
		return strings.TrimRight(string(data), "\x00"), nil
	}
	out, err := ERC20ABI.Unpack(method, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return s, nil
}
