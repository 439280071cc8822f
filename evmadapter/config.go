package evmadapter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// baseFeePerGas is the fixed constant spec.md §4.6 requires for
// block_base_fee_per_gas.
var baseFeePerGas = big.NewInt(100_000_000_000) // 10^11

// Config is the fixed, request-scoped configuration an adapter is built
// with: the height to read at, whether the pending overlay is active,
// and the chain-wide constants spec.md §4.6 resolves against it.
type Config struct {
	Height     uint32
	IsPending  bool
	ChainID    *big.Int
	GasPrice   *big.Int
	Origin     common.Address
	Coinbase   common.Address
}

// BaseFeePerGas returns the fixed base fee constant.
func (c Config) BaseFeePerGas() *big.Int {
	return new(big.Int).Set(baseFeePerGas)
}

// TxConfig encapsulates the read-only current-transaction information a
// StateDB needs for log indexing, adapted from the teacher's
// statedb.TxConfig.
type TxConfig struct {
	TxHash   common.Hash
	TxIndex  uint
	LogIndex uint
}

// NewTxConfig returns a TxConfig.
func NewTxConfig(txHash common.Hash, txIndex, logIndex uint) TxConfig {
	return TxConfig{TxHash: txHash, TxIndex: txIndex, LogIndex: logIndex}
}

// NewEmptyTxConfig constructs a TxConfig for contexts with no enclosing
// transaction (eth_call, eth_estimateGas).
func NewEmptyTxConfig() TxConfig {
	return TxConfig{}
}
