// Package chainstate implements the write-side Exporter/Setter (C3) and
// read-side Getter (C4) APIs described in spec.md §4.3/4.4. Both sit on top
// of an indexkv.VKV engine and an indexkv.Conn for the handful of
// unversioned, hash-keyed records (blocks, receipts, statuses, tx index).
package chainstate

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/summit-chain/evmix/indexkv"
)

// AccountBasic mirrors the teacher's statedb.Account, generalized away
// from a Cosmos AccountKeeper and onto the VKV (spec.md §3).
type AccountBasic struct {
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
}

// NewEmptyAccountBasic returns the zero value spec.md §4.4 requires
// get_account_basic to return for an address with no recorded writes.
func NewEmptyAccountBasic() AccountBasic {
	return AccountBasic{Balance: new(uint256.Int)}
}

// Block is the block record written by set_block_info and read back by
// get_block_by_hash, built directly on go-ethereum's header type rather
// than a parallel representation (SPEC_FULL.md §3).
type Block struct {
	Header       *types.Header    `json:"header"`
	Transactions []common.Hash    `json:"transactions"`
}

// TransactionStatus records per-transaction execution outcome metadata
// alongside the full types.Receipt, matching the original schema's
// separate receipts/statuses vectors (spec.md §4.3).
type TransactionStatus struct {
	TxHash          common.Hash `json:"tx_hash"`
	TxIndex         uint32      `json:"tx_index"`
	BlockHash       common.Hash `json:"block_hash"`
	BlockNumber     uint32      `json:"block_number"`
	From            common.Address `json:"from"`
	To              *common.Address `json:"to,omitempty"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
}

// TxIndexEntry is the value stored under the tx_index key: the owning
// block's hash and the transaction's position within it.
type TxIndexEntry struct {
	BlockHash common.Hash `json:"block_hash"`
	Index     uint32      `json:"index"`
}

func marshal(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshal(s string, v interface{}) error {
	return json.Unmarshal([]byte(s), v)
}

func zeroU256() *uint256.Int {
	return new(uint256.Int)
}

func parseU256(hex string) (*uint256.Int, error) {
	u, err := indexkv.U256FromHex(hex)
	if err != nil {
		return nil, errorsmod.Wrapf(indexkv.ErrParse, "%v", err)
	}
	return u, nil
}
