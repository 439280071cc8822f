// Package indexkv implements the deterministic key schema (C1) and the
// versioned key-value engine (C2) that every other component of this
// service reads and writes through.
package indexkv

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Schema builds the deterministic byte-string keys described in spec.md
// §4.1, namespaced under a configurable prefix P.
type Schema struct {
	Prefix string
}

// NewSchema returns a Schema namespaced under prefix.
func NewSchema(prefix string) Schema {
	return Schema{Prefix: prefix}
}

// LatestHeightKey is the key holding the chain's current indexed height.
func (s Schema) LatestHeightKey() string {
	return fmt.Sprintf("%s:height", s.Prefix)
}

// LowestHeightKey is the key holding the genesis / earliest indexed height.
func (s Schema) LowestHeightKey() string {
	return fmt.Sprintf("%s:lowest_height", s.Prefix)
}

// BalanceKey is the VKV base key for an account's balance.
func (s Schema) BalanceKey(addr common.Address) string {
	return fmt.Sprintf("%s:balance:addr.%s", s.Prefix, hexAddr(addr))
}

// CodeKey is the VKV base key for an account's contract code.
func (s Schema) CodeKey(addr common.Address) string {
	return fmt.Sprintf("%s:code:addr.%s", s.Prefix, hexAddr(addr))
}

// NonceKey is the VKV base key for an account's nonce.
func (s Schema) NonceKey(addr common.Address) string {
	return fmt.Sprintf("%s:nonce:addr.%s", s.Prefix, hexAddr(addr))
}

// StateKey is the VKV base key for a single storage slot.
func (s Schema) StateKey(addr common.Address, index common.Hash) string {
	return fmt.Sprintf("%s:state:addr.%s:index:u256.%s", s.Prefix, hexAddr(addr), HexU256FromHash(index))
}

// StateAddrKey is the sentinel key used by addr_state_exists to check
// whether any storage has ever been recorded for an address.
func (s Schema) StateAddrKey(addr common.Address) string {
	return fmt.Sprintf("%s:state:addr.%s", s.Prefix, hexAddr(addr))
}

// BlockKey is the key holding the full block record, indexed by hash.
func (s Schema) BlockKey(hash common.Hash) string {
	return fmt.Sprintf("%s:block:hash.%s", s.Prefix, hash.Hex())
}

// BlockHashKey maps a height to its canonical block hash.
func (s Schema) BlockHashKey(height uint32) string {
	return fmt.Sprintf("%s:block_hash:height.%d", s.Prefix, height)
}

// BlockHeightKey maps a block hash back to its height.
func (s Schema) BlockHeightKey(hash common.Hash) string {
	return fmt.Sprintf("%s:block_height:hash.%s", s.Prefix, hash.Hex())
}

// ReceiptKey holds the vector of receipts for a block, keyed by hash.
func (s Schema) ReceiptKey(hash common.Hash) string {
	return fmt.Sprintf("%s:receipt:hash.%s", s.Prefix, hash.Hex())
}

// StatusKey holds the vector of transaction statuses for a block.
func (s Schema) StatusKey(hash common.Hash) string {
	return fmt.Sprintf("%s:status:hash.%s", s.Prefix, hash.Hex())
}

// TxIndexKey maps a transaction hash to its (block hash, position).
func (s Schema) TxIndexKey(txHash common.Hash) string {
	return fmt.Sprintf("%s:tx_index:hash.%s", s.Prefix, txHash.Hex())
}

// AllowanceKey is the VKV base key for an FRC-20 allowance.
func (s Schema) AllowanceKey(owner, spender common.Address) string {
	return fmt.Sprintf("%s:allowance:owner.%s:spender.%s", s.Prefix, hexAddr(owner), hexAddr(spender))
}

// TotalIssuanceKey is the VKV base key for the native-token total issuance.
func (s Schema) TotalIssuanceKey() string {
	return fmt.Sprintf("%s:total_issuance", s.Prefix)
}

// PendingBalanceKey, PendingNonceKey, PendingCodeKey, PendingStateKey are
// unversioned keys for the pending overlay described in spec.md §3.
func (s Schema) PendingBalanceKey(addr common.Address) string {
	return fmt.Sprintf("%s:pending_balance:addr.%s", s.Prefix, hexAddr(addr))
}

func (s Schema) PendingNonceKey(addr common.Address) string {
	return fmt.Sprintf("%s:pending_nonce:addr.%s", s.Prefix, hexAddr(addr))
}

func (s Schema) PendingCodeKey(addr common.Address) string {
	return fmt.Sprintf("%s:pending_code:addr.%s", s.Prefix, hexAddr(addr))
}

func (s Schema) PendingStateKey(addr common.Address, index common.Hash) string {
	return fmt.Sprintf("%s:pending_state:addr.%s:index:u256.%s", s.Prefix, hexAddr(addr), HexU256FromHash(index))
}

func hexAddr(addr common.Address) string {
	return common.Bytes2Hex(addr.Bytes())
}

// HexU256 renders u as the canonical zero-padded, 0x-prefixed 64-nibble
// hex string spec.md §4.1 requires for every U256 value stored in the
// VKV.
func HexU256(u *uint256.Int) string {
	if u == nil {
		u = new(uint256.Int)
	}
	var b [32]byte
	u.WriteToArray32(&b)
	return "0x" + common.Bytes2Hex(b[:])
}

// HexU256FromHash treats a 32-byte word as a big-endian integer and
// renders it the same way HexU256 does, used for storage slot indices.
func HexU256FromHash(h common.Hash) string {
	return "0x" + common.Bytes2Hex(h.Bytes())
}

// U256FromHex parses the canonical hex form produced by HexU256. An empty
// string decodes to zero.
func U256FromHex(s string) (*uint256.Int, error) {
	u := new(uint256.Int)
	if s == "" {
		return u, nil
	}
	// SetFromHex rejects leading zeros, so strip the padding HexU256 adds.
	digits := strings.TrimLeft(strings.TrimPrefix(s, "0x"), "0")
	if digits == "" {
		digits = "0"
	}
	if err := u.SetFromHex("0x" + digits); err != nil {
		return nil, fmt.Errorf("indexkv: invalid u256 hex %q: %w", s, err)
	}
	return u, nil
}
