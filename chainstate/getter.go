package chainstate

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/redis/go-redis/v9"

	"github.com/summit-chain/evmix/indexkv"
)

// Getter is the read-side API over the VKV described in spec.md §4.4,
// grounded one-to-one on original_source/evm-exporter/src/getter.rs.
// Every operation is parameterized by height except the pending_* and
// latest/lowest height accessors and the hash-keyed block, receipt,
// status, and tx-index lookups.
type Getter struct {
	conn   indexkv.Conn
	vkv    *indexkv.VKV
	schema indexkv.Schema
}

// NewGetter constructs a Getter over the given backend connection and key
// schema.
func NewGetter(conn indexkv.Conn, schema indexkv.Schema) *Getter {
	return &Getter{
		conn:   conn,
		vkv:    indexkv.NewVKV(conn),
		schema: schema,
	}
}

// LatestHeight returns the chain's current indexed height, or 0 if none
// has ever been published.
func (g *Getter) LatestHeight(ctx context.Context) (uint32, error) {
	return g.readHeightScalar(ctx, g.schema.LatestHeightKey())
}

// LowestHeight returns the genesis / earliest indexed height, or 0.
func (g *Getter) LowestHeight(ctx context.Context) (uint32, error) {
	return g.readHeightScalar(ctx, g.schema.LowestHeightKey())
}

func (g *Getter) readHeightScalar(ctx context.Context, key string) (uint32, error) {
	s, err := g.conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	h, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errorsmod.Wrap(indexkv.ErrParse, err.Error())
	}
	return uint32(h), nil
}

// GetBalance returns A's balance at height h, or zero if never written.
func (g *Getter) GetBalance(ctx context.Context, h uint32, addr common.Address) (*uint256.Int, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.BalanceKey(addr), h)
	if err != nil {
		return nil, err
	}
	if !found {
		return zeroU256(), nil
	}
	return parseU256(raw)
}

// GetNonce returns A's nonce at height h, or zero.
func (g *Getter) GetNonce(ctx context.Context, h uint32, addr common.Address) (uint64, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.NonceKey(addr), h)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errorsmod.Wrap(indexkv.ErrParse, err.Error())
	}
	return n, nil
}

// GetByteCode returns A's contract code at height h, or empty.
func (g *Getter) GetByteCode(ctx context.Context, h uint32, addr common.Address) ([]byte, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.CodeKey(addr), h)
	if err != nil {
		return nil, err
	}
	if !found {
		return []byte{}, nil
	}
	return common.FromHex(raw), nil
}

// GetState returns storage slot W of A at height h, or all-zero.
func (g *Getter) GetState(ctx context.Context, h uint32, addr common.Address, slot common.Hash) (common.Hash, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.StateKey(addr, slot), h)
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return common.Hash{}, nil
	}
	return common.HexToHash(raw), nil
}

// GetAccountBasic returns balance, nonce, and code for A at height h in a
// single struct, zero-valued if nothing was ever written.
func (g *Getter) GetAccountBasic(ctx context.Context, h uint32, addr common.Address) (AccountBasic, error) {
	balance, err := g.GetBalance(ctx, h, addr)
	if err != nil {
		return AccountBasic{}, err
	}
	nonce, err := g.GetNonce(ctx, h, addr)
	if err != nil {
		return AccountBasic{}, err
	}
	code, err := g.GetByteCode(ctx, h, addr)
	if err != nil {
		return AccountBasic{}, err
	}
	return AccountBasic{Balance: balance, Nonce: nonce, Code: code}, nil
}

// AddrStateExists reports whether A had any storage recorded as of height
// h, the same point-in-time semantics as every other C4 read.
func (g *Getter) AddrStateExists(ctx context.Context, h uint32, addr common.Address) (bool, error) {
	_, found, err := g.vkv.Get(ctx, g.schema.StateAddrKey(addr), h)
	if err != nil {
		return false, err
	}
	return found, nil
}

// GetBlockHashByHeight returns the canonical block hash at height, or
// (zero, false) if absent.
func (g *Getter) GetBlockHashByHeight(ctx context.Context, height uint32) (common.Hash, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.BlockHashKey(height)).Result()
	if err == redis.Nil {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	return common.HexToHash(s), true, nil
}

// GetHeightByBlockHash is the inverse of GetBlockHashByHeight.
func (g *Getter) GetHeightByBlockHash(ctx context.Context, hash common.Hash) (uint32, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.BlockHeightKey(hash)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	h, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false, errorsmod.Wrap(indexkv.ErrParse, err.Error())
	}
	return uint32(h), true, nil
}

// GetBlockByHash returns the full block record, or (nil, false) if absent.
func (g *Getter) GetBlockByHash(ctx context.Context, hash common.Hash) (*Block, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.BlockKey(hash)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	var b Block
	if err := unmarshal(s, &b); err != nil {
		return nil, false, errorsmod.Wrap(ErrEncode, err.Error())
	}
	return &b, true, nil
}

// GetTransactionReceiptByBlockHash returns the receipts vector for a
// block, or (nil, false) if absent.
func (g *Getter) GetTransactionReceiptByBlockHash(ctx context.Context, hash common.Hash) ([]*types.Receipt, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.ReceiptKey(hash)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	var receipts []*types.Receipt
	if err := unmarshal(s, &receipts); err != nil {
		return nil, false, errorsmod.Wrap(ErrEncode, err.Error())
	}
	return receipts, true, nil
}

// GetTransactionStatusByBlockHash returns the statuses vector for a
// block, or (nil, false) if absent.
func (g *Getter) GetTransactionStatusByBlockHash(ctx context.Context, hash common.Hash) ([]TransactionStatus, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.StatusKey(hash)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	var statuses []TransactionStatus
	if err := unmarshal(s, &statuses); err != nil {
		return nil, false, errorsmod.Wrap(ErrEncode, err.Error())
	}
	return statuses, true, nil
}

// GetTransactionIndexByTxHash returns the owning block hash and position
// of txHash, or (zero, false) if absent.
func (g *Getter) GetTransactionIndexByTxHash(ctx context.Context, txHash common.Hash) (TxIndexEntry, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.TxIndexKey(txHash)).Result()
	if err == redis.Nil {
		return TxIndexEntry{}, false, nil
	}
	if err != nil {
		return TxIndexEntry{}, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	var entry TxIndexEntry
	if err := unmarshal(s, &entry); err != nil {
		return TxIndexEntry{}, false, errorsmod.Wrap(ErrEncode, err.Error())
	}
	return entry, true, nil
}

// GetPendingBalance, GetPendingNonce, GetPendingCode, GetPendingState read
// the unversioned pending overlay. A missing overlay entry resolves to
// (zero, false) — spec.md's "missing overlay ⇒ none".
func (g *Getter) GetPendingBalance(ctx context.Context, addr common.Address) (*uint256.Int, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.PendingBalanceKey(addr)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	u, err := parseU256(s)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (g *Getter) GetPendingNonce(ctx context.Context, addr common.Address) (uint64, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.PendingNonceKey(addr)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, errorsmod.Wrap(indexkv.ErrParse, err.Error())
	}
	return n, true, nil
}

func (g *Getter) GetPendingCode(ctx context.Context, addr common.Address) ([]byte, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.PendingCodeKey(addr)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	return common.FromHex(s), true, nil
}

func (g *Getter) GetPendingState(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, bool, error) {
	s, err := g.conn.Get(ctx, g.schema.PendingStateKey(addr, slot)).Result()
	if err == redis.Nil {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	return common.HexToHash(s), true, nil
}

// GetTotalIssuance returns the native-token total issuance at height h.
func (g *Getter) GetTotalIssuance(ctx context.Context, h uint32) (*uint256.Int, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.TotalIssuanceKey(), h)
	if err != nil {
		return nil, err
	}
	if !found {
		return zeroU256(), nil
	}
	return parseU256(raw)
}

// GetAllowances returns the FRC-20 allowance owner has granted spender at
// height h.
func (g *Getter) GetAllowances(ctx context.Context, h uint32, owner, spender common.Address) (*uint256.Int, error) {
	raw, found, err := g.vkv.Get(ctx, g.schema.AllowanceKey(owner, spender), h)
	if err != nil {
		return nil, err
	}
	if !found {
		return zeroU256(), nil
	}
	return parseU256(raw)
}

// ResolveBlockNumber implements spec.md §4.4's block-number resolution
// table, used by every RPC accepting a BlockNumber.
func (g *Getter) ResolveBlockNumber(ctx context.Context, bn BlockNumber) (height uint32, pending bool, err error) {
	switch bn.Kind {
	case BlockNumberLatest:
		h, err := g.LatestHeight(ctx)
		return h, false, err
	case BlockNumberEarliest:
		return 1, false, nil
	case BlockNumberPending:
		h, err := g.LatestHeight(ctx)
		return h, true, err
	case BlockNumberNum:
		return bn.Num, false, nil
	case BlockNumberHash:
		h, found, err := g.GetHeightByBlockHash(ctx, bn.Hash)
		if err != nil {
			return 0, false, err
		}
		if !found {
			return 0, false, errorsmod.Wrapf(ErrNotFound, "block hash %s not found", bn.Hash)
		}
		return h, false, nil
	default:
		return 0, false, errorsmod.Wrapf(indexkv.ErrParse, "unknown block number kind %d", bn.Kind)
	}
}

// BlockNumberKind discriminates the variants of an Ethereum JSON-RPC
// block tag.
type BlockNumberKind int

const (
	BlockNumberLatest BlockNumberKind = iota
	BlockNumberEarliest
	BlockNumberPending
	BlockNumberNum
	BlockNumberHash
)

// BlockNumber is the tagged union spec.md §4.4 resolves against the VKV.
type BlockNumber struct {
	Kind             BlockNumberKind
	Num              uint32
	Hash             common.Hash
	RequireCanonical bool
}
