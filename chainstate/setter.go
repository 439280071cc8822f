package chainstate

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/summit-chain/evmix/indexkv"
)

// Setter is the transactional-by-block write API described in spec.md
// §4.3, grounded on original_source/evm-exporter/src/setter.rs and
// exporter.rs. It holds no buffering of its own: begin_block only records
// the current write height, and every update_* call issues its VKV writes
// immediately; end_block's sole job is to publish latest_height.
type Setter struct {
	conn   indexkv.Conn
	vkv    *indexkv.VKV
	schema indexkv.Schema

	height uint32
}

// NewSetter constructs a Setter over the given backend connection and key
// schema.
func NewSetter(conn indexkv.Conn, schema indexkv.Schema) *Setter {
	return &Setter{
		conn:   conn,
		vkv:    indexkv.NewVKV(conn),
		schema: schema,
	}
}

// BeginBlock records h as the current write height. It does not publish
// any state; readers are unaffected until EndBlock.
func (s *Setter) BeginBlock(h uint32) {
	s.height = h
}

// UpdateBasic writes balance, code, and nonce for A at the current write
// height (three VKV sets).
func (s *Setter) UpdateBasic(ctx context.Context, addr common.Address, basic AccountBasic) error {
	if err := s.vkv.Set(ctx, s.schema.BalanceKey(addr), s.height, indexkv.HexU256(basic.Balance)); err != nil {
		return err
	}
	if err := s.vkv.Set(ctx, s.schema.CodeKey(addr), s.height, common.Bytes2Hex(basic.Code)); err != nil {
		return err
	}
	return s.vkv.Set(ctx, s.schema.NonceKey(addr), s.height, fmt.Sprintf("%d", basic.Nonce))
}

// UpdateState installs a tombstone for (A, W) at the current height when
// value is zero, otherwise writes value.
func (s *Setter) UpdateState(ctx context.Context, addr common.Address, slot common.Hash, value common.Hash) error {
	key := s.schema.StateKey(addr, slot)
	if (value == common.Hash{}) {
		return s.vkv.Del(ctx, key, s.height)
	}
	if err := s.vkv.Set(ctx, key, s.height, indexkv.HexU256FromHash(value)); err != nil {
		return err
	}
	return s.vkv.Set(ctx, s.schema.StateAddrKey(addr), s.height, "1")
}

// SetBlockInfo writes one block record, one height->hash, one hash->height,
// one receipts vector, one statuses vector, and one tx_index entry per
// listed transaction — end to end this is the single call spanning every
// entity produced by a block (spec.md §4.3), issued as separate SETs.
func (s *Setter) SetBlockInfo(
	ctx context.Context,
	block *Block,
	receipts []*types.Receipt,
	statuses []TransactionStatus,
	txIndexList []TxIndexEntry,
) error {
	blockHash := block.Header.Hash()

	// go-ethereum's JSON decoders reject a header with no difficulty and a
	// receipt or log whose logs/topics list is null, so those are stored
	// as zero and empty lists to keep the records readable.
	if block.Header.Difficulty == nil {
		header := types.CopyHeader(block.Header)
		header.Difficulty = new(big.Int)
		block = &Block{Header: header, Transactions: block.Transactions}
	}
	for _, r := range receipts {
		if r.Logs == nil {
			r.Logs = []*types.Log{}
		}
		for _, l := range r.Logs {
			if l.Topics == nil {
				l.Topics = []common.Hash{}
			}
		}
	}

	blockJSON, err := marshal(block)
	if err != nil {
		return errorsmod.Wrap(ErrEncode, err.Error())
	}
	receiptsJSON, err := marshal(receipts)
	if err != nil {
		return errorsmod.Wrap(ErrEncode, err.Error())
	}
	statusesJSON, err := marshal(statuses)
	if err != nil {
		return errorsmod.Wrap(ErrEncode, err.Error())
	}

	height := uint32(block.Header.Number.Uint64())

	if err := s.conn.Set(ctx, s.schema.BlockKey(blockHash), blockJSON, 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	if err := s.conn.Set(ctx, s.schema.BlockHashKey(height), blockHash.Hex(), 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	if err := s.conn.Set(ctx, s.schema.BlockHeightKey(blockHash), fmt.Sprintf("%d", height), 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	if err := s.conn.Set(ctx, s.schema.ReceiptKey(blockHash), receiptsJSON, 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	if err := s.conn.Set(ctx, s.schema.StatusKey(blockHash), statusesJSON, 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	for _, entry := range txIndexList {
		txIndexJSON, err := marshal(entry)
		if err != nil {
			return errorsmod.Wrap(ErrEncode, err.Error())
		}
		txHash := statusesTxHash(statuses, entry.Index)
		if err := s.conn.Set(ctx, s.schema.TxIndexKey(txHash), txIndexJSON, 0).Err(); err != nil {
			return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
		}
	}
	return nil
}

func statusesTxHash(statuses []TransactionStatus, index uint32) common.Hash {
	for _, st := range statuses {
		if st.TxIndex == index {
			return st.TxHash
		}
	}
	return common.Hash{}
}

// SetAccountBasic is the bulk, importer-facing variant of UpdateBasic: it
// writes nonce and balance for a batch of (address, (nonce, balance))
// pairs at height h.
func (s *Setter) SetAccountBasic(ctx context.Context, h uint32, entries map[common.Address]struct {
	Nonce   uint64
	Balance *uint256.Int
}) error {
	for addr, nb := range entries {
		if err := s.vkv.Set(ctx, s.schema.BalanceKey(addr), h, indexkv.HexU256(nb.Balance)); err != nil {
			return err
		}
		if err := s.vkv.Set(ctx, s.schema.NonceKey(addr), h, fmt.Sprintf("%d", nb.Nonce)); err != nil {
			return err
		}
	}
	return nil
}

// SetCodes is the bulk, importer-facing variant writing contract code for
// a batch of addresses at height h.
func (s *Setter) SetCodes(ctx context.Context, h uint32, codes map[common.Address][]byte) error {
	for addr, code := range codes {
		if err := s.vkv.Set(ctx, s.schema.CodeKey(addr), h, common.Bytes2Hex(code)); err != nil {
			return err
		}
	}
	return nil
}

// StorageKV is a single (address, slot) -> value pair for the bulk
// SetAccountStorages importer path.
type StorageKV struct {
	Address common.Address
	Slot    common.Hash
	Value   common.Hash
}

// SetAccountStorages is the bulk, importer-facing variant of UpdateState.
func (s *Setter) SetAccountStorages(ctx context.Context, h uint32, entries []StorageKV) error {
	for _, kv := range entries {
		key := s.schema.StateKey(kv.Address, kv.Slot)
		if (kv.Value == common.Hash{}) {
			if err := s.vkv.Del(ctx, key, h); err != nil {
				return err
			}
			continue
		}
		if err := s.vkv.Set(ctx, key, h, indexkv.HexU256FromHash(kv.Value)); err != nil {
			return err
		}
		if err := s.vkv.Set(ctx, s.schema.StateAddrKey(kv.Address), h, "1"); err != nil {
			return err
		}
	}
	return nil
}

// EndBlock writes latest_height := h. This is the block's sole commit
// point: readers that observe the new latest_height must see every write
// made above for the same block (spec.md's ordering guarantee), which
// holds here because every update_*/set_block_info call above completes,
// synchronously and without error, before EndBlock is invoked by the
// caller.
func (s *Setter) EndBlock(ctx context.Context, h uint32) error {
	if err := s.conn.Set(ctx, s.schema.LatestHeightKey(), fmt.Sprintf("%d", h), 0).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	return nil
}

// Clear wipes the entire namespace. Intended for importer initialization
// only.
func (s *Setter) Clear(ctx context.Context) error {
	if err := s.conn.FlushAll(ctx).Err(); err != nil {
		return errorsmod.Wrap(indexkv.ErrBackend, err.Error())
	}
	return nil
}
