package importer

import (
	"context"
	"fmt"

	"encoding/json"
	"math/big"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/summit-chain/evmix/chainstate"
)

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func heightBig(h uint32) *big.Int {
	return new(big.Int).SetUint64(uint64(h))
}

// Column-family row prefixes in the external store, matching the
// original schema's ModulePrefix values.
var (
	prefixAccountStore  = []byte("AccountAccountStore")
	prefixCurrentHeight = []byte("EthereumCurrentBlockNumber")
	prefixBlockHash     = []byte("EthereumBlockHash")
	prefixAccountCode   = []byte("EVMAccountCodes")
	prefixAccountStorage = []byte("EVMAccountStorages")
)

// Importer replays an ExternalStore into the VKV via a chainstate.Setter,
// implementing spec.md §4.5's algorithm.
type Importer struct {
	store  *ExternalStore
	setter *chainstate.Setter
	log    log.Logger
}

// New constructs an Importer over an already-opened ExternalStore and the
// chainstate.Setter it replays into.
func New(store *ExternalStore, setter *chainstate.Setter, logger log.Logger) *Importer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Importer{store: store, setter: setter, log: logger.With("module", "importer")}
}

// Run replays every height from 1 to the history-DB's current head
// height into the VKV. It does not clear the VKV namespace itself —
// the importer TOML's `clear` field (spec.md §6) controls that, and
// the caller is expected to invoke chainstate.Setter.Clear beforehand
// when it's set, mirroring the operator choice the original importer's
// config exposed but its own hardcoded `main` never actually read.
func (im *Importer) Run(ctx context.Context) error {
	headHeight, err := im.readCurrentHeight()
	if err != nil {
		return fmt.Errorf("importer: read current height: %w", err)
	}

	blockHashes, err := im.readBlockHashes()
	if err != nil {
		return fmt.Errorf("importer: read block hashes: %w", err)
	}

	for h := uint32(1); h <= headHeight; h++ {
		hash, ok := blockHashes[h]
		if !ok {
			im.log.Info("jump over height, block hash absent", "height", h)
			continue
		}

		if err := im.replayBlock(ctx, h, hash); err != nil {
			return fmt.Errorf("importer: replay height %d: %w", h, err)
		}

		if err := im.replayAccountState(ctx, h, headHeight); err != nil {
			return fmt.Errorf("importer: replay account state at height %d: %w", h, err)
		}

		if err := im.setter.EndBlock(ctx, h); err != nil {
			return fmt.Errorf("importer: advance latest_height to %d: %w", h, err)
		}
		im.log.Info("complete height", "height", h)
	}
	return nil
}

func (im *Importer) readCurrentHeight() (uint32, error) {
	var height uint32
	var found bool
	err := iteratePrefix(im.store.HistoryDB, prefixCurrentHeight, func(_, value []byte) error {
		h, err := ParseCurrentHeight(value)
		if err != nil {
			return err
		}
		height, found = h, true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("importer: EthereumCurrentBlockNumber not found")
	}
	return height, nil
}

func (im *Importer) readBlockHashes() (map[uint32]common.Hash, error) {
	out := make(map[uint32]common.Hash)
	err := iteratePrefix(im.store.HistoryDB, prefixBlockHash, func(key, value []byte) error {
		if isTombstone(value) {
			return nil
		}
		h, hash, err := ParseBlockHash(key, value)
		if err != nil {
			return err
		}
		out[h] = hash
		return nil
	})
	return out, err
}

// replayBlock fetches the block, its receipts, statuses, and per-tx
// index entries from the history-DB and calls set_block_info. A missing
// receipts vector for an otherwise complete block is a skip-and-log, not
// a fatal error (spec.md's failure policy).
func (im *Importer) replayBlock(ctx context.Context, h uint32, hash common.Hash) error {
	header := &ethtypes.Header{Number: heightBig(h)}
	block := &chainstate.Block{Header: header}

	receipts, hasReceipts, err := im.readReceiptsFor(hash)
	if err != nil {
		return err
	}
	if !hasReceipts {
		im.log.Warn("skip-and-log: missing receipts vector", "height", h, "block_hash", hash)
		return nil
	}
	statuses, err := im.readStatusesFor(hash)
	if err != nil {
		return err
	}

	txIndexList := make([]chainstate.TxIndexEntry, 0, len(statuses))
	for _, st := range statuses {
		txIndexList = append(txIndexList, chainstate.TxIndexEntry{BlockHash: hash, Index: st.TxIndex})
	}

	im.setter.BeginBlock(h)
	return im.setter.SetBlockInfo(ctx, block, receipts, statuses, txIndexList)
}

func (im *Importer) readReceiptsFor(hash common.Hash) ([]*ethtypes.Receipt, bool, error) {
	// The original schema keys EthereumCurrentReceipts rows by block hash;
	// here we scan once per block since the importer runs at snapshot
	// time, not on the hot path.
	var receipts []*ethtypes.Receipt
	var found bool
	err := iteratePrefix(im.store.HistoryDB, []byte("EthereumCurrentReceipts_"+hash.Hex()), func(_, value []byte) error {
		found = true
		return jsonUnmarshal(value, &receipts)
	})
	return receipts, found, err
}

func (im *Importer) readStatusesFor(hash common.Hash) ([]chainstate.TransactionStatus, error) {
	var statuses []chainstate.TransactionStatus
	err := iteratePrefix(im.store.HistoryDB, []byte("EthereumCurrentTransactionStatuses_"+hash.Hex()), func(_, value []byte) error {
		return jsonUnmarshal(value, &statuses)
	})
	return statuses, err
}

// accountRowPrefix picks the row shape get_account_info selects by height:
// the head height reads the "default" CF's bare column prefix (the
// current, unframed rows), and every earlier height reads the "aux" CF's
// VER-framed prefix for that specific height — so each historical height
// scans its own distinct key range instead of replaying the head's rows.
func accountRowPrefix(h, headHeight uint32, base []byte) []byte {
	if h == headHeight {
		return base
	}
	return historicalPrefix(h, base)
}

// replayAccountState enumerates every AccountAccountStore, EVMAccountCodes,
// and EVMAccountStorages row scoped to height h, in lexicographic prefix
// order, and calls the corresponding bulk setter.
func (im *Importer) replayAccountState(ctx context.Context, h, headHeight uint32) error {
	accountEntries := make(map[common.Address]struct {
		Nonce   uint64
		Balance *uint256.Int
	})
	err := iteratePrefix(im.store.StateDB, accountRowPrefix(h, headHeight, prefixAccountStore), func(key, value []byte) error {
		entry, ok, err := ParseAccountEntry(key, value)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		accountEntries[entry.Address] = struct {
			Nonce   uint64
			Balance *uint256.Int
		}{Nonce: entry.Nonce, Balance: entry.Balance}
		return nil
	})
	if err != nil {
		return err
	}
	if err := im.setter.SetAccountBasic(ctx, h, accountEntries); err != nil {
		return err
	}

	codes := make(map[common.Address][]byte)
	if err := iteratePrefix(im.store.StateDB, accountRowPrefix(h, headHeight, prefixAccountCode), func(key, value []byte) error {
		addr, code, err := ParseAccountCode(key, value)
		if err != nil {
			return err
		}
		codes[addr] = code
		return nil
	}); err != nil {
		return err
	}
	if err := im.setter.SetCodes(ctx, h, codes); err != nil {
		return err
	}

	var storages []chainstate.StorageKV
	if err := iteratePrefix(im.store.StateDB, accountRowPrefix(h, headHeight, prefixAccountStorage), func(key, value []byte) error {
		if isTombstone(value) {
			return nil
		}
		addr, slot, val, err := ParseAccountStorage(key, value)
		if err != nil {
			return err
		}
		storages = append(storages, chainstate.StorageKV{Address: addr, Slot: slot, Value: val})
		return nil
	}); err != nil {
		return err
	}
	return im.setter.SetAccountStorages(ctx, h, storages)
}
