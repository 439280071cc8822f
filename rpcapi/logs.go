package rpcapi

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MaxPastLogs bounds how many matching logs eth_getLogs may return before
// it aborts with a FilterError (spec.md §7 "result set too large").
const MaxPastLogs = 10_000

// LogsTimeBudget is the wall-clock budget a filter-range log scan gets
// before it aborts (spec.md §5 "Cancellation / timeouts").
const LogsTimeBudget = 10 * time.Second

// LogFilter mirrors go-ethereum's eth/filters.FilterCriteria, the shape
// eth_getLogs and the filter pool both key a scan on.
type LogFilter struct {
	BlockHash *common.Hash
	FromBlock uint32
	ToBlock   uint32
	Addresses []common.Address
	Topics    [][]common.Hash
}

// GetLogs implements eth_getLogs (spec.md §4.8/§4.9): filters by
// block-hash or height range, bounded by MaxPastLogs and LogsTimeBudget,
// evaluating each block's header bloom before touching per-tx statuses.
func (b *Backend) GetLogs(ctx context.Context, f LogFilter) ([]*types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, LogsTimeBudget)
	defer cancel()

	if f.BlockHash != nil {
		height, ok, err := b.Getter.GetHeightByBlockHash(ctx, *f.BlockHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return b.logsInBlock(ctx, height, f)
	}

	var out []*types.Log
	for h := f.FromBlock; h <= f.ToBlock; h++ {
		select {
		case <-ctx.Done():
			return nil, errorsmod.Wrapf(ErrFilter, "eth_getLogs exceeded its %s time budget", LogsTimeBudget)
		default:
		}

		logs, err := b.logsInBlock(ctx, h, f)
		if err != nil {
			return nil, err
		}
		out = append(out, logs...)
		if len(out) > MaxPastLogs {
			return nil, errorsmod.Wrapf(ErrFilter, "eth_getLogs result set exceeds %d entries", MaxPastLogs)
		}
		if h == ^uint32(0) {
			break
		}
	}
	return out, nil
}

// logsInBlock matches f's address/topic bloom against the block header's
// bloom filter before reading receipts, per spec.md §4.8.
func (b *Backend) logsInBlock(ctx context.Context, height uint32, f LogFilter) ([]*types.Log, error) {
	hash, ok, err := b.Getter.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	block, ok, err := b.Getter.GetBlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok || block.Header == nil {
		return nil, nil
	}

	if !bloomMatches(block.Header.Bloom, f.Addresses, f.Topics) {
		return nil, nil
	}

	receipts, ok, err := b.Getter.GetTransactionReceiptByBlockHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var out []*types.Log
	for _, receipt := range receipts {
		for _, log := range receipt.Logs {
			if logMatches(log, f.Addresses, f.Topics) {
				out = append(out, log)
			}
		}
	}
	return out, nil
}

// bloomMatches reports whether every address (OR-matched) and every
// topic position (OR-matched within position, AND across positions)
// could be present in bloom, mirroring go-ethereum's own filter
// semantics (eth/filters.Filter.filterLogs) without requiring the
// unexported filter type.
func bloomMatches(bloom types.Bloom, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 {
		matched := false
		for _, addr := range addresses {
			if types.BloomLookup(bloom, addr) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, position := range topics {
		if len(position) == 0 {
			continue
		}
		matched := false
		for _, topic := range position {
			if types.BloomLookup(bloom, topic) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// logMatches re-checks bloomMatches's candidate set exactly, since bloom
// membership is probabilistic.
func logMatches(log *types.Log, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 {
		found := false
		for _, addr := range addresses {
			if log.Address == addr {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(topics) > len(log.Topics) {
		return false
	}
	for i, position := range topics {
		if len(position) == 0 {
			continue
		}
		found := false
		for _, topic := range position {
			if log.Topics[i] == topic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
