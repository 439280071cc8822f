package rpcapi

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/filters"
)

// NewFilter implements eth_newFilter: installs a log filter scoped to
// criteria, anchored to the current height as its at_block (spec.md §4.9).
func (b *Backend) NewFilter(ctx context.Context, criteria filters.FilterCriteria) (*big.Int, error) {
	latest, err := b.Getter.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	id, evicted := b.filters.newFilterID()
	if evicted {
		b.Logger.Debug("filter pool at capacity, evicted oldest entry")
	}
	b.filters.install(id, &filterEntry{
		kind:          filterLogs,
		criteria:      criteria,
		atBlock:       latest,
		lastPollBlock: latest,
	})
	return id, nil
}

// NewBlockFilter implements eth_newBlockFilter: a filter that reports new
// block hashes on each poll.
func (b *Backend) NewBlockFilter(ctx context.Context) (*big.Int, error) {
	latest, err := b.Getter.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	id, evicted := b.filters.newFilterID()
	if evicted {
		b.Logger.Debug("filter pool at capacity, evicted oldest entry")
	}
	b.filters.install(id, &filterEntry{
		kind:          filterNewHeads,
		atBlock:       latest,
		lastPollBlock: latest,
	})
	return id, nil
}

// NewPendingTransactionFilter is unimplemented: pending-tx filters are a
// documented deviation this service does not support (spec.md §6).
func (b *Backend) NewPendingTransactionFilter(ctx context.Context) (*big.Int, error) {
	return nil, errorsmod.Wrap(ErrFilter, "pending transaction filters are not supported")
}

// UninstallFilter implements eth_uninstallFilter.
func (b *Backend) UninstallFilter(id *big.Int) bool {
	return b.filters.remove(id)
}

// FilterChanges is the polymorphic result eth_getFilterChanges returns:
// exactly one of Logs or BlockHashes is populated, matching the entry's
// filterKind.
type FilterChanges struct {
	Logs        []*types.Log
	BlockHashes []common.Hash
}

// GetFilterChanges implements eth_getFilterChanges: returns everything new
// since the filter's last poll, then advances last_poll_height to the
// current latest height (spec.md §4.9).
func (b *Backend) GetFilterChanges(ctx context.Context, id *big.Int) (*FilterChanges, error) {
	entry, ok := b.filters.get(id)
	if !ok {
		return nil, errorsmod.Wrapf(ErrFilter, "filter %s not found", id)
	}

	latest, err := b.Getter.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	defer b.filters.touch(id, latest)

	if entry.lastPollBlock >= latest {
		return &FilterChanges{}, nil
	}
	from := entry.lastPollBlock + 1

	switch entry.kind {
	case filterNewHeads:
		var hashes []common.Hash
		for h := from; h <= latest; h++ {
			hash, ok, err := b.Getter.GetBlockHashByHeight(ctx, h)
			if err != nil {
				return nil, err
			}
			if ok {
				hashes = append(hashes, hash)
			}
		}
		return &FilterChanges{BlockHashes: hashes}, nil
	case filterLogs:
		lf := logFilterFromCriteria(entry.criteria, from, latest)
		if lf.FromBlock < from {
			lf.FromBlock = from
		}
		logs, err := b.GetLogs(ctx, lf)
		if err != nil {
			return nil, err
		}
		return &FilterChanges{Logs: logs}, nil
	default:
		return nil, errorsmod.Wrap(ErrFilter, "pending transaction filters are not supported")
	}
}

// GetFilterLogs implements eth_getFilterLogs: the full matching set for a
// log filter's criteria, ignoring last_poll_height.
func (b *Backend) GetFilterLogs(ctx context.Context, id *big.Int) ([]*types.Log, error) {
	entry, ok := b.filters.get(id)
	if !ok {
		return nil, errorsmod.Wrapf(ErrFilter, "filter %s not found", id)
	}
	if entry.kind != filterLogs {
		return nil, errorsmod.Wrap(ErrFilter, "filter is not a log filter")
	}

	latest, err := b.Getter.LatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	lf := logFilterFromCriteria(entry.criteria, 0, latest)
	return b.GetLogs(ctx, lf)
}

// logFilterFromCriteria translates go-ethereum's eth/filters.FilterCriteria
// into this package's LogFilter, resolving open-ended from/to against the
// poll window [from, latest].
func logFilterFromCriteria(c filters.FilterCriteria, from, latest uint32) LogFilter {
	lf := LogFilter{FromBlock: from, ToBlock: latest, Addresses: c.Addresses, Topics: c.Topics}
	if c.BlockHash != nil {
		lf.BlockHash = c.BlockHash
	}
	if c.FromBlock != nil && c.FromBlock.Sign() >= 0 {
		lf.FromBlock = uint32(c.FromBlock.Uint64())
	}
	if c.ToBlock != nil && c.ToBlock.Sign() >= 0 {
		lf.ToBlock = uint32(c.ToBlock.Uint64())
	}
	return lf
}
