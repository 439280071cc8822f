package notify

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/summit-chain/evmix/chainstate"
	"github.com/summit-chain/evmix/upstream"
)

// Default poll intervals (spec.md §4.9: "every 100 ms (logs/heads) /
// configurable (pending tx, sync status)").
const (
	DefaultHeightInterval    = 100 * time.Millisecond
	DefaultPendingTxInterval = 1 * time.Second
	DefaultSyncInterval      = 2 * time.Second
)

// Poller is C9's single background polling task. It watches latest_height,
// the upstream mempool, and the upstream sync status, publishing onto
// three broadcasters that the RPC pub/sub layer subscribes to.
type Poller struct {
	Logger   log.Logger
	Getter   *chainstate.Getter
	Upstream *upstream.Client

	HeightInterval    time.Duration
	PendingTxInterval time.Duration
	SyncInterval      time.Duration

	// LogsHeights and NewHeads both receive every newly-committed height;
	// kept as separate broadcasters because eth_subscribe("logs", ...) and
	// eth_subscribe("newHeads", ...) resolve the delivered height
	// differently downstream (spec.md §4.9).
	LogsHeights     *Broadcaster[uint32]
	NewHeads        *Broadcaster[uint32]
	PendingTxHashes *Broadcaster[common.Hash]
	Syncing         *Broadcaster[bool]
}

// NewPoller constructs a Poller with spec.md's default intervals.
func NewPoller(logger log.Logger, getter *chainstate.Getter, up *upstream.Client) *Poller {
	return &Poller{
		Logger:            logger.With("module", "notify"),
		Getter:            getter,
		Upstream:          up,
		HeightInterval:    DefaultHeightInterval,
		PendingTxInterval: DefaultPendingTxInterval,
		SyncInterval:      DefaultSyncInterval,
		LogsHeights:       NewBroadcaster[uint32](),
		NewHeads:          NewBroadcaster[uint32](),
		PendingTxHashes:   NewBroadcaster[common.Hash](),
		Syncing:           NewBroadcaster[bool](),
	}
}

// Run starts the three poll loops and blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); p.pollHeights(ctx) }()
	go func() { defer wg.Done(); p.pollPendingTxs(ctx) }()
	go func() { defer wg.Done(); p.pollSyncStatus(ctx) }()
	wg.Wait()
}

// pollHeights pushes every height in (last, current] into LogsHeights and
// NewHeads on each tick.
func (p *Poller) pollHeights(ctx context.Context) {
	ticker := time.NewTicker(p.HeightInterval)
	defer ticker.Stop()

	last, err := p.Getter.LatestHeight(ctx)
	if err != nil {
		p.Logger.Error("initial latest_height read failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := p.Getter.LatestHeight(ctx)
			if err != nil {
				p.Logger.Error("latest_height poll failed", "err", err)
				continue
			}
			for h := last + 1; h <= current; h++ {
				p.LogsHeights.Publish(h)
				p.NewHeads.Publish(h)
			}
			if current > last {
				last = current
			}
		}
	}
}

// pollPendingTxs diffs the upstream mempool against the previous poll's
// set, publishing only newly-seen hashes (spec.md §4.9).
func (p *Poller) pollPendingTxs(ctx context.Context) {
	ticker := time.NewTicker(p.PendingTxInterval)
	defer ticker.Stop()

	seen := make(map[common.Hash]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			txs, err := p.Upstream.UnconfirmedTxs(ctx)
			if err != nil {
				p.Logger.Error("unconfirmed_txs poll failed", "err", err)
				continue
			}
			current := make(map[common.Hash]struct{}, len(txs))
			for _, tx := range txs {
				sum := sha256.Sum256(tx)
				hash := common.BytesToHash(sum[:])
				current[hash] = struct{}{}
				if _, ok := seen[hash]; !ok {
					p.PendingTxHashes.Publish(hash)
				}
			}
			seen = current
		}
	}
}

// pollSyncStatus publishes catching_up only when it changes (spec.md
// §4.9).
func (p *Poller) pollSyncStatus(ctx context.Context) {
	ticker := time.NewTicker(p.SyncInterval)
	defer ticker.Stop()

	var last *bool

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := p.Upstream.Status(ctx)
			if err != nil {
				p.Logger.Error("status poll failed", "err", err)
				continue
			}
			catchingUp := status.SyncInfo.CatchingUp
			if last == nil || *last != catchingUp {
				p.Syncing.Publish(catchingUp)
				v := catchingUp
				last = &v
			}
		}
	}
}
