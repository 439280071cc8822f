// Package upstream wraps the CometBFT RPC endpoints this service depends
// on (spec.md §6): `/block`, `/unconfirmed_txs`, `/status`, and
// `/broadcast_tx_sync`. Grounded on the teacher's own
// `rpc/client/http.HTTP` usage (tests/systemtests/clients/cosmosclient.go)
// and on `rpc/backend/blocks.go`'s CometBlockByNumber/ProposerAddress
// handling, generalized off the Cosmos SDK gRPC query client this
// service has no equivalent of.
package upstream

import (
	"context"
	"fmt"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"

	errorsmod "cosmossdk.io/errors"
)

const ModuleName = "upstream"

var ErrUpstream = errorsmod.Register(ModuleName, 1, "upstream request failed")

// Client is the CometBFT RPC client this service's C6/C9 components need.
type Client struct {
	rpc *rpchttp.HTTP
}

// New constructs a client for the CometBFT RPC endpoint at addr (e.g.
// "http://localhost:26657"); no connection is made until the first request.
func New(addr string) (*Client, error) {
	rpc, err := rpchttp.New(addr, "/websocket")
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUpstream, "dial %s: %v", addr, err)
	}
	return &Client{rpc: rpc}, nil
}

// ProposerAddress satisfies evmadapter.Upstream: it resolves block_coinbase
// by querying /block?height= and returning the block's proposer address
// (spec.md §4.6).
func (c *Client) ProposerAddress(ctx context.Context, height uint32) (common.Address, error) {
	h := int64(height)
	result, err := c.rpc.Block(ctx, &h)
	if err != nil {
		return common.Address{}, errorsmod.Wrapf(ErrUpstream, "block %d: %v", height, err)
	}
	if result == nil || result.Block == nil {
		return common.Address{}, errorsmod.Wrapf(ErrUpstream, "block %d not found", height)
	}
	return common.BytesToAddress(result.Block.ProposerAddress), nil
}

// UnconfirmedTxs returns the mempool's current pending transactions, used
// by C9's pending-tx diffing poll.
func (c *Client) UnconfirmedTxs(ctx context.Context) ([]cmttypes.Tx, error) {
	result, err := c.rpc.UnconfirmedTxs(ctx, nil)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUpstream, "unconfirmed_txs: %v", err)
	}
	return result.Txs, nil
}

// Status returns the node's sync status, used by C9 to surface eth_syncing.
func (c *Client) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	result, err := c.rpc.Status(ctx)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUpstream, "status: %v", err)
	}
	return result, nil
}

// BroadcastTxSync submits raw to the mempool and waits for CheckTx to
// complete, backing eth_sendRawTransaction.
func (c *Client) BroadcastTxSync(ctx context.Context, raw []byte) (*coretypes.ResultBroadcastTx, error) {
	result, err := c.rpc.BroadcastTxSync(ctx, raw)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrUpstream, "broadcast_tx_sync: %v", err)
	}
	if result.Code != 0 {
		return result, errorsmod.Wrapf(ErrUpstream, "broadcast_tx_sync rejected: %s", result.Log)
	}
	return result, nil
}

// IsSyncing reports whether the upstream node is still catching up.
func (c *Client) IsSyncing(ctx context.Context) (bool, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.SyncInfo.CatchingUp, nil
}

// LatestHeight returns the upstream node's own view of the latest
// committed height. C9 detects new blocks from the indexed latest_height
// read through chainstate.Getter, not from this method.
func (c *Client) LatestHeight(ctx context.Context) (uint32, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}
	height := status.SyncInfo.LatestBlockHeight
	if height < 0 {
		return 0, errorsmod.Wrapf(ErrUpstream, "negative latest height %d", height)
	}
	if height > int64(^uint32(0)) {
		return 0, fmt.Errorf("upstream: latest height %d overflows uint32", height)
	}
	return uint32(height), nil
}
