package rpcapi

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/summit-chain/evmix/chainstate"
)

// evmWireTag is the 4-byte prefix eth_sendRawTransaction wraps every
// RLP-encoded transaction with before handing it to the upstream mempool
// (spec.md §6).
var evmWireTag = [4]byte{0x65, 0x76, 0x6d, 0x3a}

// TransactionResult is what eth_getTransactionBy* returns. This service
// indexes receipts and per-tx status metadata, not raw transaction bodies
// (spec.md §4.3's set_block_info takes no tx-body argument), so the
// result carries everything actually stored: placement, parties, and
// outcome, rather than nonce/gas/value/input.
type TransactionResult struct {
	TxHash          common.Hash
	BlockHash       common.Hash
	BlockNumber     uint32
	TxIndex         uint32
	From            common.Address
	To              *common.Address
	ContractAddress *common.Address
	Status          uint64
	GasUsed         uint64
}

// GetTransactionByHash implements eth_getTransactionByHash. Only Legacy
// transactions are currently indexed end-to-end (spec.md §7
// UnsupportedTxType); a missing index entry resolves to (nil, nil).
func (b *Backend) GetTransactionByHash(ctx context.Context, hash common.Hash) (*TransactionResult, error) {
	entry, ok, err := b.Getter.GetTransactionIndexByTxHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b.transactionAt(ctx, entry.BlockHash, entry.Index)
}

// GetTransactionByBlockHashAndIndex implements
// eth_getTransactionByBlockHashAndIndex.
func (b *Backend) GetTransactionByBlockHashAndIndex(ctx context.Context, blockHash common.Hash, index uint32) (*TransactionResult, error) {
	return b.transactionAt(ctx, blockHash, index)
}

// GetTransactionByBlockNumberAndIndex implements
// eth_getTransactionByBlockNumberAndIndex.
func (b *Backend) GetTransactionByBlockNumberAndIndex(ctx context.Context, bn chainstate.BlockNumber, index uint32) (*TransactionResult, error) {
	height, _, err := b.resolveHeight(ctx, bn)
	if err != nil {
		if chainstate.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	blockHash, ok, err := b.Getter.GetBlockHashByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b.transactionAt(ctx, blockHash, index)
}

func (b *Backend) transactionAt(ctx context.Context, blockHash common.Hash, index uint32) (*TransactionResult, error) {
	statuses, ok, err := b.Getter.GetTransactionStatusByBlockHash(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if !ok || int(index) >= len(statuses) {
		return nil, nil
	}
	status := statuses[index]

	result := &TransactionResult{
		TxHash:          status.TxHash,
		BlockHash:       status.BlockHash,
		BlockNumber:     status.BlockNumber,
		TxIndex:         status.TxIndex,
		From:            status.From,
		To:              status.To,
		ContractAddress: status.ContractAddress,
	}

	receipts, ok, err := b.Getter.GetTransactionReceiptByBlockHash(ctx, blockHash)
	if err != nil {
		return nil, err
	}
	if ok && int(index) < len(receipts) {
		result.Status = receipts[index].Status
		result.GasUsed = receipts[index].GasUsed
	}

	return result, nil
}

// GetTransactionReceipt implements eth_getTransactionReceipt.
func (b *Backend) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	entry, ok, err := b.Getter.GetTransactionIndexByTxHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	receipts, ok, err := b.Getter.GetTransactionReceiptByBlockHash(ctx, entry.BlockHash)
	if err != nil {
		return nil, err
	}
	if !ok || int(entry.Index) >= len(receipts) {
		return nil, nil
	}
	return receipts[entry.Index], nil
}

// SendRawTransaction implements eth_sendRawTransaction (spec.md §4.8/§6):
// wraps raw with the literal `evm:` tag, submits via broadcast_tx_sync,
// and returns the Keccak-256 of the unwrapped RLP as the transaction hash.
func (b *Backend) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var tx types.Transaction
	if err := rlp.DecodeBytes(raw, &tx); err != nil {
		return common.Hash{}, errorsmod.Wrapf(ErrInvalidInput, "decode raw transaction: %v", err)
	}
	if tx.Type() != types.LegacyTxType {
		return common.Hash{}, errorsmod.Wrapf(ErrUnsupportedTxType, "transaction type %d", tx.Type())
	}

	wrapped := make([]byte, 0, len(evmWireTag)+len(raw))
	wrapped = append(wrapped, evmWireTag[:]...)
	wrapped = append(wrapped, raw...)

	if _, err := b.Upstream.BroadcastTxSync(ctx, wrapped); err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(raw), nil
}
