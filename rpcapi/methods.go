package rpcapi

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
)

// web3ClientVersion is what web3_clientVersion reports; this is an
// indexing service, not a full execution client, so the string names
// that rather than borrowing go-ethereum's own version string.
const web3ClientVersion = "evmix/indexer"

// ClientVersion implements web3_clientVersion.
func (b *Backend) ClientVersion() string {
	return web3ClientVersion
}

// Accounts implements eth_accounts. This service holds no local keys, so
// it always returns the empty list (spec.md §6's documented deviation).
func (b *Backend) Accounts() []common.Address {
	return []common.Address{}
}

// Mining implements eth_mining: always false (spec.md §6).
func (b *Backend) Mining() bool {
	return false
}

// Hashrate implements eth_hashrate: always zero (spec.md §6).
func (b *Backend) Hashrate() uint64 {
	return 0
}

// SendTransaction implements eth_sendTransaction. It is disabled because
// this service holds no local keys to sign with (spec.md §6's documented
// deviation); clients must sign locally and call eth_sendRawTransaction.
func (b *Backend) SendTransaction() (common.Hash, error) {
	return common.Hash{}, errorsmod.Wrap(ErrUnsupportedTxType, "eth_sendTransaction is disabled; use eth_sendRawTransaction")
}
