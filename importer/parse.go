package importer

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AccountEntry is the parsed form of an AccountAccountStore row: the
// embedded EVM smart-account nonce/balance pair, keyed by address.
// original_source's parse_data only accepts addresses whose first four
// decoded bytes spell "evm:" — every other row is skipped.
type AccountEntry struct {
	Address common.Address
	Nonce   uint64
	Balance *uint256.Int
}

type smartAccountJSON struct {
	Nonce   string `json:"nonce"`
	Balance string `json:"balance"`
	Reserved string `json:"reserved"`
}

// evmAddressMarker is the "evm:" tag original_source's Address32 decode
// checks for before treating a row as an EVM account.
const evmAddressMarker = "evm:"

// ParseAccountEntry decodes one AccountAccountStore row. It returns
// (entry, true, nil) only when the bech32-decoded key carries the
// "evm:" marker; otherwise (zero, false, nil) signals "not an EVM
// account, skip".
func ParseAccountEntry(rawKey, rawValue []byte) (AccountEntry, bool, error) {
	fields := splitKeyFields(rawKey)
	if len(fields) < 2 {
		return AccountEntry{}, false, fmt.Errorf("importer: malformed account key %q", rawKey)
	}
	addrBytes, ok := decodeBech32Address(fields[1])
	if !ok {
		return AccountEntry{}, false, fmt.Errorf("importer: invalid bech32 address %q", fields[1])
	}
	if len(addrBytes) < 24 || string(addrBytes[:4]) != evmAddressMarker {
		return AccountEntry{}, false, nil
	}

	var sa smartAccountJSON
	if err := json.Unmarshal(rawValue, &sa); err != nil {
		return AccountEntry{}, false, fmt.Errorf("importer: decode account value: %w", err)
	}
	balance, err := parseDecimalU256(sa.Balance)
	if err != nil {
		return AccountEntry{}, false, err
	}
	nonce, err := parseDecimalUint64(sa.Nonce)
	if err != nil {
		return AccountEntry{}, false, err
	}

	return AccountEntry{
		Address: common.BytesToAddress(addrBytes[4:24]),
		Nonce:   nonce,
		Balance: balance,
	}, true, nil
}

// ParseCurrentHeight decodes the EthereumCurrentBlockNumber row's value.
func ParseCurrentHeight(rawValue []byte) (uint32, error) {
	var height uint64
	if err := json.Unmarshal(rawValue, &height); err != nil {
		return 0, fmt.Errorf("importer: decode current height: %w", err)
	}
	return uint32(height), nil
}

// ParseBlockHash decodes one EthereumBlockHash row into its height and
// block hash.
func ParseBlockHash(rawKey, rawValue []byte) (height uint32, hash common.Hash, err error) {
	fields := splitKeyFields(rawKey)
	if len(fields) < 2 {
		return 0, common.Hash{}, fmt.Errorf("importer: malformed block-hash key %q", rawKey)
	}
	h, err := parseDecimalUint64(fields[1])
	if err != nil {
		return 0, common.Hash{}, err
	}
	var hexHash string
	if err := json.Unmarshal(rawValue, &hexHash); err != nil {
		return 0, common.Hash{}, fmt.Errorf("importer: decode block hash: %w", err)
	}
	return uint32(h), common.HexToHash(hexHash), nil
}

// ParseAccountCode decodes one EVMAccountCodes row.
func ParseAccountCode(rawKey, rawValue []byte) (common.Address, []byte, error) {
	fields := splitKeyFields(rawKey)
	if len(fields) < 2 {
		return common.Address{}, nil, fmt.Errorf("importer: malformed code key %q", rawKey)
	}
	return common.HexToAddress(fields[1]), rawValue, nil
}

// ParseAccountStorage decodes one EVMAccountStorages row into its
// (address, slot) -> value triple.
func ParseAccountStorage(rawKey, rawValue []byte) (addr common.Address, slot common.Hash, value common.Hash, err error) {
	fields := splitKeyFields(rawKey)
	if len(fields) < 3 {
		return common.Address{}, common.Hash{}, common.Hash{}, fmt.Errorf("importer: malformed storage key %q", rawKey)
	}
	var hexValue string
	if err := json.Unmarshal(rawValue, &hexValue); err != nil {
		return common.Address{}, common.Hash{}, common.Hash{}, fmt.Errorf("importer: decode storage value: %w", err)
	}
	return common.HexToAddress(fields[1]), common.HexToHash(fields[2]), common.HexToHash(hexValue), nil
}

func parseDecimalU256(s string) (*uint256.Int, error) {
	u := new(uint256.Int)
	if s == "" {
		return u, nil
	}
	if err := u.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("importer: invalid decimal u256 %q: %w", s, err)
	}
	return u, nil
}

func parseDecimalUint64(s string) (uint64, error) {
	u, err := parseDecimalU256(s)
	if err != nil {
		return 0, err
	}
	return u.Uint64(), nil
}
