// Package importer implements the Snapshot Importer (C5): a one-shot
// bulk replay of an archived column-family KV into the VKV, grounded on
// original_source/rocksdb-exporter/src/main.rs and
// evm_rocksdb_storage/parse_data.rs.
package importer

import (
	"bytes"
	"fmt"

	dbm "github.com/cosmos/cosmos-db"
)

// The original RocksDB store keeps two distinct row shapes per state key,
// in two column families (storage_macro.rs::get_all): the "default" CF
// holds the current, unframed row (`ModulePrefix_<key>`) for the export's
// head height, while the "aux" CF holds every earlier height's snapshot
// under a `VER_<20-digit-height>_` prefix glued directly onto the same
// module+storage prefix. cosmos-db's DB interface has no notion of column
// families, so both are modeled as key-prefixed iteration scopes within a
// single dbm.DB (SPEC_FULL.md §4.5): historicalPrefix below builds the
// "aux"-shaped prefix, and callers pass the bare column prefix for the
// head height's "default"-shaped rows.

// keySeparator mirrors the original schema's DB_KEY_SEPARATOR.
const keySeparator = "_"

// historicalPrefix builds the VER-framed row prefix storage_macro.rs's
// get_all uses for any height other than the export's head height: `VER`
// + SEP + the height zero-padded to 20 digits + SEP, concatenated
// directly onto base (no further separator, matching `[ver_key, prefix]
// .concat()`).
func historicalPrefix(height uint32, base []byte) []byte {
	verKey := fmt.Sprintf("VER_%020d_", height)
	return append([]byte(verKey), base...)
}

// ExternalStore is a read-only handle onto the archived state-DB and
// history-DB the importer replays from.
type ExternalStore struct {
	StateDB   dbm.DB
	HistoryDB dbm.DB
}

// OpenExternalStore opens the state and history databases read-only at
// the given filesystem paths, mirroring the two RocksDB handles
// original_source/rocksdb-exporter/src/main.rs opens.
func OpenExternalStore(stateDBPath, historyDBPath string) (*ExternalStore, error) {
	stateDB, err := dbm.NewDB("state", dbm.GoLevelDBBackend, stateDBPath)
	if err != nil {
		return nil, err
	}
	historyDB, err := dbm.NewDB("history", dbm.GoLevelDBBackend, historyDBPath)
	if err != nil {
		stateDB.Close()
		return nil, err
	}
	return &ExternalStore{StateDB: stateDB, HistoryDB: historyDB}, nil
}

// Close releases both underlying databases.
func (e *ExternalStore) Close() error {
	err1 := e.StateDB.Close()
	err2 := e.HistoryDB.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// iteratePrefix walks every key in db whose raw bytes begin with prefix,
// invoking fn(key, value) for each. It stops and returns fn's error if
// fn returns one.
func iteratePrefix(db dbm.DB, prefix []byte, fn func(key, value []byte) error) error {
	it, err := db.Iterator(prefix, nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		key := it.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if err := fn(append([]byte(nil), key...), append([]byte(nil), it.Value()...)); err != nil {
			return err
		}
	}
	return it.Error()
}

// splitKeyFields splits a prefix-framed key of the form
// [VER_<height>_]ModulePrefixStorageSuffix_<key1>[_<key2>] on the
// separator and returns its fields; a leading VER segment and the height
// after it are skipped, per spec.md §4.5.
func splitKeyFields(rawKey []byte) []string {
	key := string(rawKey)
	fields := splitSeparator(key)
	if len(fields) > 0 && fields[0] == "VER" {
		// "VER_<20-digit-height>" occupies the first two fields once split.
		if len(fields) >= 2 {
			fields = fields[2:]
		}
	}
	return fields
}

func splitSeparator(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == keySeparator[0] {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// isTombstone matches the original schema's one-byte tombstone-rejection
// rule: a value of length <= 1 carries no payload and the key is skipped.
func isTombstone(value []byte) bool {
	return len(value) <= 1
}
