// Package indexkvtest gives the rest of the module's test suites a real
// Redis connection backed by an in-process server, so VKV-level tests
// exercise the actual ZADD/HSET/pipeline semantics indexkv.VKV depends on
// instead of a hand-rolled fake of the sprawling redis.Cmdable interface.
package indexkvtest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/summit-chain/evmix/indexkv"
)

// NewConn starts a miniredis server for the duration of t and returns an
// indexkv.Conn wrapping a client connected to it. The server is closed
// automatically via t.Cleanup.
func NewConn(t *testing.T) indexkv.Conn {
	t.Helper()
	srv := miniredis.RunT(t)
	return indexkv.NewStandaloneClient(&redis.Options{Addr: srv.Addr()})
}
