package indexkv

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Conn is the backend requirement spec.md §4.2 describes: point
// set/get/delete of string keys, plus the ability to atomically scan a
// per-key ordered set of (version, payload) pairs in descending order.
// Two concrete implementations satisfy it below — a standalone client and
// a cluster client — so callers (the VKV engine, the importer, the RPC
// service) depend only on this interface, never a concrete Redis client
// type (spec.md §9, "Dynamic dispatch over backend connection").
type Conn interface {
	redis.Cmdable

	// TxPipelined issues fn's commands as a single client-side compound
	// transaction (MULTI/EXEC), satisfying the VKV's atomicity
	// requirement without a server-side stored procedure.
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// StandaloneClient wraps a single-node Redis connection.
type StandaloneClient struct {
	*redis.Client
}

// NewStandaloneClient opens a connection to a single Redis node at addr.
func NewStandaloneClient(opts *redis.Options) *StandaloneClient {
	return &StandaloneClient{Client: redis.NewClient(opts)}
}

var _ Conn = (*StandaloneClient)(nil)

// ClusterClient wraps a Redis Cluster connection, used when the VKV is
// sharded across multiple nodes.
type ClusterClient struct {
	*redis.ClusterClient
}

// NewClusterClient opens a connection to a Redis Cluster described by opts.
func NewClusterClient(opts *redis.ClusterOptions) *ClusterClient {
	return &ClusterClient{ClusterClient: redis.NewClusterClient(opts)}
}

var _ Conn = (*ClusterClient)(nil)
