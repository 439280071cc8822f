package indexkv

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/redis/go-redis/v9"
)

// tombstoneMarker is stored in the values hash in place of a payload when
// a key is deleted at a given version (spec.md invariant 2).
const tombstoneMarker = "T"

// valuePrefix distinguishes a live payload from the tombstone marker
// inside the values hash.
const valuePrefix = "V:"

// VKV is the height-versioned key-value engine (C2). Every base key k
// keeps a companion ordered structure versions(k): a Redis sorted set of
// heights written (score == height, for descending range scans) and a
// Redis hash mapping height -> payload-or-tombstone.
type VKV struct {
	conn Conn
}

// NewVKV constructs a VKV engine over the given backend connection.
func NewVKV(conn Conn) *VKV {
	return &VKV{conn: conn}
}

func versionsKey(base string) string { return base + "::versions" }
func valuesKey(base string) string   { return base + "::values" }

// Set associates value with key at version height (vkv_set).
func (v *VKV) Set(ctx context.Context, key string, height uint32, value string) error {
	vk, hk := versionsKey(key), valuesKey(key)
	_, err := v.conn.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, vk, redis.Z{Score: float64(height), Member: height})
		p.HSet(ctx, hk, heightField(height), valuePrefix+value)
		return nil
	})
	if err != nil {
		return errorsmod.Wrapf(ErrBackend, "vkv_set(%s, %d): %v", key, height, err)
	}
	return nil
}

// Del installs a tombstone for key at version height (vkv_del).
func (v *VKV) Del(ctx context.Context, key string, height uint32) error {
	vk, hk := versionsKey(key), valuesKey(key)
	_, err := v.conn.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, vk, redis.Z{Score: float64(height), Member: height})
		p.HSet(ctx, hk, heightField(height), tombstoneMarker)
		return nil
	})
	if err != nil {
		return errorsmod.Wrapf(ErrBackend, "vkv_del(%s, %d): %v", key, height, err)
	}
	return nil
}

// Get returns the value installed by the write with the largest version
// <= height, or ("", false) if that write was a tombstone or no such
// write exists (vkv_get). This is invariant 1/2 from spec.md §3.
func (v *VKV) Get(ctx context.Context, key string, height uint32) (string, bool, error) {
	vk := versionsKey(key)
	results, err := v.conn.ZRevRangeByScore(ctx, vk, &redis.ZRangeBy{
		Max:    fmt.Sprintf("%d", height),
		Min:    "-inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return "", false, errorsmod.Wrapf(ErrBackend, "vkv_get(%s, %d): %v", key, height, err)
	}
	if len(results) == 0 {
		return "", false, nil
	}

	payload, err := v.conn.HGet(ctx, valuesKey(key), results[0]).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errorsmod.Wrapf(ErrBackend, "vkv_get(%s, %d): %v", key, height, err)
	}
	if payload == tombstoneMarker {
		return "", false, nil
	}
	return payload[len(valuePrefix):], true, nil
}

// Latest returns the highest version recorded for key, or 0 if none
// exists (vkv_latest).
func (v *VKV) Latest(ctx context.Context, key string) (uint32, error) {
	results, err := v.conn.ZRevRangeWithScores(ctx, versionsKey(key), 0, 0).Result()
	if err != nil {
		return 0, errorsmod.Wrapf(ErrBackend, "vkv_latest(%s): %v", key, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return uint32(results[0].Score), nil
}

func heightField(height uint32) string {
	return fmt.Sprintf("%d", height)
}
