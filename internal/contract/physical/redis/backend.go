// Package redis provides a Redis-backed contract state backend.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/storage"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const (
	KeyAddr         = "addr"
	KeyPassword     = "password"
	KeyDB           = "db"
	KeyMaxRetries   = "max_retries"
	KeyDialTimeout  = "dial_timeout"
	KeyReadTimeout  = "read_timeout"
	KeyWriteTimeout = "write_timeout"
	KeyPoolSize     = "pool_size"
	KeyKeyPrefix    = "key_prefix"
)

func init() {
	physical.Register("redis", NewFactory, Defaults)
}

// Defaults returns the default configuration for the Redis backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyAddr:         "localhost:6379",
		KeyPassword:     "",
		KeyDB:           "1",
		KeyMaxRetries:   "3",
		KeyDialTimeout:  "5s",
		KeyReadTimeout:  "3s",
		KeyWriteTimeout: "3s",
		KeyPoolSize:     "0",
		KeyKeyPrefix:    "ronin:",
	}
}

// NewFactory creates a new Redis backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	addr := storage.GetString(config, KeyAddr, "")
	if addr == "" {
		return nil, storage.NewConfigError("redis", KeyAddr, "cannot be empty")
	}

	db, err := storage.GetInt(config, KeyDB, 1)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], err.Error())
	}
	if db < 0 {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], "must be non-negative")
	}

	maxRetries, err := storage.GetInt(config, KeyMaxRetries, 3)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyMaxRetries, config[KeyMaxRetries], err.Error())
	}

	dialTimeout, err := storage.GetDuration(config, KeyDialTimeout, 5*time.Second)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDialTimeout, config[KeyDialTimeout], err.Error())
	}

	readTimeout, err := storage.GetDuration(config, KeyReadTimeout, 3*time.Second)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyReadTimeout, config[KeyReadTimeout], err.Error())
	}

	writeTimeout, err := storage.GetDuration(config, KeyWriteTimeout, 3*time.Second)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyWriteTimeout, config[KeyWriteTimeout], err.Error())
	}

	poolSize, err := storage.GetInt(config, KeyPoolSize, 0)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyPoolSize, config[KeyPoolSize], err.Error())
	}

	password := storage.GetString(config, KeyPassword, "")
	keyPrefix := storage.GetString(config, KeyKeyPrefix, "ronin:")

	opts := &redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, storage.NewConfigErrorWithCause("redis", KeyAddr, "failed to connect", err)
	}

	slog.Info("redis state backend initialized", "addr", addr, "db", db, "key_prefix", keyPrefix)

	return &Backend{
		client: client,
		prefix: keyPrefix,
	}, nil
}

// Backend is a Redis implementation of physical.Backend.
//
// Records live in a JSON string key per sender plus a sorted set scored
// by position for roster ordering. Ledgers are JSON lists appended with
// RPUSH, so entry order is exactly append order.
type Backend struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// NewWithClient creates a new backend with an existing Redis client.
func NewWithClient(client *redis.Client, prefix string) *Backend {
	if prefix == "" {
		prefix = "ronin:"
	}
	return &Backend{
		client: client,
		prefix: prefix,
	}
}

func (b *Backend) ownerKey() string   { return b.prefix + "owner" }
func (b *Backend) rosterKey() string  { return b.prefix + "roster" }
func (b *Backend) updatesKey() string { return b.prefix + "updates" }
func (b *Backend) deletesKey() string { return b.prefix + "deletes" }

func (b *Backend) recordKey(sender identity.Key) string {
	return b.prefix + "record:" + identity.Hex(sender)
}

func setRecord(ctx context.Context, pipe redis.Pipeliner, key string, rec *physical.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal record: %w", err)
	}
	pipe.Set(ctx, key, data, 0)
	return nil
}

// Init persists the initial state.
func (b *Backend) Init(ctx context.Context, st *physical.State) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	n, err := b.client.Exists(ctx, b.ownerKey()).Result()
	if err != nil {
		return fmt.Errorf("redis init: %w", err)
	}
	if n > 0 {
		return errors.New("redis: already initialized")
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.ownerKey(), identity.Hex(st.Owner), 0)
	for _, rec := range st.Records {
		if err := setRecord(ctx, pipe, b.recordKey(rec.Sender), rec); err != nil {
			return err
		}
		pipe.ZAdd(ctx, b.rosterKey(), redis.Z{Score: float64(rec.Position), Member: identity.Hex(rec.Sender)})
	}
	for _, e := range st.Updates {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis init: marshal update entry: %w", err)
		}
		pipe.RPush(ctx, b.updatesKey(), data)
	}
	for _, e := range st.Deletes {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis init: marshal delete entry: %w", err)
		}
		pipe.RPush(ctx, b.deletesKey(), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis init: %w", err)
	}
	return nil
}

// Load returns the full persisted state.
func (b *Backend) Load(ctx context.Context) (*physical.State, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	ownerHex, err := b.client.Get(ctx, b.ownerKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, physical.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("redis load: owner: %w", err)
	}

	st := &physical.State{}
	if st.Owner, err = identity.Parse(ownerHex); err != nil {
		return nil, fmt.Errorf("redis load: owner: %w", err)
	}

	// ZRange returns members in ascending score order, which is roster order.
	senders, err := b.client.ZRange(ctx, b.rosterKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: roster: %w", err)
	}
	for _, senderHex := range senders {
		sender, err := identity.Parse(senderHex)
		if err != nil {
			return nil, fmt.Errorf("redis load: roster member: %w", err)
		}
		data, err := b.client.Get(ctx, b.recordKey(sender)).Bytes()
		if err != nil {
			return nil, fmt.Errorf("redis load: record %s: %w", identity.Short(sender), err)
		}
		rec := &physical.Record{}
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("redis load: record %s: %w", identity.Short(sender), err)
		}
		st.Records = append(st.Records, rec)
	}

	rawUpdates, err := b.client.LRange(ctx, b.updatesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: updates: %w", err)
	}
	for _, raw := range rawUpdates {
		e := &physical.UpdateEntry{}
		if err := json.Unmarshal([]byte(raw), e); err != nil {
			return nil, fmt.Errorf("redis load: update entry: %w", err)
		}
		st.Updates = append(st.Updates, e)
	}

	rawDeletes, err := b.client.LRange(ctx, b.deletesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: deletes: %w", err)
	}
	for _, raw := range rawDeletes {
		e := &physical.DeleteEntry{}
		if err := json.Unmarshal([]byte(raw), e); err != nil {
			return nil, fmt.Errorf("redis load: delete entry: %w", err)
		}
		st.Deletes = append(st.Deletes, e)
	}

	return st, nil
}

// CreateRecord persists a new record.
func (b *Backend) CreateRecord(ctx context.Context, rec *physical.Record) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	pipe := b.client.TxPipeline()
	if err := setRecord(ctx, pipe, b.recordKey(rec.Sender), rec); err != nil {
		return err
	}
	pipe.ZAdd(ctx, b.rosterKey(), redis.Z{Score: float64(rec.Position), Member: identity.Hex(rec.Sender)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create: %w", err)
	}
	return nil
}

// UpdateRecord overwrites a record and appends the update entry in one
// transactional pipeline.
func (b *Backend) UpdateRecord(ctx context.Context, rec *physical.Record, entry *physical.UpdateEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	n, err := b.client.Exists(ctx, b.recordKey(rec.Sender)).Result()
	if err != nil {
		return fmt.Errorf("redis update: %w", err)
	}
	if n == 0 {
		return physical.ErrNotFound
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis update: marshal entry: %w", err)
	}

	pipe := b.client.TxPipeline()
	if err := setRecord(ctx, pipe, b.recordKey(rec.Sender), rec); err != nil {
		return err
	}
	pipe.RPush(ctx, b.updatesKey(), entryData)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis update: %w", err)
	}
	return nil
}

// DeleteRecord removes a record and appends the delete entry in one
// transactional pipeline.
func (b *Backend) DeleteRecord(ctx context.Context, sender identity.Key, entry *physical.DeleteEntry) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	n, err := b.client.Exists(ctx, b.recordKey(sender)).Result()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if n == 0 {
		return physical.ErrNotFound
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis delete: marshal entry: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, b.recordKey(sender))
	pipe.ZRem(ctx, b.rosterKey(), identity.Hex(sender))
	pipe.RPush(ctx, b.deletesKey(), entryData)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Stats returns storage statistics.
func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	records, err := b.client.ZCard(ctx, b.rosterKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis stats: %w", err)
	}
	updates, err := b.client.LLen(ctx, b.updatesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis stats: %w", err)
	}
	deletes, err := b.client.LLen(ctx, b.deletesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis stats: %w", err)
	}

	return &physical.Stats{
		Records:       records,
		UpdateEntries: updates,
		DeleteEntries: deletes,
		BackendType:   "redis",
	}, nil
}

// Close closes the Redis client.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}
