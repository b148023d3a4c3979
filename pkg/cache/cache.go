// Package cache 提供基于键值存储的泛型缓存实现.
//
// 该包提供了类型安全的缓存操作，支持任意类型的缓存值.
// 底层使用JSON序列化/反序列化，支持TTL（生存时间）设置.
//
// 缓存只是加速层：任何读写都不能以缓存为准，权威数据永远在数据库与文件存储.
// 为此该包做了三层防护：
//   - 单次缓存操作有超时上限，后端变慢时按未命中处理，不拖垮请求
//   - 熔断器包裹后端故障，连续失败后直接短路为未命中，给后端恢复窗口
//   - 读穿透用 singleflight 合并，同一键并发回源只执行一次
//
// 失效纪律：写路径必须先提交权威存储，再失效相关缓存键，顺序不可颠倒.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore, cache.Options{TTL: time.Hour})
//
//	user := User{ID: 1, Name: "Alice"}
//	err := cache.Set(ctx, c, cache.KeyUser("1"), user)
//
//	cachedUser, err := cache.Get[User](ctx, c, cache.KeyUser("1"))
//
//	user, err := cache.GetOrSet(ctx, c, cache.KeyUser("1"), func() (User, error) {
//	    return fetchUserFromDB(1)
//	})
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/filevault/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中. 未命中不是故障，调用方回源权威存储即可.
var ErrMiss = kv.ErrNotFound

// 缓存键命名空间. 失效按命名空间前缀批量进行.
const (
	NSUser       = "user:"
	NSFile       = "file:"
	NSMembership = "membership:"
)

// 单个键段的长度上限，超过时用 xxhash 摘要替代，避免超出后端键长限制.
const maxKeySegment = 128

// KeyUser 构造属主信息缓存键.
func KeyUser(ownerID string) string {
	return NSUser + segment(ownerID)
}

// KeyFile 构造单文件元数据缓存键.
func KeyFile(ownerID, name string) string {
	return NSFile + segment(ownerID) + ":" + segment(name)
}

// KeyFileList 构造属主文件列表缓存键.
func KeyFileList(ownerID string) string {
	return NSFile + segment(ownerID) + ":list"
}

// KeyMembership 构造属主会员状态缓存键.
func KeyMembership(ownerID string) string {
	return NSMembership + segment(ownerID)
}

// segment 归一化键段，过长的段替换为摘要.
func segment(s string) string {
	if len(s) <= maxKeySegment {
		return s
	}

	sum := xxhash.Sum64String(s)
	buf := make([]byte, 8)
	for i := range 8 {
		buf[i] = byte(sum >> (56 - 8*i))
	}

	return "x" + hex.EncodeToString(buf)
}

// Options 缓存行为配置.
type Options struct {
	// TTL 条目生存时间，0 表示不过期.
	TTL time.Duration
	// OpTimeout 单次后端操作的超时，0 表示不限制.
	OpTimeout time.Duration
	// Backend 后端名称，仅用于统计展示.
	Backend string
}

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore   kv.KVStore
	ttl       time.Duration
	opTimeout time.Duration
	backend   string
	breaker   *gobreaker.CircuitBreaker
	sf        singleflight.Group
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts Options) *Cache {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cache-kv",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Cache{
		kvStore:   kvStore,
		ttl:       opts.TTL,
		opTimeout: opts.OpTimeout,
		backend:   opts.Backend,
		breaker:   breaker,
	}
}

// TTL 返回默认条目生存时间.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Backend 返回后端名称.
func (c *Cache) Backend() string {
	return c.backend
}

// BreakerState 返回熔断器状态.
func (c *Cache) BreakerState() string {
	return c.breaker.State().String()
}

// Stats 返回命中/未命中计数.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// opContext 为单次后端操作附加超时.
func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.opTimeout)
}

// execute 经熔断器执行后端操作. 未命中不计入熔断失败.
func (c *Cache) execute(ctx context.Context, op func(ctx context.Context) (any, error)) (any, error) {
	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	result, err := c.breaker.Execute(func() (any, error) {
		out, opErr := op(opCtx)
		if errors.Is(opErr, kv.ErrNotFound) {
			return nil, nil
		}

		return out, opErr
	})
	if err != nil {
		// 后端故障或熔断打开，统一按未命中处理
		return nil, ErrMiss
	}

	if result == nil {
		return nil, ErrMiss
	}

	return result, nil
}

// GetBytes 获取原始缓存字节.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	result, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return c.kvStore.Get(ctx, key)
	})
	if err != nil {
		c.misses.Add(1)
		return nil, err
	}

	c.hits.Add(1)

	return result.([]byte), nil
}

// SetBytes 写入原始缓存字节. 后端故障时静默丢弃，不影响调用方.
func (c *Cache) SetBytes(ctx context.Context, key string, data []byte) {
	_, _ = c.execute(ctx, func(ctx context.Context) (any, error) {
		return struct{}{}, c.kvStore.Set(ctx, key, data, c.ttl)
	})
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.GetBytes(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		// 序列化格式变更后的旧条目当作未命中并顺手清除
		c.Delete(ctx, key)
		return zero, ErrMiss
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	c.SetBytes(ctx, key, data)

	return nil
}

// GetOrSet 获取缓存值，未命中时回源并回填. 同一键的并发回源合并为一次.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error)) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	result, err, _ := c.sf.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return nil, err
		}

		// 回填失败不影响返回值
		_ = Set(ctx, c, key, value)

		return value, nil
	})
	if err != nil {
		return zero, err
	}

	return result.(T), nil
}

// Delete 删除缓存键. 后端故障时静默忽略，过期条目最终由 TTL 清理.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		_, _ = c.execute(ctx, func(ctx context.Context) (any, error) {
			return struct{}{}, c.kvStore.Delete(ctx, key)
		})
	}
}

// DeleteByPrefix 按前缀批量删除，返回删除的数量.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) int {
	result, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return c.kvStore.DeleteByPrefix(ctx, prefix)
	})
	if err != nil {
		return 0
	}

	return result.(int)
}

// InvalidateOwner 失效属主相关的全部缓存键（用户信息、会员状态、文件条目与列表）.
// 必须在权威存储提交之后调用.
func (c *Cache) InvalidateOwner(ctx context.Context, ownerID string) {
	c.Delete(ctx, KeyUser(ownerID), KeyMembership(ownerID))
	c.DeleteByPrefix(ctx, NSFile+segment(ownerID)+":")
}

// Clear 清空各命名空间的缓存，返回按命名空间统计的清除数量.
func (c *Cache) Clear(ctx context.Context) map[string]int {
	cleared := make(map[string]int, 3)

	for _, ns := range []string{NSUser, NSFile, NSMembership} {
		cleared[ns] = c.DeleteByPrefix(ctx, ns)
	}

	return cleared
}
