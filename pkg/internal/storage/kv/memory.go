package kv

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/filevault/pkg/configs"
)

// memoryEntry 内存条目，携带可选的过期时间.
type memoryEntry struct {
	data     []byte
	expireAt time.Time // 零值表示不过期
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// MemoryKV 基于 sync.Map 的内存 KV 实现，过期条目在访问时惰性清除.
type MemoryKV struct {
	data sync.Map
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(ctx context.Context, config *configs.KVConfig) (KVStore, error) {
	// 内存实现不需要特殊配置
	return &MemoryKV{}, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, ErrNotFound
	}

	entry := value.(*memoryEntry)
	if entry.expired(time.Now()) {
		m.data.Delete(key)
		return nil, ErrNotFound
	}

	// 返回副本
	result := make([]byte, len(entry.data))
	copy(result, entry.data)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// 复制值
	data := make([]byte, len(value))
	copy(data, value)

	entry := &memoryEntry{data: data}
	if ttl > 0 {
		entry.expireAt = time.Now().Add(ttl)
	}

	m.data.Store(key, entry)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// DeleteByPrefix 删除所有指定前缀的键.
func (m *MemoryKV) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	count := 0

	m.data.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}

		if strings.HasPrefix(k, prefix) {
			if !value.(*memoryEntry).expired(time.Now()) {
				count++
			}

			m.data.Delete(k)
		}

		return true
	})

	return count, nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return false, nil
	}

	if value.(*memoryEntry).expired(time.Now()) {
		m.data.Delete(key)
		return false, nil
	}

	return true, nil
}

// Keys 获取指定前缀的键.
func (m *MemoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	now := time.Now()

	m.data.Range(func(key, value any) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}

		if value.(*memoryEntry).expired(now) {
			m.data.Delete(k)
			return true
		}

		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
