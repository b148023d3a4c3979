package kv

import (
	"context"
	"time"

	"github.com/yeisme/filevault/pkg/configs"
)

// NullKV 空实现：读永远未命中，写直接丢弃. 用于显式关闭缓存层，
// 业务路径只依赖权威存储，行为保持正确.
type NullKV struct{}

// NewNullKV 创建空 KV 实例.
func NewNullKV(ctx context.Context, config *configs.KVConfig) (KVStore, error) {
	return &NullKV{}, nil
}

func (n *NullKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrNotFound
}

func (n *NullKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (n *NullKV) Delete(ctx context.Context, key string) error {
	return nil
}

func (n *NullKV) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return 0, nil
}

func (n *NullKV) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (n *NullKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (n *NullKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNull, NewNullKV)
}
