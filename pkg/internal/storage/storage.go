// Package storage 聚合持久化资源：元数据库、文件字节存储、缓存 KV 与消息队列.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	blobStore := mgr.GetBlobStore()
package storage

import (
	"context"
	"sync"

	"github.com/yeisme/filevault/pkg/cache"
	"github.com/yeisme/filevault/pkg/configs"
	blobc "github.com/yeisme/filevault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/filevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/filevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/filevault/pkg/internal/storage/mq"
	flog "github.com/yeisme/filevault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB    *dbc.Client
	Blob  blobc.Store
	KV    *kvc.Client
	MQ    *mqc.Client
	Cache *cache.Cache
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置. 重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e
			return
		}

		m.DB = dbi

		// Blob
		blobStore, e := blobc.New(ctx)
		if e != nil {
			err = e
			return
		}

		m.Blob = blobStore

		// KV
		kvi, e := kvc.NewKVClient(ctx)
		if e != nil {
			err = e
			return
		}

		m.KV = kvi

		// MQ（可选，未启用时为 nil）
		mqi, e := mqc.New(ctx)
		if e != nil {
			err = e
			return
		}

		m.MQ = mqi

		m.Cache = buildCache(m.KV)

		mgr = m

		flog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// buildCache 按缓存配置在 KV 之上构建缓存层. 缓存显式关闭时换用空后端，
// 保证业务路径只依赖权威存储.
func buildCache(kvClient *kvc.Client) *cache.Cache {
	cfg := configs.GetConfig()

	var store kvc.KVStore = kvClient
	backend := cfg.KV.Type

	if !cfg.Cache.Enabled {
		store = &kvc.NullKV{}
		backend = string(kvc.KVTypeNull)
	}

	return cache.NewCache(store, cache.Options{
		TTL:       cfg.Cache.TTL,
		OpTimeout: cfg.Cache.OpTimeout,
		Backend:   backend,
	})
}

// NewManager 以显式依赖构造 Manager，测试用.
func NewManager(db *dbc.Client, blob blobc.Store, kv *kvc.Client, mq *mqc.Client, c *cache.Cache) *Manager {
	return &Manager{DB: db, Blob: blob, KV: kv, MQ: mq, Cache: c}
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取文件字节存储.
func (m *Manager) GetBlobStore() blobc.Store {
	return m.Blob
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetCache 获取缓存层.
func (m *Manager) GetCache() *cache.Cache {
	return m.Cache
}

// Close 释放所有存储资源.
func (m *Manager) Close() error {
	var err error

	if m.KV != nil {
		if e := m.KV.Close(); e != nil {
			err = e
		}
	}

	if m.Blob != nil {
		if e := m.Blob.Close(); e != nil {
			err = e
		}
	}

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	if m.DB != nil {
		if sqlDB, e := m.DB.DB.DB(); e == nil {
			if e := sqlDB.Close(); e != nil {
				err = e
			}
		}
	}

	return err
}
