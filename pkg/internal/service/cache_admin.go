package service

import (
	"context"

	"github.com/yeisme/filevault/pkg/cache"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/types"
)

// CacheService 缓存运维操作. 缓存仅作加速层，这些操作不影响业务数据.
type CacheService struct {
	cacheLayer *cache.Cache
}

// NewCacheService 创建缓存运维服务.
func NewCacheService(c context.Context) *CacheService {
	return &CacheService{cacheLayer: ctxPkg.GetCache(c)}
}

// Clear 清空全部缓存命名空间，返回各命名空间清除的条目数.
func (s *CacheService) Clear(ctx context.Context) *types.CacheClearResponse {
	resp := &types.CacheClearResponse{Cleared: map[string]int{}}
	if s.cacheLayer == nil {
		return resp
	}

	resp.Cleared = s.cacheLayer.Clear(ctx)
	for _, n := range resp.Cleared {
		resp.Total += n
	}

	return resp
}

// Stats 返回缓存运行状态.
func (s *CacheService) Stats(ctx context.Context) *types.CacheStatsResponse {
	if s.cacheLayer == nil {
		return &types.CacheStatsResponse{Enabled: false}
	}

	hits, misses := s.cacheLayer.Stats()

	return &types.CacheStatsResponse{
		Enabled:      s.cacheLayer.Backend() != "null",
		Backend:      s.cacheLayer.Backend(),
		BreakerState: s.cacheLayer.BreakerState(),
		Hits:         hits,
		Misses:       misses,
	}
}
