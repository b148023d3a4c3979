package types

// CacheClearResponse 缓存清理结果，按命名空间统计清除的条目数.
type CacheClearResponse struct {
	Cleared map[string]int `json:"cleared"`
	Total   int            `json:"total"`
}

// CacheStatsResponse 缓存运行状态.
type CacheStatsResponse struct {
	Enabled bool   `json:"enabled"`
	Backend string `json:"backend"`
	// 熔断器状态：closed / half-open / open
	BreakerState string `json:"breaker_state"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
}
