package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCacheEnabled   = true
	DefaultCacheTTL       = time.Hour              // 缓存条目默认存活时间
	DefaultCacheOpTimeout = 200 * time.Millisecond // 单次缓存操作的时间上限
)

// CacheConfig 缓存行为配置. 缓存只是加速层：关闭缓存不改变任何业务结果.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// TTL 条目存活时间，到期后由读取端视为未命中.
	TTL time.Duration `mapstructure:"ttl"`
	// OpTimeout 单次缓存操作超时，超时按未命中处理，不阻塞权威存储路径.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// setDefaults 设置缓存行为配置的默认值.
func (c *CacheConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.op_timeout", DefaultCacheOpTimeout)
}
