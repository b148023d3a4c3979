package configs

import "github.com/spf13/viper"

// AuthConfig 认证配置. 会话校验与凭据管理由外部认证代理完成，
// 这里只约定属主标识的注入方式.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Header 携带已认证用户ID的请求头名称.
	Header string `mapstructure:"header"`
	// SkipPaths 跳过认证的路径前缀（如 /health, /metrics）.
	SkipPaths []string `mapstructure:"skip_paths"`
	// DevAllowQuery 开发模式下允许通过 query 参数传入用户ID兜底.
	DevAllowQuery bool `mapstructure:"dev_allow_query"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.header", "X-User-ID")
	v.SetDefault("auth.skip_paths", []string{"/health", "/metrics"})
	v.SetDefault("auth.dev_allow_query", false)
}
