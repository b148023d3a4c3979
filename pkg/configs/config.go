// Package configs 管理应用程序配置，包括数据库、文件字节存储、缓存与队列的配置信息.
// 支持多种配置格式（YAML、JSON、TOML、dotenv）、FILEVAULT_ 前缀环境变量与热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本号.
const AppVersion = "1.0.0"

// AppConfig 全局应用程序配置.
type AppConfig struct {
	DB        DBConfig        `mapstructure:"db"`         // DBConfig 元数据数据库配置
	Blob      BlobConfig      `mapstructure:"blob"`       // BlobConfig 文件字节存储配置
	KV        KVConfig        `mapstructure:"kv"`         // KVConfig 缓存后端配置
	Cache     CacheConfig     `mapstructure:"cache"`      // CacheConfig 缓存行为配置
	MQ        MQConfig        `mapstructure:"mq"`         // MQConfig 消息队列配置
	Server    ServerConfig    `mapstructure:"server"`     // ServerConfig 服务器配置
	Auth      AuthConfig      `mapstructure:"auth"`       // AuthConfig 认证配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"` // RateLimitConfig 速率限制配置
	Log       LogConfig       `mapstructure:"log"`        // LogConfig 日志相关配置
	Metrics   MetricsConfig   `mapstructure:"metrics"`    // MetricsConfig 监控指标配置
	Tracing   TracingConfig   `mapstructure:"tracing"`    // TracingConfig 分布式追踪配置
}

// defaulter 由各子配置实现，向 viper 注册默认值.
type defaulter interface {
	setDefaults(v *viper.Viper)
}

var (
	globalConfig AppConfig
	appViper     *viper.Viper
)

// InitConfig 加载应用程序配置，path 可以是配置文件或其所在目录.
// 缺失配置文件时仅使用默认值与环境变量.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)
	resolveConfigFile(appViper, path)

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("FILEVAULT")

	if err := appViper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if globalConfig.Server.ReloadConfig {
		watchConfig(appViper)
	}

	return nil
}

// resolveConfigFile 把 path 解析为实际配置文件，目录则按常见扩展名探测 config.*.
func resolveConfigFile(v *viper.Viper, path string) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
		return
	}

	v.SetConfigName("config")
	v.AddConfigPath(path)
	v.AddConfigPath(filepath.Join(path, "configs"))

	for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
		cfg := filepath.Join(path, "config."+ext)
		if _, err := os.Stat(cfg); err == nil {
			v.SetConfigFile(cfg)
			return
		}
	}
}

func setAllDefaults(v *viper.Viper) {
	sections := []defaulter{
		&ServerConfig{}, &DBConfig{}, &BlobConfig{}, &KVConfig{},
		&CacheConfig{}, &MQConfig{}, &AuthConfig{}, &RateLimitConfig{},
		&LogConfig{}, &MetricsConfig{}, &TracingConfig{},
	}
	for _, s := range sections {
		s.setDefaults(v)
	}
}

func watchConfig(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
