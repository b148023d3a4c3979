package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// BlobType 文件字节存储类型.
type BlobType string

const (
	BlobTypeFS BlobType = "fs" // 本地文件系统，按用户分目录
	BlobTypeS3 BlobType = "s3" // MinIO/S3 对象存储
)

const (
	DefaultBlobType          = BlobTypeFS
	DefaultBlobRoot          = "data/files"     // 本地存储根目录
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "filevault"      // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
)

// BlobConfig 文件字节存储配置. 文件内容按属主分目录（fs）或按属主前缀（s3）存放.
type BlobConfig struct {
	Type BlobType `mapstructure:"type" rule:"oneof=fs s3"`
	// Root 本地文件系统存储根目录，文件位于 <root>/<owner_id>/<name> 下.
	Root string   `mapstructure:"root"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config MinIO S3存储配置.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	Region          string `mapstructure:"region"`
}

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置文件字节存储配置的默认值.
func (c *BlobConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("blob.type", DefaultBlobType)
	v.SetDefault("blob.root", DefaultBlobRoot)
	v.SetDefault("blob.s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("blob.s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("blob.s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("blob.s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("blob.s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("blob.s3.region", DefaultS3Region)
}
