// Package blob 处理文件物理字节的存放，按属主隔离.
package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/yeisme/filevault/pkg/configs"
)

// Store 定义物理字节存储接口. 文件以 (属主, 文件名) 定位，
// 返回的 storage path 持久化在元数据中，跨后端保持 <owner_id>/<name> 形式.
type Store interface {
	// Put 写入文件内容，返回存储键.
	Put(ctx context.Context, ownerID, name string, r io.Reader, size int64) (string, error)
	// PutFile 把本地暂存文件落位（fs 后端可直接改名，s3 后端上传）.
	PutFile(ctx context.Context, ownerID, name, srcPath string) (string, error)
	// Open 打开文件内容读取流.
	Open(ctx context.Context, ownerID, name string) (io.ReadCloser, error)
	// Remove 删除文件字节，文件不存在不报错.
	Remove(ctx context.Context, ownerID, name string) error
	// Rename 重命名文件字节，返回新的存储键.
	Rename(ctx context.Context, ownerID, oldName, newName string) (string, error)
	// HealthCheck 验证后端可用.
	HealthCheck(ctx context.Context) error
	// Close 关闭存储连接.
	Close() error
}

// Key 返回跨后端统一的存储键.
func Key(ownerID, name string) string {
	return ownerID + "/" + name
}

// BlobFactory 定义创建 Store 的工厂函数类型.
type BlobFactory func(ctx context.Context, config *configs.BlobConfig) (Store, error)

// blobFactories 存储后端类型到工厂的映射.
var blobFactories = make(map[configs.BlobType]BlobFactory)

// RegisterBlobFactory 注册 blob 工厂函数.
func RegisterBlobFactory(blobType configs.BlobType, factory BlobFactory) {
	blobFactories[blobType] = factory
}

// GetRegisteredBlobTypes 返回已注册的后端类型列表.
func GetRegisteredBlobTypes() []configs.BlobType {
	types := make([]configs.BlobType, 0, len(blobFactories))
	for blobType := range blobFactories {
		types = append(types, blobType)
	}

	return types
}

// NewBlobStore 根据类型创建 Store 实例.
func NewBlobStore(ctx context.Context, blobType configs.BlobType, config *configs.BlobConfig) (Store, error) {
	factory, exists := blobFactories[blobType]
	if !exists {
		return nil, fmt.Errorf("unsupported blob type: %s", blobType)
	}

	return factory(ctx, config)
}

// New 按全局配置创建 Store.
func New(ctx context.Context) (Store, error) {
	cfg := configs.GetConfig().Blob
	return NewBlobStore(ctx, cfg.Type, &cfg)
}
