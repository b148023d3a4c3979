package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/filevault/pkg/configs"
	flog "github.com/yeisme/filevault/pkg/log"
)

// S3Store 基于 MinIO 客户端的对象存储实现，对象键为 <owner_id>/<name>.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Store 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func NewS3Store(ctx context.Context, config *configs.BlobConfig) (Store, error) {
	cfg := config.S3

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("filevault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		flog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	flog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &S3Store{client: cli, bucket: cfg.BucketName, region: cfg.Region}, nil
}

// Put 写入文件内容. size 未知时传 -1，客户端自动分片.
func (s *S3Store) Put(ctx context.Context, ownerID, name string, r io.Reader, size int64) (string, error) {
	key := Key(ownerID, name)

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return key, nil
}

// PutFile 上传暂存文件.
func (s *S3Store) PutFile(ctx context.Context, ownerID, name, srcPath string) (string, error) {
	key := Key(ownerID, name)

	if _, err := s.client.FPutObject(ctx, s.bucket, key, srcPath, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return key, nil
}

// Open 打开文件内容读取流.
func (s *S3Store) Open(ctx context.Context, ownerID, name string) (io.ReadCloser, error) {
	key := Key(ownerID, name)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	// GetObject 懒加载，Stat 触发首次请求以尽早暴露不存在错误
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, nil
}

// Remove 删除文件字节.
func (s *S3Store) Remove(ctx context.Context, ownerID, name string) error {
	key := Key(ownerID, name)

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// Rename 重命名文件字节. 对象存储没有原生改名，用服务端复制加删除实现.
func (s *S3Store) Rename(ctx context.Context, ownerID, oldName, newName string) (string, error) {
	oldKey := Key(ownerID, oldName)
	newKey := Key(ownerID, newName)

	src := minio.CopySrcOptions{Bucket: s.bucket, Object: oldKey}
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: newKey}

	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return "", fmt.Errorf("copy object %s to %s: %w", oldKey, newKey, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, oldKey, minio.RemoveObjectOptions{}); err != nil {
		return "", fmt.Errorf("remove old object %s: %w", oldKey, err)
	}

	return newKey, nil
}

// HealthCheck 通过列出桶验证连接.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (s *S3Store) Close() error {
	return nil
}

func init() {
	RegisterBlobFactory(configs.BlobTypeS3, NewS3Store)
}
