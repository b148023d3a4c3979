package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yeisme/filevault/pkg/configs"
	flog "github.com/yeisme/filevault/pkg/log"
)

// FSStore 本地文件系统实现，文件位于 <root>/<owner_id>/<name>.
type FSStore struct {
	root string
}

// NewFSStore 创建本地文件系统存储，根目录不存在时创建.
func NewFSStore(ctx context.Context, config *configs.BlobConfig) (Store, error) {
	root := config.Root
	if root == "" {
		root = configs.DefaultBlobRoot
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}

	flog.Logger().Info().Str("root", root).Msg("本地文件存储就绪")

	return &FSStore{root: root}, nil
}

// Root 返回存储根目录.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) path(ownerID, name string) string {
	return filepath.Join(s.root, ownerID, name)
}

func (s *FSStore) ensureOwnerDir(ownerID string) error {
	if err := os.MkdirAll(filepath.Join(s.root, ownerID), 0o750); err != nil {
		return fmt.Errorf("create owner dir: %w", err)
	}

	return nil
}

// Put 写入文件内容.
func (s *FSStore) Put(ctx context.Context, ownerID, name string, r io.Reader, size int64) (string, error) {
	if err := s.ensureOwnerDir(ownerID); err != nil {
		return "", err
	}

	dst := s.path(ownerID, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)

		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}

	return Key(ownerID, name), nil
}

// PutFile 把暂存文件落位. 目标已存在时报错而不是覆盖：已提交文件的字节
// 只能经 Remove/Rename 变更. 同卷时硬链接后删源，跨卷退化为独占复制.
func (s *FSStore) PutFile(ctx context.Context, ownerID, name, srcPath string) (string, error) {
	if err := s.ensureOwnerDir(ownerID); err != nil {
		return "", err
	}

	dst := s.path(ownerID, name)

	err := os.Link(srcPath, dst)
	if err == nil {
		os.Remove(srcPath)
		return Key(ownerID, name), nil
	}

	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("destination %s already exists", Key(ownerID, name))
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer src.Close()

	key, err := s.putExcl(ownerID, name, src)
	if err != nil {
		return "", err
	}

	os.Remove(srcPath)

	return key, nil
}

// putExcl 独占写入目标文件，目标已存在时失败.
func (s *FSStore) putExcl(ownerID, name string, r io.Reader) (string, error) {
	dst := s.path(ownerID, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("destination %s already exists", Key(ownerID, name))
		}

		return "", fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)

		return "", fmt.Errorf("write %s: %w", dst, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close %s: %w", dst, err)
	}

	return Key(ownerID, name), nil
}

// Open 打开文件内容读取流.
func (s *FSStore) Open(ctx context.Context, ownerID, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(ownerID, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Key(ownerID, name), err)
	}

	return f, nil
}

// Remove 删除文件字节.
func (s *FSStore) Remove(ctx context.Context, ownerID, name string) error {
	err := os.Remove(s.path(ownerID, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", Key(ownerID, name), err)
	}

	return nil
}

// Rename 重命名文件字节，目标已存在时报错而不是覆盖.
func (s *FSStore) Rename(ctx context.Context, ownerID, oldName, newName string) (string, error) {
	if _, err := os.Lstat(s.path(ownerID, newName)); err == nil {
		return "", fmt.Errorf("destination %s already exists", Key(ownerID, newName))
	}

	if err := os.Rename(s.path(ownerID, oldName), s.path(ownerID, newName)); err != nil {
		return "", fmt.Errorf("rename %s to %s: %w", Key(ownerID, oldName), newName, err)
	}

	return Key(ownerID, newName), nil
}

// HealthCheck 验证根目录可写.
func (s *FSStore) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat blob root: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("blob root %s is not a directory", s.root)
	}

	return nil
}

// Close 关闭存储（本地实现无需操作）.
func (s *FSStore) Close() error {
	return nil
}

func init() {
	RegisterBlobFactory(configs.BlobTypeFS, NewFSStore)
}
