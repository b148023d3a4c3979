// Package digest 计算文件内容摘要，承担内容级去重的判定依据.
//
// 普通文件对字节流做 SHA-256；zip 归档对解压后的成员内容做摘要，
// 使得仅压缩参数或打包顺序不同的归档得到相同摘要.
package digest

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
)

// 流式读取块大小，避免大文件占用过多内存.
const chunkSize = 8 << 20

// Stream 流式计算 r 的 SHA-256 摘要，返回 hex 串与读取的字节数.
func Stream(r io.Reader) (string, int64, error) {
	hasher := sha256.New()
	buf := make([]byte, chunkSize)

	n, err := io.CopyBuffer(hasher, r, buf)
	if err != nil {
		return "", 0, apperrors.NewFileOperation("digest", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// IsZipName 按扩展名判断是否按 zip 归档计算摘要.
func IsZipName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// ZipContents 对 zip 归档的成员内容计算摘要：成员按名称排序后顺序喂入同一个
// SHA-256，目录项跳过，成员名本身不参与摘要. 损坏的归档返回 FileOperationError.
func ZipContents(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", apperrors.NewFileOperation("open zip", err)
	}
	defer reader.Close()

	members := make([]*zip.File, 0, len(reader.File))
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members = append(members, f)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})

	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	for _, f := range members {
		if err := hashZipMember(hasher, f, buf); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func hashZipMember(w io.Writer, f *zip.File, buf []byte) error {
	rc, err := f.Open()
	if err != nil {
		return apperrors.NewFileOperation("open zip member", err)
	}
	defer rc.Close()

	if _, err := io.CopyBuffer(w, rc, buf); err != nil {
		return apperrors.NewFileOperation("read zip member", err)
	}

	return nil
}
