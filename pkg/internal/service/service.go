// Package service 实现文件保管的业务逻辑：上传去重、配额核算、会员订阅与缓存维护.
package service

import (
	"context"

	"github.com/im7mortal/kmutex"

	"github.com/yeisme/filevault/pkg/cache"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/storage/blob"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
)

// ownerLocks 按属主串行化配额的检查与提交. 同一属主的并发上传/删除在这里排队，
// 不同属主互不阻塞.
var ownerLocks = kmutex.New()

// FileService 文件域服务，每个请求从 context 取存储句柄构造.
type FileService struct {
	dbClient   *db.Client
	blobStore  blob.Store
	mqClient   *mq.Client
	cacheLayer *cache.Cache
}

// NewFileService 创建文件域服务.
func NewFileService(c context.Context) *FileService {
	return &FileService{
		dbClient:   ctxPkg.GetDBClient(c),
		blobStore:  ctxPkg.GetBlobStore(c),
		mqClient:   ctxPkg.GetMQClient(c),
		cacheLayer: ctxPkg.GetCache(c),
	}
}

// MembershipService 会员域服务.
type MembershipService struct {
	dbClient   *db.Client
	mqClient   *mq.Client
	cacheLayer *cache.Cache
}

// NewMembershipService 创建会员域服务.
func NewMembershipService(c context.Context) *MembershipService {
	return &MembershipService{
		dbClient:   ctxPkg.GetDBClient(c),
		mqClient:   ctxPkg.GetMQClient(c),
		cacheLayer: ctxPkg.GetCache(c),
	}
}
