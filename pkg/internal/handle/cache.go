package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/service"
)

// ClearCache 清空全部缓存，返回各命名空间清除的条目数.
// 缓存只是加速层，该操作不影响任何业务数据.
func ClearCache(c *gin.Context) {
	svc := service.NewCacheService(c.Request.Context())
	c.JSON(http.StatusOK, svc.Clear(c.Request.Context()))
}

// CacheStats 返回缓存命中统计与熔断器状态.
func CacheStats(c *gin.Context) {
	svc := service.NewCacheService(c.Request.Context())
	c.JSON(http.StatusOK, svc.Stats(c.Request.Context()))
}
