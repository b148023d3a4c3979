package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
)

// RegisterCacheRoutes 注册缓存运维路由.
func RegisterCacheRoutes(g *gin.RouterGroup) {
	cacheRoutes := g.Group("/cache")
	{
		cacheRoutes.GET("/stats", handle.CacheStats)
		cacheRoutes.DELETE("", handle.ClearCache)
	}
}
