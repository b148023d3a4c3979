// Package router 管理路由配置，将路径和处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"
)

// Setup 在根引擎上注册全部 API 路由. 业务接口统一挂在 /api/v1 下，
// 健康检查挂在根路径（便于探针配置跳过认证）.
func Setup(engine *gin.Engine) {
	RegisterHealthCheckRoute(&engine.RouterGroup)

	api := engine.Group("/api/v1")
	{
		RegisterFilesRoutes(api)
		RegisterMembershipRoutes(api)
		RegisterCacheRoutes(api)
	}
}
