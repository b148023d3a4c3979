package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
)

// RegisterMembershipRoutes 注册会员订阅相关路由.
func RegisterMembershipRoutes(g *gin.RouterGroup) {
	membershipRoutes := g.Group("/membership")
	{
		// 可订阅的等级列表
		membershipRoutes.GET("/levels", handle.ListLevels)
		// 当前属主的会员状态
		membershipRoutes.GET("", handle.GetMembership)
		// 开通/升级/续期
		membershipRoutes.POST("/subscribe", handle.Subscribe)
	}
}
