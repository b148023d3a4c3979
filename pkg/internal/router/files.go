package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件操作相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		// 上传单个文件（multipart）
		filesRoutes.POST("", handle.UploadFile)
		// 属主文件列表
		filesRoutes.GET("", handle.ListFiles)

		// 单个文件操作
		singleGroup := filesRoutes.Group("/:name")
		{
			// 文件元数据
			singleGroup.GET("", handle.GetFile)
			// 更新可见性/描述
			singleGroup.PUT("", handle.UpdateFile)
			// 删除文件
			singleGroup.DELETE("", handle.DeleteFile)
			// 下载文件内容
			singleGroup.GET("/download", handle.DownloadFile)
			// 重命名
			singleGroup.POST("/rename", handle.RenameFile)
		}
	}

	// 公开文件列表，跨属主可见
	g.GET("/public/files", handle.ListPublicFiles)

	// 属主存储用量统计
	g.GET("/stats", handle.StorageStats)
}
