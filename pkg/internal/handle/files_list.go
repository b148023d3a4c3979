package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/service"
)

// ListFiles 返回属主的全部文件.
func ListFiles(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPublicFiles 返回所有属主的公开文件，无需身份.
func ListPublicFiles(c *gin.Context) {
	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StorageStats 返回属主的存储用量与限额.
func StorageStats(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Stats(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
