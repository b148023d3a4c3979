package handle

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/metrics"
)

// UploadFile 处理单个文件上传（multipart 表单，file 字段为文件本体）.
// 可选表单字段：file_name 覆盖文件名，permission 可见性，description 描述.
func UploadFile(c *gin.Context) {
	l := log.Logger()

	file, err := c.FormFile("file")
	if err != nil {
		l.Warn().Err(err).Msg("failed to get uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "code": apperrors.CodeValidation})

		return
	}

	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req types.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid upload form")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})

		return
	}

	fileName := c.PostForm("file_name")
	if fileName == "" {
		fileName = file.Filename
	}

	src, err := file.Open()
	if err != nil {
		l.Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file", "code": apperrors.CodeFileOperation})

		return
	}
	defer src.Close()

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.Upload(c.Request.Context(), owner, fileName, src, &req)
	if err != nil {
		recordUploadFailure(err)
		respondError(c, err)

		return
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.UploadedBytes.Add(float64(info.Size))

	c.JSON(http.StatusOK, info)
}

// recordUploadFailure 按失败原因记录上传指标.
func recordUploadFailure(err error) {
	switch {
	case apperrors.IsQuotaExceeded(err):
		metrics.UploadsTotal.WithLabelValues("quota").Inc()

		var qe *apperrors.QuotaExceededError
		if errors.As(err, &qe) {
			metrics.QuotaRejections.WithLabelValues(string(qe.Limit)).Inc()
		}
	case apperrors.IsConflict(err):
		metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
	case apperrors.IsValidation(err):
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
	default:
		metrics.UploadsTotal.WithLabelValues("error").Inc()
	}
}

// GetFile 返回单个文件的元数据.
func GetFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.Get(c.Request.Context(), owner, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// DownloadFile 流式下载文件内容.
func DownloadFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, rc, err := svc.Download(c.Request.Context(), owner, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", info.Name),
	}
	c.DataFromReader(http.StatusOK, info.Size, "application/octet-stream", rc, headers)
}

// RenameFile 重命名文件.
func RenameFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req types.RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.Rename(c.Request.Context(), owner, c.Param("name"), req.NewName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// UpdateFile 更新文件可见性/描述.
func UpdateFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req types.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.UpdateAttrs(c.Request.Context(), owner, c.Param("name"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteFile 删除文件并释放配额.
func DeleteFile(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.Delete(c.Request.Context(), owner, c.Param("name")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
