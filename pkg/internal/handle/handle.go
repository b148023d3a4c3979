// Package handle 提供HTTP请求处理器的实现.
package handle

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/rule"
)

// checkOwner 提取当前请求的属主标识：认证中间件注入的 context 优先 ->
// X-User-ID 请求头 -> query 参数 -> 非 Release 模式默认 test-user（便于测试）.
func checkOwner(c *gin.Context) (string, error) {
	owner := ctxPkg.GetOwnerID(c.Request.Context())

	if owner == "" {
		owner = c.GetHeader("X-User-ID")
	}

	if owner == "" {
		owner = c.Query("owner")
	}

	if owner == "" && gin.Mode() != gin.ReleaseMode {
		owner = "test-user"
	}

	owner = strings.TrimSpace(owner)

	if err := rule.ValidateVar(owner, "required,max=255"); err != nil {
		return "", err
	}

	return owner, nil
}

// respondError 把业务错误映射为HTTP响应，未分类错误一律按 500 处理且不回显内部细节.
func respondError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	if code == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
		return
	}

	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error(), "code": code})
}

// requireOwner 提取属主标识，失败时直接写出 400 响应并返回 false.
func requireOwner(c *gin.Context) (string, bool) {
	owner, err := checkOwner(c)
	if owner == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing owner identity", "code": apperrors.CodeValidation})
		return "", false
	}

	return owner, true
}
