package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
)

// AuthMiddleware 从认证代理注入的请求头提取属主标识并写入请求 context。
//   - 属主 ID 取自 conf.Header（默认 X-User-ID）
//   - 支持通过配置跳过某些路径（如 /metrics, /health）
//   - 开发模式可允许 query owner 兜底（由 configs.auth.dev_allow_query 控制）.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	header := conf.Header
	if header == "" {
		header = "X-User-ID"
	}

	return func(c *gin.Context) {
		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		ownerID := strings.TrimSpace(c.GetHeader(header))

		if ownerID == "" && conf.DevAllowQuery {
			ownerID = strings.TrimSpace(c.Query("owner"))
		}

		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := ctxPkg.WithOwnerID(c.Request.Context(), ownerID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
