package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/apperrors"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/rule"
)

// ListLevels 返回全部会员等级.
func ListLevels(c *gin.Context) {
	svc := service.NewMembershipService(c.Request.Context())

	resp, err := svc.ListLevels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetMembership 返回属主当前的会员状态.
func GetMembership(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	svc := service.NewMembershipService(c.Request.Context())

	resp, err := svc.Get(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Subscribe 开通、升级或续期订阅.
func Subscribe(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var req types.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})
		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})
		return
	}

	svc := service.NewMembershipService(c.Request.Context())

	resp, err := svc.Subscribe(c.Request.Context(), owner, req.LevelCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
