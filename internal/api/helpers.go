package api

import (
	"errors"
	"net/http"

	"secure-vault/internal/apperrors"
	"secure-vault/internal/directory"
	"secure-vault/internal/service"

	"github.com/gin-gonic/gin"
)

// 从认证中间件放进上下文的声明组装调用者身份
func identityFrom(c *gin.Context) service.Identity {
	groups, _ := c.Get("groups")
	groupNames, _ := groups.([]string)
	return service.Identity{
		UserID:   c.GetUint("userID"),
		Username: c.GetString("username"),
		Groups:   groupNames,
		IP:       c.ClientIP(),
	}
}

// 错误种类到HTTP状态码的映射
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, apperrors.ErrInvalidShareTarget),
		errors.Is(err, apperrors.ErrInvalidLevel),
		errors.Is(err, apperrors.ErrTraversalRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, directory.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
