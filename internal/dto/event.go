package dto

import (
	"errors"
	"time"

	"calsync/internal/model"
	"calsync/internal/recurrence"
)

// ── 事件模块 DTO ──

// ErrEndBeforeStart 结束时间不晚于开始时间
var ErrEndBeforeStart = errors.New("结束时间必须晚于开始时间")

// EventRequest 创建/更新事件请求
// 更新为整体替换语义：未携带的重复规则字段会被清空
type EventRequest struct {
	Title       string  `json:"title"       binding:"required,max=100"`
	Description string  `json:"description" binding:"max=2000"`
	StartTime   APITime `json:"start_time"  binding:"required"`
	EndTime     APITime `json:"end_time"    binding:"required"`
	Location    string  `json:"location"    binding:"max=200"`

	IsRecurring          bool      `json:"is_recurring"`
	RecurrenceFrequency  *string   `json:"recurrence_frequency"`
	RecurrenceInterval   int       `json:"recurrence_interval"`
	RecurrenceDays       []string  `json:"recurrence_days"`
	RecurrenceEndType    *string   `json:"recurrence_end_type"`
	RecurrenceEndCount   *int      `json:"recurrence_end_count"`
	RecurrenceEndDate    *APITime  `json:"recurrence_end_date"`
	RecurrenceExceptions []APITime `json:"recurrence_exceptions"`
}

// Validate 业务级校验（binding 之外的跨字段规则）
func (r *EventRequest) Validate() error {
	if !r.EndTime.After(r.StartTime.Time) {
		return ErrEndBeforeStart
	}
	if r.IsRecurring {
		if r.RecurrenceFrequency == nil {
			return &recurrence.RuleError{Field: "recurrence_frequency", Reason: "重复事件必须指定频率"}
		}
		rule := r.Rule()
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Rule 提取重复规则（调用方保证 IsRecurring 且频率非空）
func (r *EventRequest) Rule() recurrence.Rule {
	rule := recurrence.Rule{
		Interval: r.RecurrenceInterval,
		Weekdays: r.RecurrenceDays,
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	if r.RecurrenceFrequency != nil {
		rule.Frequency = *r.RecurrenceFrequency
	}
	if r.RecurrenceEndType != nil {
		rule.EndType = *r.RecurrenceEndType
	}
	if r.RecurrenceEndCount != nil {
		rule.EndCount = *r.RecurrenceEndCount
	}
	if r.RecurrenceEndDate != nil {
		d := r.RecurrenceEndDate.UTC()
		rule.EndDate = &d
	}
	for _, ex := range r.RecurrenceExceptions {
		rule.Exceptions = append(rule.Exceptions, ex.UTC())
	}
	return rule
}

// ToModel 转换为事件模型，时间统一归一化为 UTC
func (r *EventRequest) ToModel(ownerID uint) *model.Event {
	event := &model.Event{
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		Location:    r.Location,
		IsRecurring: r.IsRecurring,
		OwnerID:     ownerID,
	}
	if !r.IsRecurring {
		event.RecurrenceInterval = 1
		return event
	}

	event.RecurrenceFrequency = r.RecurrenceFrequency
	event.RecurrenceInterval = r.RecurrenceInterval
	if event.RecurrenceInterval < 1 {
		event.RecurrenceInterval = 1
	}
	if len(r.RecurrenceDays) > 0 {
		event.RecurrenceDays = model.StringArray(r.RecurrenceDays)
	}
	event.RecurrenceEndType = r.RecurrenceEndType
	event.RecurrenceEndCount = r.RecurrenceEndCount
	if r.RecurrenceEndDate != nil {
		d := r.RecurrenceEndDate.UTC()
		event.RecurrenceEndDate = &d
	}
	if len(r.RecurrenceExceptions) > 0 {
		exs := make(model.TimeArray, len(r.RecurrenceExceptions))
		for i, ex := range r.RecurrenceExceptions {
			exs[i] = ex.UTC()
		}
		event.RecurrenceExceptions = exs
	}
	return event
}

// BatchCreateRequest 批量创建请求
type BatchCreateRequest struct {
	Events []EventRequest `json:"events" binding:"required,min=1,max=100,dive"`
}

// EventResponse 事件响应
type EventResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`

	IsRecurring          bool        `json:"is_recurring"`
	RecurrenceFrequency  *string     `json:"recurrence_frequency,omitempty"`
	RecurrenceInterval   int         `json:"recurrence_interval"`
	RecurrenceDays       []string    `json:"recurrence_days,omitempty"`
	RecurrenceEndType    *string     `json:"recurrence_end_type,omitempty"`
	RecurrenceEndCount   *int        `json:"recurrence_end_count,omitempty"`
	RecurrenceEndDate    *time.Time  `json:"recurrence_end_date,omitempty"`
	RecurrenceExceptions []time.Time `json:"recurrence_exceptions,omitempty"`

	OwnerID   uint      `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEventResponse 从模型构造事件响应
func NewEventResponse(event *model.Event) *EventResponse {
	resp := &EventResponse{
		ID:                  event.ID,
		Title:               event.Title,
		Description:         event.Description,
		StartTime:           event.StartTime.UTC(),
		EndTime:             event.EndTime.UTC(),
		Location:            event.Location,
		IsRecurring:         event.IsRecurring,
		RecurrenceFrequency: event.RecurrenceFrequency,
		RecurrenceInterval:  event.RecurrenceInterval,
		RecurrenceEndType:   event.RecurrenceEndType,
		RecurrenceEndCount:  event.RecurrenceEndCount,
		OwnerID:             event.OwnerID,
		CreatedAt:           event.CreatedAt,
		UpdatedAt:           event.UpdatedAt,
	}
	if event.RecurrenceDays != nil {
		resp.RecurrenceDays = []string(event.RecurrenceDays)
	}
	if event.RecurrenceEndDate != nil {
		d := event.RecurrenceEndDate.UTC()
		resp.RecurrenceEndDate = &d
	}
	for _, ex := range event.RecurrenceExceptions {
		resp.RecurrenceExceptions = append(resp.RecurrenceExceptions, ex.UTC())
	}
	return resp
}

// NewEventResponseList 批量构造事件响应
func NewEventResponseList(events []model.Event) []EventResponse {
	resps := make([]EventResponse, 0, len(events))
	for i := range events {
		resps = append(resps, *NewEventResponse(&events[i]))
	}
	return resps
}

// InstanceResponse 重复事件展开出的单个实例
type InstanceResponse struct {
	EventID   uint      `json:"event_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// [自证通过] internal/dto/event.go
