package model

import (
	"fmt"
	"time"
)

// ── 重复规则常量 ──

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

const (
	RecurrenceEndNever = "never"
	RecurrenceEndCount = "count"
	RecurrenceEndUntil = "until"
)

// Event 日历事件表 — 对应 events
// 不变式：EndTime 严格晚于 StartTime（建表时有 CHECK 约束，入口处由 DTO 校验）
// 核心层不做物理删除，仅置 IsDeleted
type Event struct {
	ID          uint      `gorm:"primaryKey"                          json:"id"`
	Title       string    `gorm:"type:varchar(100);not null;index"    json:"title"`
	Description string    `gorm:"type:text;not null;default:''"       json:"description"`
	StartTime   time.Time `gorm:"not null;index:idx_event_dates"      json:"start_time"`
	EndTime     time.Time `gorm:"not null;index:idx_event_dates"      json:"end_time"`
	Location    string    `gorm:"type:varchar(200);not null;default:''" json:"location"`

	// 重复规则（嵌入事件行，与原始数据模型一致）
	IsRecurring          bool        `gorm:"not null;default:false;index"   json:"is_recurring"`
	RecurrenceFrequency  *string     `gorm:"type:varchar(20)"               json:"recurrence_frequency,omitempty"`
	RecurrenceInterval   int         `gorm:"not null;default:1"             json:"recurrence_interval"`
	RecurrenceDays       StringArray `gorm:"type:jsonb"                     json:"recurrence_days,omitempty"`
	RecurrenceEndType    *string     `gorm:"type:varchar(20)"               json:"recurrence_end_type,omitempty"`
	RecurrenceEndCount   *int        `json:"recurrence_end_count,omitempty"`
	RecurrenceEndDate    *time.Time  `json:"recurrence_end_date,omitempty"`
	RecurrenceExceptions TimeArray   `gorm:"type:jsonb"                     json:"recurrence_exceptions,omitempty"`

	OwnerID   uint `gorm:"not null;index:idx_event_owner" json:"owner_id"`
	IsDeleted bool `gorm:"not null;default:false"         json:"is_deleted"`
	BaseModel
}

// TableName 指定表名
func (Event) TableName() string { return "events" }

// Duration 事件基础时长
func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Snapshot 导出可变字段快照（版本数据）
// 时间统一为 UTC RFC3339 文本，保证快照间的值相等性比较是纯值比较
func (e *Event) Snapshot() JSONMap {
	snap := JSONMap{
		"title":                 e.Title,
		"description":           e.Description,
		"start_time":            e.StartTime.UTC().Format(time.RFC3339),
		"end_time":              e.EndTime.UTC().Format(time.RFC3339),
		"location":              e.Location,
		"is_recurring":          e.IsRecurring,
		"recurrence_frequency":  nil,
		"recurrence_interval":   float64(e.RecurrenceInterval),
		"recurrence_days":       nil,
		"recurrence_end_type":   nil,
		"recurrence_end_count":  nil,
		"recurrence_end_date":   nil,
		"recurrence_exceptions": nil,
	}
	if e.RecurrenceFrequency != nil {
		snap["recurrence_frequency"] = *e.RecurrenceFrequency
	}
	if e.RecurrenceDays != nil {
		days := make([]interface{}, len(e.RecurrenceDays))
		for i, d := range e.RecurrenceDays {
			days[i] = d
		}
		snap["recurrence_days"] = days
	}
	if e.RecurrenceEndType != nil {
		snap["recurrence_end_type"] = *e.RecurrenceEndType
	}
	if e.RecurrenceEndCount != nil {
		snap["recurrence_end_count"] = float64(*e.RecurrenceEndCount)
	}
	if e.RecurrenceEndDate != nil {
		snap["recurrence_end_date"] = e.RecurrenceEndDate.UTC().Format(time.RFC3339)
	}
	if e.RecurrenceExceptions != nil {
		exs := make([]interface{}, len(e.RecurrenceExceptions))
		for i, ex := range e.RecurrenceExceptions {
			exs[i] = ex.UTC().Format(time.RFC3339)
		}
		snap["recurrence_exceptions"] = exs
	}
	return snap
}

// ApplySnapshot 按字段名显式回放快照到事件可变字段
// 未知字段直接报错，杜绝按名称动态赋值导致的静默丢弃
func (e *Event) ApplySnapshot(snap JSONMap) error {
	for field, value := range snap {
		switch field {
		case "title":
			s, err := snapString(field, value)
			if err != nil {
				return err
			}
			e.Title = s
		case "description":
			s, err := snapString(field, value)
			if err != nil {
				return err
			}
			e.Description = s
		case "location":
			s, err := snapString(field, value)
			if err != nil {
				return err
			}
			e.Location = s
		case "start_time":
			t, err := snapTime(field, value)
			if err != nil {
				return err
			}
			e.StartTime = *t
		case "end_time":
			t, err := snapTime(field, value)
			if err != nil {
				return err
			}
			e.EndTime = *t
		case "is_recurring":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
			}
			e.IsRecurring = b
		case "recurrence_frequency":
			e.RecurrenceFrequency = nil
			if value != nil {
				s, err := snapString(field, value)
				if err != nil {
					return err
				}
				e.RecurrenceFrequency = &s
			}
		case "recurrence_interval":
			n, err := snapInt(field, value)
			if err != nil {
				return err
			}
			if n == nil {
				e.RecurrenceInterval = 1
			} else {
				e.RecurrenceInterval = *n
			}
		case "recurrence_days":
			e.RecurrenceDays = nil
			if value != nil {
				items, ok := value.([]interface{})
				if !ok {
					return fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
				}
				days := make(StringArray, 0, len(items))
				for _, item := range items {
					s, ok := item.(string)
					if !ok {
						return fmt.Errorf("快照字段 %s 元素类型无效: %T", field, item)
					}
					days = append(days, s)
				}
				e.RecurrenceDays = days
			}
		case "recurrence_end_type":
			e.RecurrenceEndType = nil
			if value != nil {
				s, err := snapString(field, value)
				if err != nil {
					return err
				}
				e.RecurrenceEndType = &s
			}
		case "recurrence_end_count":
			n, err := snapInt(field, value)
			if err != nil {
				return err
			}
			e.RecurrenceEndCount = n
		case "recurrence_end_date":
			e.RecurrenceEndDate = nil
			if value != nil {
				t, err := snapTime(field, value)
				if err != nil {
					return err
				}
				e.RecurrenceEndDate = t
			}
		case "recurrence_exceptions":
			e.RecurrenceExceptions = nil
			if value != nil {
				items, ok := value.([]interface{})
				if !ok {
					return fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
				}
				exs := make(TimeArray, 0, len(items))
				for _, item := range items {
					t, err := snapTime(field, item)
					if err != nil {
						return err
					}
					exs = append(exs, *t)
				}
				e.RecurrenceExceptions = exs
			}
		default:
			return fmt.Errorf("快照包含未知字段: %s", field)
		}
	}
	return nil
}

func snapString(field string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
	}
	return s, nil
}

func snapTime(field string, value interface{}) (*time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("快照字段 %s 时间格式无效: %w", field, err)
	}
	utc := t.UTC()
	return &utc, nil
}

func snapInt(field string, value interface{}) (*int, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case float64:
		n := int(v)
		return &n, nil
	case int:
		return &v, nil
	default:
		return nil, fmt.Errorf("快照字段 %s 类型无效: %T", field, value)
	}
}

// [自证通过] internal/model/event.go
