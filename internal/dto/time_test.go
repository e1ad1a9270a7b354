package dto

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAPITime_ParsesRFC3339WithOffset(t *testing.T) {
	var parsed APITime
	if err := json.Unmarshal([]byte(`"2025-03-03T17:00:00+08:00"`), &parsed); err != nil {
		t.Fatalf("解析应成功: %v", err)
	}

	expected := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("带时区时间应归一化为 UTC %v，实际 %v", expected, parsed.Time)
	}
}

func TestAPITime_NaiveTreatedAsUTC(t *testing.T) {
	var parsed APITime
	if err := json.Unmarshal([]byte(`"2025-03-03T09:00:00"`), &parsed); err != nil {
		t.Fatalf("解析应成功: %v", err)
	}

	expected := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Errorf("无时区时间应按 UTC 解释 %v，实际 %v", expected, parsed.Time)
	}
}

func TestAPITime_RejectsGarbage(t *testing.T) {
	var parsed APITime
	if err := json.Unmarshal([]byte(`"昨天下午"`), &parsed); err == nil {
		t.Error("无法解析的时间文本应报错")
	}
}

func TestAPITime_MarshalsAsUTC(t *testing.T) {
	v := APITime{Time: time.Date(2025, 3, 3, 17, 0, 0, 0, time.FixedZone("CST", 8*3600))}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("序列化应成功: %v", err)
	}
	if string(out) != `"2025-03-03T09:00:00Z"` {
		t.Errorf("输出应为 UTC RFC3339，实际 %s", out)
	}
}

// [自证通过] internal/dto/time_test.go
