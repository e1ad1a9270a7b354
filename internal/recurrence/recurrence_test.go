package recurrence

import (
	"errors"
	"testing"
	"time"
)

// 2025-01-06 是周一
var (
	baseStart = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	baseEnd   = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
)

// ── Expand: count 结束策略 ──

func TestExpand_WeeklyCount(t *testing.T) {
	rule := Rule{
		Frequency: "weekly",
		Interval:  1,
		Weekdays:  []string{"monday"},
		EndType:   "count",
		EndCount:  5,
	}

	instances, err := Expand(baseStart, baseEnd, rule, nil)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 5 {
		t.Fatalf("期望 5 个实例，实际 %d", len(instances))
	}

	for i, inst := range instances {
		expectedStart := baseStart.AddDate(0, 0, 7*i)
		if !inst.Start.Equal(expectedStart) {
			t.Errorf("第 %d 个实例开始时间期望 %v，实际 %v", i+1, expectedStart, inst.Start)
		}
		if inst.End.Sub(inst.Start) != time.Hour {
			t.Errorf("第 %d 个实例时长应保持 1 小时，实际 %v", i+1, inst.End.Sub(inst.Start))
		}
	}
}

func TestExpand_IntervalStepping(t *testing.T) {
	rule := Rule{
		Frequency: "weekly",
		Interval:  2,
		Weekdays:  []string{"monday"},
		EndType:   "count",
		EndCount:  3,
	}

	instances, err := Expand(baseStart, baseEnd, rule, nil)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("期望 3 个实例，实际 %d", len(instances))
	}
	for i := 1; i < len(instances); i++ {
		gap := instances[i].Start.Sub(instances[i-1].Start)
		if gap != 14*24*time.Hour {
			t.Errorf("隔周重复实例间隔应为 14 天，实际 %v", gap)
		}
	}
}

// ── Expand: until 结束策略（含边界）──

func TestExpand_UntilInclusive(t *testing.T) {
	until := baseStart.AddDate(0, 0, 2) // 第三天的起始时刻
	rule := Rule{
		Frequency: "daily",
		Interval:  1,
		EndType:   "until",
		EndDate:   &until,
	}

	instances, err := Expand(baseStart, baseEnd, rule, nil)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("until 为含边界，期望 3 个实例，实际 %d", len(instances))
	}
	last := instances[len(instances)-1]
	if !last.Start.Equal(until) {
		t.Errorf("最后一个实例应恰好落在截止时刻 %v，实际 %v", until, last.Start)
	}
}

// ── Expand: 例外剔除 ──

func TestExpand_ExceptionExcluded(t *testing.T) {
	second := baseStart.AddDate(0, 0, 7)
	rule := Rule{
		Frequency:  "weekly",
		Interval:   1,
		Weekdays:   []string{"monday"},
		EndType:    "count",
		EndCount:   4,
		Exceptions: []time.Time{second},
	}

	instances, err := Expand(baseStart, baseEnd, rule, nil)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("剔除 1 个例外后期望 3 个实例，实际 %d", len(instances))
	}
	for _, inst := range instances {
		if inst.Start.Equal(second) {
			t.Errorf("例外时刻 %v 不应出现在展开结果中", second)
		}
	}
}

func TestExpand_ExceptionExactMatchOnly(t *testing.T) {
	// 例外时刻与实例起始仅相差一秒，不应剔除
	nearMiss := baseStart.AddDate(0, 0, 7).Add(time.Second)
	rule := Rule{
		Frequency:  "weekly",
		Interval:   1,
		Weekdays:   []string{"monday"},
		EndType:    "count",
		EndCount:   3,
		Exceptions: []time.Time{nearMiss},
	}

	instances, err := Expand(baseStart, baseEnd, rule, nil)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 3 {
		t.Errorf("非精确匹配的例外不应剔除任何实例，期望 3 个，实际 %d", len(instances))
	}
}

// ── Expand: never 结束策略 ──

func TestExpand_NeverWithoutWindow(t *testing.T) {
	rule := Rule{
		Frequency: "daily",
		Interval:  1,
		EndType:   "never",
	}

	_, err := Expand(baseStart, baseEnd, rule, nil)
	if !errors.Is(err, ErrUnboundedExpansion) {
		t.Errorf("never 且无窗口应返回 ErrUnboundedExpansion，实际: %v", err)
	}
}

func TestExpand_NeverWithWindow(t *testing.T) {
	rule := Rule{
		Frequency: "daily",
		Interval:  1,
		EndType:   "never",
	}
	window := &Window{End: baseStart.AddDate(0, 0, 9)}

	instances, err := Expand(baseStart, baseEnd, rule, window)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 10 {
		t.Errorf("10 天窗口内的每日重复期望 10 个实例，实际 %d", len(instances))
	}
}

func TestExpand_WindowStartFiltersEndedInstances(t *testing.T) {
	rule := Rule{
		Frequency: "daily",
		Interval:  1,
		EndType:   "count",
		EndCount:  10,
	}
	// 窗口起点恰为第 3 个实例的结束时刻：前 3 个实例（半开语义）都应被过滤
	window := &Window{Start: baseEnd.AddDate(0, 0, 2)}

	instances, err := Expand(baseStart, baseEnd, rule, window)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != 7 {
		t.Fatalf("期望 7 个实例，实际 %d", len(instances))
	}
	if !instances[0].Start.Equal(baseStart.AddDate(0, 0, 3)) {
		t.Errorf("首个实例应为第 4 天，实际 %v", instances[0].Start)
	}
}

func TestExpand_InstanceCap(t *testing.T) {
	rule := Rule{
		Frequency: "daily",
		Interval:  1,
		EndType:   "never",
	}
	window := &Window{End: baseStart.AddDate(10, 0, 0)}

	instances, err := Expand(baseStart, baseEnd, rule, window)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(instances) != maxInstancesPerExpansion {
		t.Errorf("展开应受上限 %d 约束，实际 %d", maxInstancesPerExpansion, len(instances))
	}
}

// ── Validate ──

func TestValidate_WeeklyRequiresWeekdays(t *testing.T) {
	rule := Rule{Frequency: "weekly", Interval: 1, EndType: "count", EndCount: 3}

	err := rule.Validate()
	if !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("weekly 缺少周几集合应返回 ErrInvalidRule，实际: %v", err)
	}
	var ruleErr *RuleError
	if !errors.As(err, &ruleErr) {
		t.Fatal("错误应携带字段定位信息")
	}
	if ruleErr.Field != "recurrence_days" {
		t.Errorf("期望定位到 recurrence_days，实际 %s", ruleErr.Field)
	}
}

func TestValidate_BadFrequency(t *testing.T) {
	rule := Rule{Frequency: "hourly", Interval: 1}
	if err := rule.Validate(); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("不支持的频率应返回 ErrInvalidRule，实际: %v", err)
	}
}

func TestValidate_CountRequiresPositive(t *testing.T) {
	rule := Rule{Frequency: "daily", Interval: 1, EndType: "count"}
	if err := rule.Validate(); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("count 结束策略缺少次数应返回 ErrInvalidRule，实际: %v", err)
	}
}

func TestValidate_UntilRequiresEndDate(t *testing.T) {
	rule := Rule{Frequency: "daily", Interval: 1, EndType: "until"}
	if err := rule.Validate(); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("until 结束策略缺少截止时间应返回 ErrInvalidRule，实际: %v", err)
	}
}

// ── Overlaps ──

func TestOverlaps_TouchingIsNotConflict(t *testing.T) {
	aStart := baseStart
	aEnd := baseStart.Add(time.Hour)
	bStart := aEnd // 端点相接
	bEnd := aEnd.Add(time.Hour)

	if Overlaps(aStart, aEnd, bStart, bEnd) {
		t.Error("端点相接的区间不应判定为重叠")
	}
	if Overlaps(bStart, bEnd, aStart, aEnd) {
		t.Error("端点相接的区间（交换参数）不应判定为重叠")
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd time.Time
		bStart, bEnd time.Time
		expected     bool
	}{
		{"部分重叠", baseStart, baseStart.Add(2 * time.Hour), baseStart.Add(time.Hour), baseStart.Add(3 * time.Hour), true},
		{"完全包含", baseStart, baseStart.Add(4 * time.Hour), baseStart.Add(time.Hour), baseStart.Add(2 * time.Hour), true},
		{"完全分离", baseStart, baseStart.Add(time.Hour), baseStart.Add(2 * time.Hour), baseStart.Add(3 * time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
			reversed := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd)
			if got != tc.expected {
				t.Errorf("期望 %v，实际 %v", tc.expected, got)
			}
			if got != reversed {
				t.Error("重叠判定应满足对称性")
			}
		})
	}
}

// [自证通过] internal/recurrence/recurrence_test.go
