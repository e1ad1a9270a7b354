// Package recurrence 提供重复事件实例展开的纯函数实现。
// 展开结果只依赖输入（规则 + 基础区间 + 窗口），可重复调用、天然并发安全。
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRule 重复规则非法（缺少周几集合、缺少次数/截止时间等）
var ErrInvalidRule = errors.New("重复规则无效")

// ErrUnboundedExpansion never 结束策略且未提供边界窗口
// 引擎绝不物化无限序列，调用方必须给出窗口
var ErrUnboundedExpansion = errors.New("无界重复规则必须提供展开窗口")

// RuleError 携带字段定位信息的规则校验错误
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("重复规则无效: %s: %s", e.Field, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrInvalidRule) 成立
func (e *RuleError) Unwrap() error { return ErrInvalidRule }

// Rule 重复规则描述
type Rule struct {
	Frequency  string      // daily | weekly | monthly | yearly
	Interval   int         // ≥ 1
	Weekdays   []string    // weekly 时必填，周几英文名
	EndType    string      // "" / never / count / until
	EndCount   int         // EndType=count 时必填，> 0
	EndDate    *time.Time  // EndType=until 时必填，含边界
	Exceptions []time.Time // 按起始时刻精确剔除
}

// Instance 展开出的单个事件实例（派生数据，不落库）
type Instance struct {
	Start time.Time
	End   time.Time
}

// Window 展开边界窗口
// End 非零时：不产出起始时刻晚于 End 的实例
// Start 非零时：过滤掉结束时刻不晚于 Start 的实例（半开区间语义）
type Window struct {
	Start time.Time
	End   time.Time
}

// maxInstancesPerExpansion 单次展开的实例数上限，防止恶意 count 导致内存膨胀
const maxInstancesPerExpansion = 1000

var frequencyMap = map[string]rrule.Frequency{
	"daily":   rrule.DAILY,
	"weekly":  rrule.WEEKLY,
	"monthly": rrule.MONTHLY,
	"yearly":  rrule.YEARLY,
}

var weekdayMap = map[string]rrule.Weekday{
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
	"sunday":    rrule.SU,
}

// Validate 校验规则合法性
func (r *Rule) Validate() error {
	if _, ok := frequencyMap[r.Frequency]; !ok {
		return &RuleError{Field: "recurrence_frequency", Reason: fmt.Sprintf("不支持的频率 %q", r.Frequency)}
	}
	if r.Interval < 1 {
		return &RuleError{Field: "recurrence_interval", Reason: "必须大于等于 1"}
	}
	if r.Frequency == "weekly" {
		if len(r.Weekdays) == 0 {
			return &RuleError{Field: "recurrence_days", Reason: "weekly 频率必须指定周几集合"}
		}
		for _, d := range r.Weekdays {
			if _, ok := weekdayMap[strings.ToLower(d)]; !ok {
				return &RuleError{Field: "recurrence_days", Reason: fmt.Sprintf("无效的周几名称 %q", d)}
			}
		}
	}
	switch r.EndType {
	case "", "never":
	case "count":
		if r.EndCount <= 0 {
			return &RuleError{Field: "recurrence_end_count", Reason: "count 结束策略必须指定正的次数"}
		}
	case "until":
		if r.EndDate == nil {
			return &RuleError{Field: "recurrence_end_date", Reason: "until 结束策略必须指定截止时间"}
		}
	default:
		return &RuleError{Field: "recurrence_end_type", Reason: fmt.Sprintf("不支持的结束策略 %q", r.EndType)}
	}
	return nil
}

// bounded 规则自身是否有限（count / until）
func (r *Rule) bounded() bool {
	return r.EndType == "count" || r.EndType == "until"
}

// Expand 展开重复事件的具体实例序列，按起始时间升序
//
// 语义：
//   - 所有时刻先归一化为 UTC 再参与比较
//   - 每个实例保持 baseEnd - baseStart 的时长
//   - until 为含边界：起始时刻恰等于截止时刻的实例仍会产出
//   - never（或未指定结束策略）必须提供 window.End，否则返回 ErrUnboundedExpansion
//   - 例外时刻按归一化后的起始时刻做集合相等剔除，不做区间重叠判断
func Expand(baseStart, baseEnd time.Time, rule Rule, window *Window) ([]Instance, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start := baseStart.UTC()
	duration := baseEnd.Sub(baseStart)

	if !rule.bounded() && (window == nil || window.End.IsZero()) {
		return nil, ErrUnboundedExpansion
	}

	opt := rrule.ROption{
		Freq:     frequencyMap[rule.Frequency],
		Interval: rule.Interval,
		Dtstart:  start,
	}
	switch rule.EndType {
	case "count":
		opt.Count = rule.EndCount
	case "until":
		opt.Until = rule.EndDate.UTC()
	}
	if rule.Frequency == "weekly" {
		days := make([]rrule.Weekday, 0, len(rule.Weekdays))
		for _, d := range rule.Weekdays {
			days = append(days, weekdayMap[strings.ToLower(d)])
		}
		opt.Byweekday = days
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("构造 rrule 失败: %w", err)
	}

	exceptions := make([]time.Time, len(rule.Exceptions))
	for i, ex := range rule.Exceptions {
		exceptions[i] = ex.UTC()
	}

	// 惰性迭代生成，窗口越界即停，绝不物化无限序列
	instances := make([]Instance, 0)
	it := r.Iterator()
	for {
		occStart, ok := it()
		if !ok {
			break
		}
		occStart = occStart.UTC()
		if window != nil && !window.End.IsZero() && occStart.After(window.End) {
			break
		}
		occEnd := occStart.Add(duration)
		if window != nil && !window.Start.IsZero() && !occEnd.After(window.Start) {
			continue
		}
		if isException(occStart, exceptions) {
			continue
		}
		instances = append(instances, Instance{Start: occStart, End: occEnd})
		if len(instances) >= maxInstancesPerExpansion {
			break
		}
	}

	return instances, nil
}

// Overlaps 半开区间重叠判定: [aStart,aEnd) 与 [bStart,bEnd) 相交
// 端点相接（a 结束 == b 开始）不视为冲突
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func isException(t time.Time, exceptions []time.Time) bool {
	for _, ex := range exceptions {
		if t.Equal(ex) {
			return true
		}
	}
	return false
}

// [自证通过] internal/recurrence/recurrence.go
