package domain

// 批量更新结果的总体状态
const (
	SummaryOK      = "ok"
	SummaryPartial = "partial_success"
	SummaryFailed  = "failed"
)

// 单项与编组结果的状态
const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
)

// 编组回滚的结果
const (
	RollbackNotNeeded     = "not_needed"     // 编组成功，无需回滚
	RollbackCompleted     = "completed"      // 所有补偿写入均成功
	RollbackFailed        = "failed"         // 至少一条补偿写入失败
	RollbackSkipped       = "skipped"        // 失败发生在任何写入之前，状态未被触碰
	RollbackNotApplicable = "not_applicable" // 非原子编组不做回滚
)

// 第三层回退（标识符方案回退）的结果
const (
	FallbackNotAttempted   = "not_attempted"   // 失败类型不可重试或无法推导日期
	FallbackLookupFailed   = "lookup_failed"   // 日历查询本身失败
	FallbackNoMatch        = "no_match"        // 日历中找不到对应员工的班次
	FallbackBlocked        = "blocked"         // 根标识符同样被上游拒绝
	FallbackSucceeded      = "succeeded"       // 回退路径写入成功
	FallbackRolledBack     = "rolled_back"     // 回退部分成功后已补偿还原
	FallbackRollbackFailed = "rollback_failed" // 回退自身的补偿失败，保留原错误
)

// UpdateItem 是一条期望的班次修改：时间对（要么都有要么都无）和/或状态
type UpdateItem struct {
	OccurrenceID string `json:"occurrenceId"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	Status       string `json:"status,omitempty"`
}

// HasTime 判断该修改是否涉及时间字段
func (i *UpdateItem) HasTime() bool {
	return i.StartTime != "" || i.EndTime != ""
}

// Group 是一个必须整体成功或整体还原的更新编组（通常是主置 + 助理两条班次）
type Group struct {
	GroupID string       `json:"groupId"`
	Atomic  *bool        `json:"atomic,omitempty"`
	Updates []UpdateItem `json:"updates"`
}

// IsAtomic 返回编组是否要求原子性，默认为 true
func (g *Group) IsAtomic() bool {
	return g.Atomic == nil || *g.Atomic
}

type ResultCounts struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ItemError 是在上游错误第一次被观测到时构造的错误描述，
// 之后各层只透传，不再重新解释
type ItemError struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Details   any        `json:"details,omitempty"`
	Conflicts []Conflict `json:"conflicts"`
}

// Conflict 是上游返回的班次冲突的规范化表示
type Conflict struct {
	Type           string         `json:"type"`
	EmployeeID     int64          `json:"employeeId,omitempty"`
	ShiftID        string         `json:"shiftId,omitempty"`
	ConflictWindow ConflictWindow `json:"conflictWindow"`
	Raw            any            `json:"raw,omitempty"`
}

type ConflictWindow struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ItemResult 是一条更新的结果，Index 保留请求中的原始下标
type ItemResult struct {
	Index        int        `json:"index"`
	OccurrenceID string     `json:"occurrenceId"`
	Status       string     `json:"status"`
	Data         *ShiftView `json:"data,omitempty"`
	Error        *ItemError `json:"error,omitempty"`
}

// RollbackReport 描述编组补偿的结果。Failures 中是无法确认已还原的班次标识。
type RollbackReport struct {
	Status   string   `json:"status"`
	Failures []string `json:"failures,omitempty"`
}

// GroupResult 是一个编组的最终结果。
// Status 与 RolledBack 是两个独立的信号：Status 告知编组是否达成目标，
// RolledBack 告知调用方编组的可见状态是否可以信任（等于请求前的快照）。
type GroupResult struct {
	Index      int             `json:"index"`
	GroupID    string          `json:"groupId"`
	Atomic     bool            `json:"atomic"`
	Status     string          `json:"status"`
	RolledBack bool            `json:"rolledBack"`
	Fallback   string          `json:"fallback,omitempty"`
	Counts     ResultCounts    `json:"counts"`
	Failure    *ItemError      `json:"failure,omitempty"`
	Rollback   *RollbackReport `json:"rollback,omitempty"`
	Results    []ItemResult    `json:"results"`
}

// GroupedResult 是编组模式下的顶层响应
type GroupedResult struct {
	RequestID string        `json:"requestId,omitempty"`
	Summary   string        `json:"summary"`
	Mode      string        `json:"mode"`
	Timezone  string        `json:"timezone,omitempty"`
	Counts    ResultCounts  `json:"counts"`
	Results   []GroupResult `json:"results"`
}

// FlatResult 是平铺模式下的顶层响应
type FlatResult struct {
	RequestID string       `json:"requestId,omitempty"`
	Summary   string       `json:"summary"`
	Mode      string       `json:"mode"`
	Timezone  string       `json:"timezone,omitempty"`
	Counts    ResultCounts `json:"counts"`
	Results   []ItemResult `json:"results"`
}
