package domain

import "encoding/json"

type ShiftStatus string

const (
	ShiftStatusPublished ShiftStatus = "published"
	ShiftStatusPlanning  ShiftStatus = "planning"
)

// AllowedShiftStatuses 是允许写入的班次状态
var AllowedShiftStatuses = []ShiftStatus{ShiftStatusPublished, ShiftStatusPlanning}

// Shift 是上游排班系统中的一条班次记录，字段与上游的线格式保持一致。
// ID 可能是裸系列 ID，也可能是 seriesID:date 形式的单次 ID。
type Shift struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Status   ShiftStatus     `json:"status,omitempty"`
	DTStart  string          `json:"dtstart,omitempty"`
	DTEnd    string          `json:"dtend,omitempty"`
	OpenEnd  bool            `json:"openEnd,omitempty"`
	User     *ShiftUser      `json:"user,omitempty"`
	Location *ShiftRef       `json:"location,omitempty"`
	Position *ShiftRef       `json:"position,omitempty"`
	RRule    json.RawMessage `json:"rrule,omitempty"` // 原样透传，存在即表示这是一个循环班次
}

type ShiftUser struct {
	ID int64 `json:"id"`
}

type ShiftRef struct {
	ID int64 `json:"id"`
}

// HasRecurrence 判断该班次是否带循环规则
func (s *Shift) HasRecurrence() bool {
	return len(s.RRule) > 0 && string(s.RRule) != "null"
}

// UserID 返回班次所属员工的上游 ID，没有时返回 0
func (s *Shift) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

// Clone 深拷贝一个班次，用于快照，防止后续写入修改快照内容
func (s *Shift) Clone() *Shift {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Location != nil {
		l := *s.Location
		out.Location = &l
	}
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	if s.RRule != nil {
		out.RRule = append(json.RawMessage(nil), s.RRule...)
	}
	return &out
}

// ShiftView 是面向 UI 的班次表示
type ShiftView struct {
	ID            string `json:"id"`
	UserID        int64  `json:"userId,omitempty"`
	Status        string `json:"status"`
	DTStart       string `json:"dtstart"`
	DTEnd         string `json:"dtend"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	StartLabel    string `json:"startLabel"`
	EndLabel      string `json:"endLabel"`
	Date          string `json:"date"`
	LocationID    int64  `json:"locationId,omitempty"`
	PositionID    int64  `json:"positionId,omitempty"`
	HasRecurrence bool   `json:"hasRecurrence"`
}

// User 是上游排班系统中的员工
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
