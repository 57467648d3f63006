package domain

// TeamMemberView 是排班视图中一名成员（主置或助理）的展示信息
type TeamMemberView struct {
	RosterID int64      `json:"rosterId"`
	Name     string     `json:"name"`
	Shift    *ShiftView `json:"shift"`
}

// TeamView 是一个已配对小组当日的排班视图，时间以主置班次为准
type TeamView struct {
	TeamName  string         `json:"teamName"`
	Status    string         `json:"status"`
	StartTime string         `json:"startTime"`
	EndTime   string         `json:"endTime"`
	Main      TeamMemberView `json:"main"`
	Assist    TeamMemberView `json:"assist"`
}

// UnmatchedView 是当日未能匹配到任何小组的班次
type UnmatchedView struct {
	Name  string     `json:"name"`
	Shift *ShiftView `json:"shift"`
}
