package registry

import (
	"context"
)

// Assignment 是注册表中一条小组指派：小组名、主置员工在排班系统中的 ID、
// 助理员工在注册表内部的 ID（还需要再查一次才能换成排班系统 ID）
type Assignment struct {
	Team           string
	MainRosterID   int64
	AssistWorkerID string
}

// Client 是小组指派注册表的只读抽象
type Client interface {
	GetTeamAssignmentsByDate(ctx context.Context, dateISO string) ([]Assignment, error)
	GetWorkerRosterIDs(ctx context.Context, workerIDs []string) (map[string]int64, error)
}
