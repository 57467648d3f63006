package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

func teamGroup(groupID string, ids ...string) domain.Group {
	updates := make([]domain.UpdateItem, len(ids))
	for i, id := range ids {
		updates[i] = domain.UpdateItem{OccurrenceID: id, StartTime: "13:00", EndTime: "16:00"}
	}
	return domain.Group{GroupID: groupID, Updates: updates}
}

func TestApplyGroupedAllGroupsSucceed(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A"] = publishedShift("A", 1)
	f.shifts["B"] = publishedShift("B", 2)
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{teamGroup("Team 1", "A", "B")})

	assert.Equal(t, domain.SummaryOK, result.Summary)
	assert.Equal(t, ModeGrouped, result.Mode)
	assert.Equal(t, domain.ResultCounts{Total: 1, Success: 1, Failed: 0}, result.Counts)
	assert.Equal(t, domain.ResultStatusSuccess, result.Results[0].Status)
	assert.Empty(t, result.Results[0].Fallback)
}

func TestApplyGroupedLayer2RecoversTransientFailure(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A"] = publishedShift("A", 1)
	f.shifts["B"] = publishedShift("B", 2)
	// B 第一次写入瞬时失败，第二层原路重试时成功
	f.failOnce["B"] = transientErr("ROSTER_TIMEOUT")
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{teamGroup("Team 1", "A", "B")})

	assert.Equal(t, domain.SummaryOK, result.Summary)
	group := result.Results[0]
	assert.Equal(t, domain.ResultStatusSuccess, group.Status)
	assert.False(t, group.RolledBack)
	assert.Equal(t, domain.RollbackNotNeeded, group.Rollback.Status)
	// 第二层成功后两个成员都停在新时间上
	assert.Equal(t, "2026-08-10T13:00:00-04:00", f.shifts["A"].DTStart)
	assert.Equal(t, "2026-08-10T13:00:00-04:00", f.shifts["B"].DTStart)
}

func TestApplyGroupedConflictSkipsLayer2AndFallbackFindsNoMatch(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A1:2026-08-10"] = publishedShift("A1:2026-08-10", 1001)
	f.shifts["B1:2026-08-10"] = publishedShift("B1:2026-08-10", 1002)
	f.failAlways["B1:2026-08-10"] = conflictErr("ROSTER_REQUEST_FAILED")
	// 日历里只有别的员工，回退匹配不到
	f.calendars["2026-08-10"] = []*domain.Shift{publishedShift("900:2026-08-10", 9009)}
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{
		teamGroup("Team 1", "A1:2026-08-10", "B1:2026-08-10"),
	})

	assert.Equal(t, domain.SummaryFailed, result.Summary)
	group := result.Results[0]
	assert.Equal(t, domain.ResultStatusFailed, group.Status)
	assert.True(t, group.RolledBack)
	assert.Equal(t, domain.FallbackNoMatch, group.Fallback)
	// 首个失败的诊断信息原样保留
	assert.Equal(t, "ROSTER_REQUEST_FAILED", group.Failure.Code)
	require.Len(t, group.Failure.Conflicts, 1)

	// 上游冲突不走第二层原路重试，第一个成员的补偿写入恰好发出一次
	restores := 0
	for _, w := range f.writesTo("A1:2026-08-10") {
		if !w.failed && w.outbound.DTStart == "2026-08-10T09:15:00-04:00" {
			restores++
		}
	}
	assert.Equal(t, 1, restores)
}

func TestApplyGroupedPartialSuccessAcrossGroups(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A1"] = publishedShift("A1", 1)
	f.shifts["A2"] = publishedShift("A2", 2)
	f.shifts["B1:2026-08-10"] = publishedShift("B1:2026-08-10", 3)
	f.shifts["B2:2026-08-10"] = publishedShift("B2:2026-08-10", 4)
	f.failAlways["B1:2026-08-10"] = conflictErr("ROSTER_REQUEST_FAILED")
	f.failAlways["B2:2026-08-10"] = conflictErr("ROSTER_REQUEST_FAILED")
	// 第三层回退的日历查询本身失败，先前的失败原样保留
	f.calendarErr = transientErr("ROSTER_TIMEOUT")
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{
		teamGroup("Team 1", "A1", "A2"),
		teamGroup("Team 2", "B1:2026-08-10", "B2:2026-08-10"),
	})

	assert.Equal(t, domain.SummaryPartial, result.Summary)
	assert.Equal(t, domain.ResultCounts{Total: 2, Success: 1, Failed: 1}, result.Counts)
	assert.Equal(t, domain.ResultStatusSuccess, result.Results[0].Status)
	assert.Equal(t, domain.ResultStatusFailed, result.Results[1].Status)
	assert.Equal(t, domain.FallbackLookupFailed, result.Results[1].Fallback)
}

func TestApplyGroupedLayer2RetriesInOriginalOrder(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A"] = publishedShift("A", 1)
	f.shifts["B"] = publishedShift("B", 2)
	f.shifts["C"] = publishedShift("C", 3)
	f.failOnce["A"] = transientErr("ROSTER_TIMEOUT")
	f.failOnce["C"] = transientErr("ROSTER_TIMEOUT")
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{
		teamGroup("Team 1", "A"),
		teamGroup("Team 2", "B"),
		teamGroup("Team 3", "C"),
	})

	assert.Equal(t, domain.SummaryOK, result.Summary)

	// 第一层写入序列 A、B、C，第二层按升序重试失败的编组：先 A 后 C
	ids := make([]string, 0, len(f.writes))
	for _, w := range f.writes {
		ids = append(ids, w.id)
	}
	assert.Equal(t, []string{"A", "B", "C", "A", "C"}, ids)
}

func TestApplyGroupedFallbackSucceedsViaRootIdentifier(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A:2026-08-10"] = publishedShift("A:2026-08-10", 1001)
	f.shifts["B:2026-08-10"] = publishedShift("B:2026-08-10", 1002)
	// 上游拒绝所有针对单次标识的写入，根标识可以写
	f.failAlways["A:2026-08-10"] = conflictErr("ROSTER_REQUEST_FAILED")
	f.failAlways["B:2026-08-10"] = conflictErr("ROSTER_REQUEST_FAILED")
	f.calendars["2026-08-10"] = []*domain.Shift{
		publishedShift("100:2026-08-10", 1001),
		publishedShift("200:2026-08-10", 1002),
	}
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{
		teamGroup("Team 1", "A:2026-08-10", "B:2026-08-10"),
	})

	assert.Equal(t, domain.SummaryOK, result.Summary)
	group := result.Results[0]
	assert.Equal(t, domain.ResultStatusSuccess, group.Status)
	assert.Equal(t, domain.FallbackSucceeded, group.Fallback)
	// 写入落在剥掉日期后缀的根标识上
	assert.Equal(t, "2026-08-10T13:00:00-04:00", f.shifts["100"].DTStart)
	assert.Equal(t, "2026-08-10T13:00:00-04:00", f.shifts["200"].DTStart)
}

func TestApplyGroupedFallbackPartialFailureRollsBackAndKeepsPrior(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A:2026-08-10"] = publishedShift("A:2026-08-10", 1001)
	f.shifts["B:2026-08-10"] = publishedShift("B:2026-08-10", 1002)
	f.failAlways["A:2026-08-10"] = conflictErr("OCCURRENCE_REJECTED")
	f.failAlways["B:2026-08-10"] = conflictErr("OCCURRENCE_REJECTED")
	// 回退写入：第一个根标识成功，第二个被拒绝，需要补偿第一个
	f.failAlways["200"] = conflictErr("ROOT_REJECTED")
	f.calendars["2026-08-10"] = []*domain.Shift{
		publishedShift("100:2026-08-10", 1001),
		publishedShift("200:2026-08-10", 1002),
	}
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{
		teamGroup("Team 1", "A:2026-08-10", "B:2026-08-10"),
	})

	assert.Equal(t, domain.SummaryFailed, result.Summary)
	group := result.Results[0]
	assert.Equal(t, domain.ResultStatusFailed, group.Status)
	assert.Equal(t, domain.FallbackRolledBack, group.Fallback)
	// 原始失败保留，不被回退自身的失败覆盖
	assert.Equal(t, "OCCURRENCE_REJECTED", group.Failure.Code)
	// 回退的部分成功已被补偿还原
	assert.Equal(t, "2026-08-10T09:15:00-04:00", f.shifts["100"].DTStart)
}

func TestApplyGroupedStructuralFailureNeverEscalates(t *testing.T) {
	f := newFakeRoster()
	f.shifts["A"] = publishedShift("A", 1)
	f.shifts["B"] = publishedShift("B", 2)
	f.failAlways["B"] = &domain.UpdateError{
		Kind:       domain.ErrKindStructural,
		Code:       "ROSTER_BAD_RESPONSE",
		StatusCode: 502,
		Message:    "simulated structural failure",
	}
	u := newTestUpdater(f)

	result := u.ApplyGrouped(context.Background(), []domain.Group{teamGroup("Team 1", "A", "B")})

	group := result.Results[0]
	assert.Equal(t, domain.ResultStatusFailed, group.Status)
	assert.Empty(t, group.Fallback)
	// 结构性失败不进入任何后续层次：A 应用一次、补偿一次，共两笔写入
	assert.Len(t, f.writesTo("A"), 2)
	assert.Len(t, f.writesTo("B"), 1)
}
