package updater

import (
	"context"
	"log/slog"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// ApplyGroup 以 saga 方式处理一个原子编组：先为每个成员取快照，
// 按顺序写入，任何一步失败就按相反顺序发出补偿写入还原快照。
// 第二个返回值是首个失败（成功时为 nil），供上层判断是否值得重试。
func (u *Updater) ApplyGroup(ctx context.Context, index int, group *domain.Group) (*domain.GroupResult, *domain.UpdateError) {
	result := &domain.GroupResult{
		Index:   index,
		GroupID: group.GroupID,
		Atomic:  group.IsAtomic(),
		Counts:  domain.ResultCounts{Total: len(group.Updates)},
		Results: []domain.ItemResult{},
	}

	// 非原子编组是显式的逃生通道：直接平铺处理，不做快照与回滚
	if !group.IsAtomic() {
		flat := u.ApplyFlat(ctx, group.Updates)
		result.Counts = flat.Counts
		result.Results = flat.Results
		result.Rollback = &domain.RollbackReport{Status: domain.RollbackNotApplicable}
		if flat.Counts.Failed == 0 {
			result.Status = domain.ResultStatusSuccess
		} else {
			result.Status = domain.ResultStatusFailed
			for i := range flat.Results {
				if flat.Results[i].Error != nil {
					result.Failure = flat.Results[i].Error
					break
				}
			}
		}
		return result, nil
	}

	// 快照阶段：校验并缓存每个成员的当前状态。
	// 这里的任何失败都发生在第一笔写入之前，状态未被触碰。
	snapshots := make([]*domain.Shift, len(group.Updates))
	for i := range group.Updates {
		item := &group.Updates[i]
		if err := ValidateUpdateItem(item); err != nil {
			return u.abortBeforeWrite(result, i, item, err), err
		}
		snap, err := u.roster.GetShiftByID(ctx, item.OccurrenceID)
		if err != nil {
			ue := domain.AsUpdateError(err)
			return u.abortBeforeWrite(result, i, item, ue), ue
		}
		snapshots[i] = snap
	}

	// 写入阶段：严格按编组顺序应用，使用缓存的快照避免二次拉取
	var failure *domain.UpdateError
	applied := 0
	for i := range group.Updates {
		item := &group.Updates[i]
		view, err := u.ApplyUpdate(ctx, item, snapshots[i])
		if err != nil {
			failure = domain.AsUpdateError(err)
			result.Results = append(result.Results, domain.ItemResult{
				Index:        i,
				OccurrenceID: item.OccurrenceID,
				Status:       domain.ResultStatusFailed,
				Error:        failure.Item(),
			})
			break
		}
		result.Results = append(result.Results, domain.ItemResult{
			Index:        i,
			OccurrenceID: item.OccurrenceID,
			Status:       domain.ResultStatusSuccess,
			Data:         view,
		})
		applied++
	}

	result.Counts.Success = applied
	result.Counts.Failed = len(group.Updates) - applied

	if failure == nil {
		result.Status = domain.ResultStatusSuccess
		result.Rollback = &domain.RollbackReport{Status: domain.RollbackNotNeeded}
		return result, nil
	}

	result.Status = domain.ResultStatusFailed
	result.Failure = failure.Item()

	if applied == 0 {
		result.Rollback = &domain.RollbackReport{Status: domain.RollbackSkipped}
		result.RolledBack = true
		return result, failure
	}

	// 补偿阶段：对已成功的成员按相反顺序还原快照
	report := u.rollback(ctx, group.Updates, snapshots, applied)
	result.Rollback = report
	result.RolledBack = report.Status == domain.RollbackCompleted
	if !result.RolledBack {
		u.logger.Error("编组补偿未能完全还原，上游处于未知的部分状态",
			slog.String("groupId", group.GroupID),
			slog.Any("unrestored", report.Failures),
		)
	}
	return result, failure
}

// abortBeforeWrite 组装快照阶段失败的结果：回滚标记为 skipped，
// 因为失败发生在任何写入之前，调用方可以放心重试
func (u *Updater) abortBeforeWrite(result *domain.GroupResult, itemIndex int, item *domain.UpdateItem, err *domain.UpdateError) *domain.GroupResult {
	result.Status = domain.ResultStatusFailed
	result.Failure = err.Item()
	result.Counts.Failed = result.Counts.Total
	result.Results = append(result.Results, domain.ItemResult{
		Index:        itemIndex,
		OccurrenceID: item.OccurrenceID,
		Status:       domain.ResultStatusFailed,
		Error:        err.Item(),
	})
	result.Rollback = &domain.RollbackReport{Status: domain.RollbackSkipped}
	result.RolledBack = true
	return result
}

// rollback 对前 applied 个成员按相反顺序发出补偿写入
func (u *Updater) rollback(ctx context.Context, items []domain.UpdateItem, snapshots []*domain.Shift, applied int) *domain.RollbackReport {
	failures := make([]string, 0)
	for i := applied - 1; i >= 0; i-- {
		if err := u.restoreSnapshot(ctx, items[i].OccurrenceID, snapshots[i]); err != nil {
			failures = append(failures, items[i].OccurrenceID)
			u.logger.Error("补偿写入失败",
				slog.String("occurrenceId", items[i].OccurrenceID),
				slog.String("error", err.Error()),
			)
		}
	}
	if len(failures) > 0 {
		return &domain.RollbackReport{Status: domain.RollbackFailed, Failures: failures}
	}
	return &domain.RollbackReport{Status: domain.RollbackCompleted}
}
