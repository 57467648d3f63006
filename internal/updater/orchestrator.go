package updater

import (
	"context"
	"log/slog"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// groupAttempt 在编排器内部随结果一起携带首个失败的分类标签，
// 线格式中的 ItemError 不含 Kind，层间判断是否重试需要原始错误
type groupAttempt struct {
	result  *domain.GroupResult
	failure *domain.UpdateError
}

// ApplyGrouped 对整个编组列表依次执行三层策略：
// 第一层直接应用，第二层原路重试，第三层换用根标识回退。
// 每一层都对全部编组执行完毕后才进入下一层。
func (u *Updater) ApplyGrouped(ctx context.Context, groups []domain.Group) *domain.GroupedResult {
	attempts := u.layer1(ctx, groups)
	attempts = u.layer2(ctx, groups, attempts)
	attempts = u.layer3(ctx, groups, attempts)

	results := make([]domain.GroupResult, len(attempts))
	success := 0
	for i, a := range attempts {
		results[i] = *a.result
		if a.result.Status == domain.ResultStatusSuccess {
			success++
		}
	}

	return &domain.GroupedResult{
		Summary: summaryOf(len(groups), success),
		Mode:    ModeGrouped,
		Counts: domain.ResultCounts{
			Total:   len(groups),
			Success: success,
			Failed:  len(groups) - success,
		},
		Results: results,
	}
}

// layer1 按输入顺序对每个编组做一次直接应用
func (u *Updater) layer1(ctx context.Context, groups []domain.Group) []groupAttempt {
	attempts := make([]groupAttempt, len(groups))
	for i := range groups {
		result, failure := u.ApplyGroup(ctx, i, &groups[i])
		attempts[i] = groupAttempt{result: result, failure: failure}
	}
	return attempts
}

// retriable 判断一次编组失败是否值得进入第三层回退。
// 输入错误与结构性错误重试无意义，只有瞬时错误与上游冲突才会升级。
func retriable(a groupAttempt) bool {
	return a.failure != nil && a.failure.Retriable()
}

// transientOnly 限定第二层只处理真正的瞬时失败。
// 上游冲突原路重试大概率得到同样的拒绝，徒增写入量，留给第三层换路处理。
func transientOnly(a groupAttempt) bool {
	return a.failure != nil && a.failure.Kind == domain.ErrKindTransient
}

// layer2 按原始顺序重试第一层瞬时失败的原子编组。
// 只有重试成功才替换结果，再次失败保留第一层的结果与回滚记录。
func (u *Updater) layer2(ctx context.Context, groups []domain.Group, prior []groupAttempt) []groupAttempt {
	attempts := make([]groupAttempt, len(prior))
	copy(attempts, prior)

	for i := range groups {
		if !groups[i].IsAtomic() || attempts[i].result.Status != domain.ResultStatusFailed || !transientOnly(attempts[i]) {
			continue
		}
		u.logger.Info("编组进入第二层原路重试",
			slog.String("groupId", groups[i].GroupID),
			slog.String("failureCode", attempts[i].failure.Code),
		)
		result, failure := u.ApplyGroup(ctx, i, &groups[i])
		if result.Status == domain.ResultStatusSuccess {
			attempts[i] = groupAttempt{result: result, failure: failure}
		}
	}
	return attempts
}

// layer3 对仍然失败的编组尝试标识符方案回退。
// 无论回退结果如何，都在结果上标注回退的具体去向，
// 调用方由此能区分"回退被拒绝"与"回退根本没够到"。
func (u *Updater) layer3(ctx context.Context, groups []domain.Group, prior []groupAttempt) []groupAttempt {
	attempts := make([]groupAttempt, len(prior))
	copy(attempts, prior)

	for i := range groups {
		if !groups[i].IsAtomic() || attempts[i].result.Status != domain.ResultStatusFailed || !retriable(attempts[i]) {
			continue
		}
		attempts[i] = u.fallbackGroup(ctx, i, &groups[i], attempts[i])
	}
	return attempts
}

// fallbackGroup 执行第三层回退：按日期重新拉取当天日历，
// 用员工匹配找回每个成员的班次，剥掉日期后缀得到根标识，
// 把同一份修改重新写到根标识上。回退失败时保留先前的失败诊断。
func (u *Updater) fallbackGroup(ctx context.Context, index int, group *domain.Group, prior groupAttempt) groupAttempt {
	logger := u.logger.With(slog.String("groupId", group.GroupID))

	date := groupDate(group)
	if date == "" {
		return u.keepPrior(prior, domain.FallbackNotAttempted)
	}

	calendar, err := u.roster.GetCalendarShifts(ctx, date)
	if err != nil {
		logger.Warn("第三层回退的日历查询失败，保留先前的失败",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return u.keepPrior(prior, domain.FallbackLookupFailed)
	}

	// 为每个成员找回根标识：先取成员当前快照确定员工，
	// 再在日历里按员工匹配对应的班次
	targets := make([]string, len(group.Updates))
	snapshots := make([]*domain.Shift, len(group.Updates))
	for i := range group.Updates {
		item := &group.Updates[i]
		current, err := u.roster.GetShiftByID(ctx, item.OccurrenceID)
		if err != nil {
			logger.Warn("第三层回退取成员快照失败，保留先前的失败",
				slog.String("occurrenceId", item.OccurrenceID),
				slog.String("error", err.Error()),
			)
			return u.keepPrior(prior, domain.FallbackLookupFailed)
		}

		match := matchByWorker(calendar, current.UserID())
		if match == nil {
			logger.Info("第三层回退在日历中找不到对应员工的班次",
				slog.String("occurrenceId", item.OccurrenceID),
				slog.Int64("userId", current.UserID()),
			)
			return u.keepPrior(prior, domain.FallbackNoMatch)
		}

		targets[i] = rootID(match.ID)
		snapshots[i] = match.Clone()
	}

	// 回退自身也是一个 saga：按顺序写入，部分成功后失败则反向补偿
	result := &domain.GroupResult{
		Index:   index,
		GroupID: group.GroupID,
		Atomic:  true,
		Counts:  domain.ResultCounts{Total: len(group.Updates)},
		Results: []domain.ItemResult{},
	}

	var failure *domain.UpdateError
	applied := 0
	for i := range group.Updates {
		item := &group.Updates[i]
		view, err := u.applyChangeSet(ctx, targets[i], item, snapshots[i])
		if err != nil {
			failure = domain.AsUpdateError(err)
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

	if failure == nil {
		result.Status = domain.ResultStatusSuccess
		result.Counts.Success = applied
		result.Fallback = domain.FallbackSucceeded
		result.Rollback = &domain.RollbackReport{Status: domain.RollbackNotNeeded}
		logger.Info("第三层回退成功", slog.String("date", date))
		return groupAttempt{result: result}
	}

	if applied == 0 {
		// 根标识同样被上游拒绝，先前的失败仍然是最有诊断价值的
		return u.keepPrior(prior, domain.FallbackBlocked)
	}

	fallbackItems := make([]domain.UpdateItem, len(targets))
	for i, t := range targets {
		fallbackItems[i] = domain.UpdateItem{OccurrenceID: t}
	}
	report := u.rollback(ctx, fallbackItems, snapshots, applied)
	if report.Status == domain.RollbackCompleted {
		return u.keepPrior(prior, domain.FallbackRolledBack)
	}

	// 回退自身的补偿失败：保留原始失败，但必须把不可信状态的信号透出去
	logger.Error("第三层回退的补偿未能完全还原",
		slog.Any("unrestored", report.Failures),
	)
	next := u.keepPrior(prior, domain.FallbackRollbackFailed)
	next.result.RolledBack = false
	next.result.Rollback = report
	return next
}

// keepPrior 复制先前的结果并标注回退去向，先前的失败详情原样保留
func (u *Updater) keepPrior(prior groupAttempt, fallback string) groupAttempt {
	result := *prior.result
	result.Fallback = fallback
	return groupAttempt{result: &result, failure: prior.failure}
}

// groupDate 从编组任一成员的单次 ID 推导编组所在的日期
func groupDate(group *domain.Group) string {
	for i := range group.Updates {
		if d := occurrenceDate(group.Updates[i].OccurrenceID); d != "" {
			return d
		}
	}
	return ""
}

// matchByWorker 在日历列表里找出属于指定员工的班次
func matchByWorker(calendar []*domain.Shift, userID int64) *domain.Shift {
	if userID == 0 {
		return nil
	}
	for _, s := range calendar {
		if s.UserID() == userID {
			return s
		}
	}
	return nil
}
