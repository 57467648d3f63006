package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

// ApplyUpdate 是所有上层都复用的更新原语：校验、取快照、
// 构造出站表示、恰好发出一次上游写入，然后把上游回显合并回出站内容。
// snapshot 传 nil 时自行拉取当前状态。
func (u *Updater) ApplyUpdate(ctx context.Context, item *domain.UpdateItem, snapshot *domain.Shift) (*domain.ShiftView, error) {
	if err := ValidateUpdateItem(item); err != nil {
		return nil, err
	}

	if snapshot == nil {
		fetched, err := u.roster.GetShiftByID(ctx, item.OccurrenceID)
		if err != nil {
			return nil, err
		}
		snapshot = fetched
	}

	// 对循环班次写入裸系列 ID 会悄悄移动之后的所有班次，必须拒绝
	if !strings.Contains(item.OccurrenceID, ":") && snapshot.HasRecurrence() {
		return nil, domain.NewStructuralError("RECURRING_REQUIRES_OCCURRENCE_ID",
			fmt.Sprintf("shift %s is recurring, updates must target a seriesId:date occurrence id", item.OccurrenceID),
			nil)
	}

	return u.applyChangeSet(ctx, item.OccurrenceID, item, snapshot)
}

// applyChangeSet 对指定目标标识执行写入，目标可以与 item 中的标识不同
// （第三层回退会把同一份修改写到根标识上）
func (u *Updater) applyChangeSet(ctx context.Context, targetID string, item *domain.UpdateItem, snapshot *domain.Shift) (*domain.ShiftView, error) {
	// 日期以快照的当前开始时间为锚点，ID 后缀只在快照缺少日期时兜底
	date := utils.ExtractDateFromDateTime(snapshot.DTStart)
	if date == "" {
		date = occurrenceDate(targetID)
	}
	if item.HasTime() && !utils.IsValidISODate(date) {
		return nil, domain.NewStructuralError("SHIFT_DATE_UNAVAILABLE",
			fmt.Sprintf("shift %s has no usable calendar date to anchor the new times", targetID),
			nil)
	}

	// 偏移量必须原样复用快照上的值，跨夏令时改写才不会漂移
	offset := utils.ResolveOffset(snapshot.DTStart, snapshot.DTEnd)

	outbound := snapshot.Clone()
	outbound.ID = targetID
	outbound.OpenEnd = true
	if item.HasTime() {
		outbound.DTStart = utils.BuildDateTime(date, item.StartTime, offset)
		outbound.DTEnd = utils.BuildDateTime(date, item.EndTime, offset)
	}
	if item.Status != "" {
		outbound.Status = domain.ShiftStatus(item.Status)
	}

	echo, err := u.roster.UpdateShift(ctx, targetID, outbound)
	if err != nil {
		return nil, err
	}

	// 上游可能只回显部分字段，把回显覆盖在出站内容之上得到最终状态
	if len(echo) > 0 {
		if err := json.Unmarshal(echo, outbound); err != nil {
			u.logger.Warn("上游回显无法解析，使用出站内容作为最终状态",
				slog.String("occurrenceId", targetID),
				slog.String("error", err.Error()),
			)
		}
	}

	return u.View(outbound), nil
}

// restoreSnapshot 发出一次补偿写入，把班次还原到快照状态
func (u *Updater) restoreSnapshot(ctx context.Context, targetID string, snapshot *domain.Shift) error {
	outbound := snapshot.Clone()
	outbound.ID = targetID
	outbound.OpenEnd = true
	_, err := u.roster.UpdateShift(ctx, targetID, outbound)
	return err
}

// occurrenceDate 取出单次 ID 的日期后缀，没有合法后缀时返回空
func occurrenceDate(id string) string {
	idx := strings.Index(id, ":")
	if idx < 0 {
		return ""
	}
	suffix := id[idx+1:]
	if !utils.IsValidISODate(suffix) {
		return ""
	}
	return suffix
}

// rootID 去掉单次 ID 的日期后缀，得到系列根标识
func rootID(id string) string {
	idx := strings.Index(id, ":")
	if idx < 0 {
		return id
	}
	return id[:idx]
}
