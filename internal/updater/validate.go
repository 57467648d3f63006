package updater

import (
	"fmt"
	"strings"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

// ValidateOccurrenceID 校验班次标识的形状。
// 合法形式是裸系列 ID，或者 seriesID:YYYY-MM-DD 形式的单次 ID。
func ValidateOccurrenceID(id string) *domain.UpdateError {
	if strings.TrimSpace(id) == "" {
		return domain.NewInputError("INVALID_OCCURRENCE_ID", "occurrenceId must be a non-empty string")
	}
	if idx := strings.Index(id, ":"); idx >= 0 {
		prefix, suffix := id[:idx], id[idx+1:]
		if prefix == "" || !utils.IsValidISODate(suffix) {
			return domain.NewInputError("INVALID_OCCURRENCE_ID",
				fmt.Sprintf("occurrenceId %q has a malformed date suffix, expected seriesId:YYYY-MM-DD", id))
		}
	}
	return nil
}

// ValidateUpdateItem 校验一条修改请求：
// 时间字段要么都有要么都无，状态必须在白名单内，且至少要改一个字段
func ValidateUpdateItem(item *domain.UpdateItem) *domain.UpdateError {
	if err := ValidateOccurrenceID(item.OccurrenceID); err != nil {
		return err
	}

	hasStart := item.StartTime != ""
	hasEnd := item.EndTime != ""

	if hasStart != hasEnd {
		return domain.NewInputError("INVALID_TIME_UPDATE",
			"startTime and endTime must be provided together")
	}

	if hasStart {
		if !utils.IsValidTime24(item.StartTime) || !utils.IsValidTime24(item.EndTime) {
			return domain.NewInputError("INVALID_TIME_FORMAT",
				"startTime and endTime must be 24-hour HH:mm values")
		}
		if !utils.TimeRangeValid(item.StartTime, item.EndTime) {
			return domain.NewInputError("INVALID_TIME_RANGE",
				"endTime must be strictly later than startTime")
		}
	}

	if item.Status != "" {
		allowed := false
		for _, s := range domain.AllowedShiftStatuses {
			if item.Status == string(s) {
				allowed = true
				break
			}
		}
		if !allowed {
			return domain.NewInputError("INVALID_STATUS",
				fmt.Sprintf("status must be one of published or planning, got %q", item.Status))
		}
	}

	if !item.HasTime() && item.Status == "" {
		return domain.NewInputError("EMPTY_UPDATE",
			"update must change at least one of time pair or status")
	}

	return nil
}
