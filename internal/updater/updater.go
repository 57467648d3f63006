package updater

import (
	"log/slog"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/roster"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

const (
	ModeFlat    = "flat"
	ModeGrouped = "grouped"
)

// Updater 实现班次更新的全部层次：单条原语、平铺批处理、
// 原子编组（快照/写入/补偿）以及三层重试与回退的编排
type Updater struct {
	roster          roster.Client
	logger          *slog.Logger
	loc             *time.Location
	flatConcurrency int
}

func New(rosterClient roster.Client, logger *slog.Logger, loc *time.Location, flatConcurrency int) *Updater {
	if flatConcurrency < 1 {
		flatConcurrency = 1
	}
	return &Updater{
		roster:          rosterClient,
		logger:          logger,
		loc:             loc,
		flatConcurrency: flatConcurrency,
	}
}

// View 把上游班次整理成面向 UI 的表示
func (u *Updater) View(s *domain.Shift) *domain.ShiftView {
	view := &domain.ShiftView{
		ID:            s.ID,
		UserID:        s.UserID(),
		Status:        string(s.Status),
		DTStart:       s.DTStart,
		DTEnd:         s.DTEnd,
		StartTime:     utils.ExtractTimeFromDateTime(s.DTStart),
		EndTime:       utils.ExtractTimeFromDateTime(s.DTEnd),
		StartLabel:    utils.FormatTimeForDisplay(s.DTStart, u.loc),
		EndLabel:      utils.FormatTimeForDisplay(s.DTEnd, u.loc),
		Date:          utils.ExtractDateFromDateTime(s.DTStart),
		HasRecurrence: s.HasRecurrence(),
	}
	if s.Location != nil {
		view.LocationID = s.Location.ID
	}
	if s.Position != nil {
		view.PositionID = s.Position.ID
	}
	return view
}

func summaryOf(total, success int) string {
	switch {
	case total == 0 || success == total:
		return domain.SummaryOK
	case success == 0:
		return domain.SummaryFailed
	default:
		return domain.SummaryPartial
	}
}
