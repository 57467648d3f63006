package updater

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

type fakeWrite struct {
	id       string
	outbound *domain.Shift
	failed   bool
}

// fakeRoster 是测试用的上游排班系统：GetShiftByID 返回快照的拷贝，
// UpdateShift 按注入的失败表决定成败，成功时把出站内容写回状态并原样回显
type fakeRoster struct {
	mu          sync.Mutex
	shifts      map[string]*domain.Shift
	calendars   map[string][]*domain.Shift
	calendarErr error
	failOnce    map[string]*domain.UpdateError
	failAlways  map[string]*domain.UpdateError
	writes      []fakeWrite
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		shifts:     map[string]*domain.Shift{},
		calendars:  map[string][]*domain.Shift{},
		failOnce:   map[string]*domain.UpdateError{},
		failAlways: map[string]*domain.UpdateError{},
	}
}

func (f *fakeRoster) GetShiftByID(_ context.Context, occurrenceID string) (*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[occurrenceID]
	if !ok {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "ROSTER_BAD_RESPONSE",
			StatusCode: 404,
			Message:    "shift not found",
		}
	}
	return s.Clone(), nil
}

func (f *fakeRoster) UpdateShift(_ context.Context, occurrenceID string, outbound *domain.Shift) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOnce[occurrenceID]; ok {
		delete(f.failOnce, occurrenceID)
		f.writes = append(f.writes, fakeWrite{id: occurrenceID, outbound: outbound.Clone(), failed: true})
		return nil, err
	}
	if err, ok := f.failAlways[occurrenceID]; ok {
		f.writes = append(f.writes, fakeWrite{id: occurrenceID, outbound: outbound.Clone(), failed: true})
		return nil, err
	}
	f.shifts[occurrenceID] = outbound.Clone()
	f.writes = append(f.writes, fakeWrite{id: occurrenceID, outbound: outbound.Clone()})
	return json.Marshal(outbound)
}

func (f *fakeRoster) GetCalendarShifts(_ context.Context, dateISO string) ([]*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calendarErr != nil {
		return nil, f.calendarErr
	}
	return f.calendars[dateISO], nil
}

func (f *fakeRoster) GetUsersByIDs(_ context.Context, _ []int64) ([]*domain.User, error) {
	return nil, nil
}

// writesTo 返回对指定标识发出的全部写入
func (f *fakeRoster) writesTo(occurrenceID string) []fakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeWrite, 0)
	for _, w := range f.writes {
		if w.id == occurrenceID {
			out = append(out, w)
		}
	}
	return out
}

func newTestUpdater(f *fakeRoster) *Updater {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, logger, time.UTC, 1)
}

func transientErr(code string) *domain.UpdateError {
	return &domain.UpdateError{
		Kind:       domain.ErrKindTransient,
		Code:       code,
		StatusCode: 503,
		Message:    "simulated transient failure",
	}
}

func conflictErr(code string) *domain.UpdateError {
	return &domain.UpdateError{
		Kind:       domain.ErrKindConflict,
		Code:       code,
		StatusCode: 409,
		Message:    "simulated upstream conflict",
		Conflicts: []domain.Conflict{
			{Type: "leave", EmployeeID: 1002, ShiftID: "leave-1"},
		},
	}
}

func publishedShift(id string, userID int64) *domain.Shift {
	return &domain.Shift{
		ID:      id,
		Type:    "shift",
		Status:  domain.ShiftStatusPublished,
		DTStart: "2026-08-10T09:15:00-04:00",
		DTEnd:   "2026-08-10T17:00:00-04:00",
		User:    &domain.ShiftUser{ID: userID},
		Location: &domain.ShiftRef{
			ID: 151378,
		},
		Position: &domain.ShiftRef{
			ID: 151397,
		},
	}
}
