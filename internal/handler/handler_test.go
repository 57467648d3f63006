package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/idempotency"
	"github.com/venueops-dev/shift-sync/backend/internal/notifier"
	"github.com/venueops-dev/shift-sync/backend/internal/registry"
	"github.com/venueops-dev/shift-sync/backend/internal/updater"
)

type stubRoster struct {
	mu       sync.Mutex
	shifts   map[string]*domain.Shift
	users    map[int64]string
	calendar map[string][]*domain.Shift

	failShift map[string]*domain.UpdateError
	usersErr  error

	writes []string
}

func newStubRoster() *stubRoster {
	return &stubRoster{
		shifts:    map[string]*domain.Shift{},
		users:     map[int64]string{},
		calendar:  map[string][]*domain.Shift{},
		failShift: map[string]*domain.UpdateError{},
	}
}

func (s *stubRoster) GetShiftByID(_ context.Context, occurrenceID string) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[occurrenceID]
	if !ok {
		return nil, domain.NewStructuralError("SHIFT_NOT_FOUND", "shift lookup failed", nil)
	}
	return shift.Clone(), nil
}

func (s *stubRoster) UpdateShift(_ context.Context, occurrenceID string, outbound *domain.Shift) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ue, ok := s.failShift[occurrenceID]; ok {
		return nil, ue
	}
	s.writes = append(s.writes, occurrenceID)
	s.shifts[occurrenceID] = outbound.Clone()
	return json.Marshal(outbound)
}

func (s *stubRoster) GetCalendarShifts(_ context.Context, dateISO string) ([]*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendar[dateISO], nil
}

func (s *stubRoster) GetUsersByIDs(_ context.Context, ids []int64) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if name, ok := s.users[id]; ok {
			users = append(users, &domain.User{ID: id, Name: name})
		}
	}
	return users, nil
}

func (s *stubRoster) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type stubRegistry struct {
	assignments    map[string][]registry.Assignment
	rosterIDs      map[string]int64
	assignmentsErr error
}

func (s *stubRegistry) GetTeamAssignmentsByDate(_ context.Context, dateISO string) ([]registry.Assignment, error) {
	if s.assignmentsErr != nil {
		return nil, s.assignmentsErr
	}
	return s.assignments[dateISO], nil
}

func (s *stubRegistry) GetWorkerRosterIDs(_ context.Context, workerIDs []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, id := range workerIDs {
		if rosterID, ok := s.rosterIDs[id]; ok {
			out[id] = rosterID
		}
	}
	return out, nil
}

type testEnv struct {
	handler  *Handler
	roster   *stubRoster
	registry *stubRegistry
	idem     *idempotency.MemoryStore
	audit    *audit.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.Timezone = "America/New_York"
	cfg.Server.ReadinessCacheSeconds = 60
	cfg.Roster.ManagerUserID = "99"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rosterStub := newStubRoster()
	registryStub := &stubRegistry{
		assignments: map[string][]registry.Assignment{},
		rosterIDs:   map[string]int64{},
	}
	idemStore := idempotency.NewMemoryStore(time.Minute, time.Hour)
	auditStore := audit.NewMemoryStore()
	loc := time.UTC

	upd := updater.New(rosterStub, logger, loc, 2)
	recorder := audit.NewRecorder(auditStore, logger, time.Second)
	alertNotifier := notifier.New(nil, logger, time.Second)

	h, err := NewHandler(cfg, rosterStub, registryStub, upd, idemStore, auditStore, recorder, alertNotifier, loc)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{
		handler:  h,
		roster:   rosterStub,
		registry: registryStub,
		idem:     idemStore,
		audit:    auditStore,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedShift(r *stubRoster, id string, userID int64) {
	r.shifts[id] = &domain.Shift{
		ID:      id,
		Type:    "shift",
		Status:  "published",
		DTStart: "2026-08-10T09:00:00-04:00",
		DTEnd:   "2026-08-10T17:00:00-04:00",
		User:    &domain.ShiftUser{ID: userID},
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code)
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "response should carry an error object")
	require.Equal(t, code, errBody["code"])
	require.Equal(t, domain.SummaryFailed, body["summary"])
}
