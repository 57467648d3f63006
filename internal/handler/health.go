package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

type dependencyCheck struct {
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

type readinessResult struct {
	Summary    string                     `json:"summary"`
	StatusCode int                        `json:"-"`
	Checks     map[string]dependencyCheck `json:"checks"`
}

// readinessCache 缓存上一次就绪探测的结果，避免探针把上游打穿
type readinessCache struct {
	mu        sync.Mutex
	result    *readinessResult
	expiresAt time.Time
}

type healthzResponse struct {
	RequestID string `json:"requestId"`
	Summary   string `json:"summary"`
	Service   string `json:"service"`
	Timezone  string `json:"timezone"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, healthzResponse{
		RequestID: requestIDFrom(r),
		Summary:   domain.SummaryOK,
		Service:   "shift-sync",
		Timezone:  h.config.Timezone,
	})
}

type readyzResponse struct {
	RequestID string                     `json:"requestId"`
	Summary   string                     `json:"summary"`
	Cached    bool                       `json:"cached"`
	Checks    map[string]dependencyCheck `json:"checks"`
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1" || r.URL.Query().Get("force") == "1"
	ttl := time.Duration(h.config.Server.ReadinessCacheSeconds) * time.Second

	h.readiness.mu.Lock()
	if !refresh && h.readiness.result != nil && time.Now().Before(h.readiness.expiresAt) {
		cached := h.readiness.result
		h.readiness.mu.Unlock()

		h.writeJSON(w, r, cached.StatusCode, readyzResponse{
			RequestID: requestIDFrom(r),
			Summary:   cached.Summary,
			Cached:    true,
			Checks:    cached.Checks,
		})
		return
	}
	h.readiness.mu.Unlock()

	result := h.probeDependencies(r.Context())

	h.readiness.mu.Lock()
	h.readiness.result = result
	h.readiness.expiresAt = time.Now().Add(ttl)
	h.readiness.mu.Unlock()

	h.writeJSON(w, r, result.StatusCode, readyzResponse{
		RequestID: requestIDFrom(r),
		Summary:   result.Summary,
		Cached:    false,
		Checks:    result.Checks,
	})
}

// probeDependencies 并行探测两侧上游，任意一侧失败整体降级为 degraded
func (h *Handler) probeDependencies(ctx context.Context) *readinessResult {
	var wg sync.WaitGroup
	var rosterCheck, registryCheck dependencyCheck

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()

		managerID, err := strconv.ParseInt(h.config.Roster.ManagerUserID, 10, 64)
		if err == nil {
			_, err = h.roster.GetUsersByIDs(ctx, []int64{managerID})
		}

		rosterCheck = dependencyCheck{Status: "ok", DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			ue := domain.AsUpdateError(err)
			rosterCheck.Status = "degraded"
			rosterCheck.Code = ue.Code
			rosterCheck.Message = ue.Message
		}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()

		today := time.Now().In(h.location).Format("2006-01-02")
		_, err := h.registry.GetTeamAssignmentsByDate(ctx, today)

		registryCheck = dependencyCheck{Status: "ok", DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			ue := domain.AsUpdateError(err)
			registryCheck.Status = "degraded"
			registryCheck.Code = ue.Code
			registryCheck.Message = ue.Message
		}
	}()
	wg.Wait()

	result := &readinessResult{
		Summary:    domain.SummaryOK,
		StatusCode: http.StatusOK,
		Checks: map[string]dependencyCheck{
			"roster":   rosterCheck,
			"registry": registryCheck,
		},
	}
	if rosterCheck.Status != "ok" || registryCheck.Status != "ok" {
		result.Summary = "degraded"
		result.StatusCode = http.StatusServiceUnavailable
	}
	return result
}
