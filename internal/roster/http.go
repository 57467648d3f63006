package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"golang.org/x/time/rate"
)

// HTTPClient 是上游排班系统的 HTTP 实现。
// 瞬时错误（408/429/5xx、超时）在这一层按线性退避重试，
// 上层把每一次调用当作单次可失败操作看待。
type HTTPClient struct {
	cfg        *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	rps := cfg.Roster.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Roster.RequestTimeout) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func isTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// classify 在上游错误第一次被观测到的地方打好分类标签，构造唯一的错误对象
func (c *HTTPClient) classify(method, requestURL string, status int, payload json.RawMessage) *domain.UpdateError {
	kind := domain.ErrKindStructural
	switch {
	case isTransientStatus(status):
		kind = domain.ErrKindTransient
	case status == http.StatusConflict || status == http.StatusExpectationFailed:
		kind = domain.ErrKindConflict
	}

	conflicts := make([]domain.Conflict, 0)
	for _, rc := range normalizeConflictPayload(payload) {
		conflict := domain.Conflict{
			Type:    rc.Type,
			ShiftID: rc.ID,
			ConflictWindow: domain.ConflictWindow{
				Start: rc.DTStart,
				End:   rc.DTEnd,
			},
			Raw: rc,
		}
		if conflict.Type == "" {
			conflict.Type = "unknown"
		}
		if rc.User != nil {
			conflict.EmployeeID = rc.User.ID
		}
		conflicts = append(conflicts, conflict)
	}

	var detail any
	if len(payload) > 0 {
		detail = json.RawMessage(payload)
	}

	return &domain.UpdateError{
		Kind:       kind,
		Code:       "ROSTER_REQUEST_FAILED",
		StatusCode: status,
		Message:    fmt.Sprintf("roster %s %s failed with status %d", method, requestURL, status),
		Conflicts:  conflicts,
		Detail:     detail,
	}
}

func (c *HTTPClient) request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	requestURL := c.cfg.Roster.BaseURL + path
	attempts := c.cfg.Roster.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.UpdateError{
				Kind:       domain.ErrKindTransient,
				Code:       "ROSTER_TIMEOUT",
				StatusCode: http.StatusGatewayTimeout,
				Message:    fmt.Sprintf("roster %s %s canceled while waiting for rate limiter", method, requestURL),
			}
		}

		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Authorization", c.cfg.Roster.APIToken)
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			// 超时和网络错误视为瞬时错误，在预算内重试
			if attempt < attempts {
				time.Sleep(time.Duration(250*(attempt+1)) * time.Millisecond)
				continue
			}

			if errors.Is(err, context.DeadlineExceeded) || isTimeoutError(err) {
				return nil, &domain.UpdateError{
					Kind:       domain.ErrKindTransient,
					Code:       "ROSTER_TIMEOUT",
					StatusCode: http.StatusGatewayTimeout,
					Message:    fmt.Sprintf("roster %s %s timed out", method, requestURL),
				}
			}
			return nil, &domain.UpdateError{
				Kind:       domain.ErrKindTransient,
				Code:       "ROSTER_NETWORK_ERROR",
				StatusCode: http.StatusBadGateway,
				Message:    fmt.Sprintf("roster %s %s failed: %v", method, requestURL, err),
			}
		}

		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &domain.UpdateError{
				Kind:       domain.ErrKindTransient,
				Code:       "ROSTER_NETWORK_ERROR",
				StatusCode: http.StatusBadGateway,
				Message:    fmt.Sprintf("roster %s %s read failed: %v", method, requestURL, readErr),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isTransientStatus(resp.StatusCode) && attempt < attempts {
				time.Sleep(time.Duration(250*(attempt+1)) * time.Millisecond)
				continue
			}
			return nil, c.classify(method, requestURL, resp.StatusCode, payload)
		}

		slog.Info("上游排班系统请求成功", "method", method, "url", requestURL, "status", resp.StatusCode, "duration", time.Since(start))
		return payload, nil
	}

	// 正常情况下不会走到这里，重试循环内已在最后一次尝试时返回
	return nil, &domain.UpdateError{
		Kind:       domain.ErrKindTransient,
		Code:       "ROSTER_RETRY_EXHAUSTED",
		StatusCode: http.StatusBadGateway,
		Message:    fmt.Sprintf("roster %s %s retry budget exhausted", method, requestURL),
	}
}

func isTimeoutError(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *HTTPClient) GetShiftByID(ctx context.Context, occurrenceID string) (*domain.Shift, error) {
	raw, err := c.request(ctx, http.MethodGet, "/v1/shifts/"+url.PathEscape(occurrenceID), nil)
	if err != nil {
		return nil, err
	}

	shift := &domain.Shift{}
	if err := json.Unmarshal(UnwrapShift(raw), shift); err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "ROSTER_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("roster returned an unreadable shift for %s: %v", occurrenceID, err),
		}
	}
	return shift, nil
}

func (c *HTTPClient) UpdateShift(ctx context.Context, occurrenceID string, outbound *domain.Shift) (json.RawMessage, error) {
	raw, err := c.request(ctx, http.MethodPut, "/v1/shifts/"+url.PathEscape(occurrenceID), outbound)
	if err != nil {
		return nil, err
	}
	return UnwrapShift(raw), nil
}

func (c *HTTPClient) GetCalendarShifts(ctx context.Context, dateISO string) ([]*domain.Shift, error) {
	dates := dateISO + "/" + dateISO
	path := "/v1/calendar/" + url.PathEscape(c.cfg.Roster.CalendarID) +
		"/users/" + url.PathEscape(c.cfg.Roster.ManagerUserID) +
		"?dates=" + url.QueryEscape(dates)

	raw, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	shifts := make([]*domain.Shift, 0)
	if err := json.Unmarshal(raw, &shifts); err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "ROSTER_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("roster returned an unreadable calendar for %s: %v", dateISO, err),
		}
	}
	return shifts, nil
}

func (c *HTTPClient) GetUsersByIDs(ctx context.Context, ids []int64) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	joined := make([]string, 0, len(ids))
	for _, id := range ids {
		joined = append(joined, strconv.FormatInt(id, 10))
	}

	raw, err := c.request(ctx, http.MethodGet, "/v1/users?ids="+url.QueryEscape(strings.Join(joined, ",")), nil)
	if err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0)
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "ROSTER_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("roster returned an unreadable user list: %v", err),
		}
	}
	return users, nil
}
