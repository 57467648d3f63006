package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

// HTTPClient 是注册表的 HTTP 实现。
// 访问令牌通过 webhook 获取并缓存，401/403 时刷新一次后重试。
type HTTPClient struct {
	cfg        *config.Config
	httpClient *http.Client

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	c := &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Registry.RequestTimeout) * time.Second,
		},
	}
	if cfg.Registry.AccessToken != "" {
		c.token = cfg.Registry.AccessToken
		c.tokenExpiresAt = time.Now().Add(time.Hour)
	}
	return c
}

func tryParseJSON(raw json.RawMessage) json.RawMessage {
	// webhook 偶尔会把 JSON 再编码一层字符串，这里解开
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[') {
			return json.RawMessage(trimmed)
		}
	}
	return raw
}

type tokenPayload struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   flexInt `json:"expires_in"`
}

// extractTokenPayload 按固定优先级从 webhook 响应中找出令牌：
// 响应本体 → data → result → Result → 数组第一个元素 → body → payload
func extractTokenPayload(raw json.RawMessage) *tokenPayload {
	raw = tryParseJSON(raw)

	candidates := []json.RawMessage{raw}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		for _, key := range []string{"data", "result", "Result", "body", "payload"} {
			if inner, ok := wrapper[key]; ok {
				candidates = append(candidates, tryParseJSON(inner))
			}
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		candidates = append(candidates, tryParseJSON(items[0]))
	}

	for _, candidate := range candidates {
		tp := &tokenPayload{}
		if err := json.Unmarshal(candidate, tp); err != nil {
			continue
		}
		if tp.AccessToken != "" {
			return tp
		}
	}
	return nil
}

func (c *HTTPClient) fetchWebhookToken(ctx context.Context) (string, error) {
	if c.cfg.Registry.TokenWebhookURL == "" {
		return "", &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "REGISTRY_AUTH_CONFIG_ERROR",
			StatusCode: http.StatusInternalServerError,
			Message:    "registry token webhook URL is not configured",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Registry.TokenWebhookURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.UpdateError{
			Kind:       domain.ErrKindTransient,
			Code:       "REGISTRY_AUTH_FAILED",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry token webhook failed: %v", err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.UpdateError{
			Kind:       domain.ErrKindTransient,
			Code:       "REGISTRY_AUTH_FAILED",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry token webhook returned status %d", resp.StatusCode),
		}
	}

	tp := extractTokenPayload(raw)
	if tp == nil {
		return "", &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "REGISTRY_AUTH_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    "registry token webhook returned an unreadable payload",
		}
	}

	expires := int64(3600)
	if tp.ExpiresIn > 0 {
		expires = int64(tp.ExpiresIn)
	}

	c.mu.Lock()
	c.token = tp.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(expires) * time.Second)
	c.mu.Unlock()

	return tp.AccessToken, nil
}

func (c *HTTPClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	// 提前 5 分钟视为过期，避免在长请求中途失效
	valid := token != "" && time.Until(c.tokenExpiresAt) > 5*time.Minute
	c.mu.Unlock()

	if valid {
		return token, nil
	}
	if c.cfg.Registry.AccessToken != "" && c.cfg.Registry.TokenWebhookURL == "" {
		return c.cfg.Registry.AccessToken, nil
	}
	return c.fetchWebhookToken(ctx)
}

func (c *HTTPClient) request(ctx context.Context, path string, query url.Values, allowRefresh bool) (json.RawMessage, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := c.cfg.Registry.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindTransient,
			Code:       "REGISTRY_REQUEST_FAILED",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry GET %s failed: %v", requestURL, err),
		}
	}
	defer resp.Body.Close()

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) &&
		allowRefresh && c.cfg.Registry.TokenWebhookURL != "" {
		if _, err := c.fetchWebhookToken(ctx); err != nil {
			return nil, err
		}
		return c.request(ctx, path, query, false)
	}

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindTransient,
			Code:       "REGISTRY_REQUEST_FAILED",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry GET %s read failed: %v", requestURL, readErr),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := domain.ErrKindStructural
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			kind = domain.ErrKindTransient
		}
		return nil, &domain.UpdateError{
			Kind:       kind,
			Code:       "REGISTRY_REQUEST_FAILED",
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("registry GET %s failed with status %d", requestURL, resp.StatusCode),
			Detail:     json.RawMessage(raw),
		}
	}

	var body struct {
		Result json.RawMessage `json:"Result"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Result) == 0 {
		return json.RawMessage("[]"), nil
	}
	return body.Result, nil
}

// flexInt 兼容上游把数字列返回成字符串的情况，解析失败按 0 处理
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

type assignmentRow struct {
	Team           string  `json:"team_assignment_Team"`
	MainRosterID   flexInt `json:"workers_Roster_ID"`
	AssistWorkerID string  `json:"team_assignment_Assist_Worker_ID"`
}

func (c *HTTPClient) GetTeamAssignmentsByDate(ctx context.Context, dateISO string) ([]Assignment, error) {
	query := url.Values{}
	query.Set("q.select", "team_assignment_Start_Date,team_assignment_Team,team_assignment_Main_Worker_ID,team_assignment_Assist_Worker_ID,workers_Roster_ID")
	query.Set("q.where", fmt.Sprintf("team_assignment_Start_Date='%s'", utils.FormatDateForRegistry(dateISO)))

	raw, err := c.request(ctx, "/views/v_team_assignment_roster/records", query, true)
	if err != nil {
		return nil, err
	}

	rows := make([]assignmentRow, 0)
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "REGISTRY_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry returned unreadable assignments for %s: %v", dateISO, err),
		}
	}

	assignments := make([]Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, Assignment{
			Team:           row.Team,
			MainRosterID:   int64(row.MainRosterID),
			AssistWorkerID: row.AssistWorkerID,
		})
	}
	return assignments, nil
}

type workerRow struct {
	WorkerID string  `json:"Worker_ID"`
	RosterID flexInt `json:"Roster_ID"`
}

func (c *HTTPClient) GetWorkerRosterIDs(ctx context.Context, workerIDs []string) (map[string]int64, error) {
	result := make(map[string]int64)
	if len(workerIDs) == 0 {
		return result, nil
	}

	quoted := make([]string, 0, len(workerIDs))
	for _, id := range workerIDs {
		quoted = append(quoted, "'"+id+"'")
	}

	query := url.Values{}
	query.Set("q.select", "Worker_ID,Roster_ID")
	query.Set("q.where", fmt.Sprintf("Worker_ID IN (%s)", strings.Join(quoted, ",")))

	raw, err := c.request(ctx, "/tables/tbl_workers/records", query, true)
	if err != nil {
		return nil, err
	}

	rows := make([]workerRow, 0)
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &domain.UpdateError{
			Kind:       domain.ErrKindStructural,
			Code:       "REGISTRY_BAD_RESPONSE",
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("registry returned unreadable workers: %v", err),
		}
	}

	for _, row := range rows {
		if row.RosterID != 0 {
			result[row.WorkerID] = int64(row.RosterID)
		}
	}
	return result, nil
}
