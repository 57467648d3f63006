package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/venueops-dev/shift-sync/backend/internal/audit"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
	"github.com/venueops-dev/shift-sync/backend/internal/utils"
)

var teamNames = []string{
	"Team Alpha", "Team Bravo", "Team Charlie", "Team Delta",
	"Team Echo", "Team Foxtrot", "Team Golf", "Team Hotel",
}

var outcomes = []string{
	domain.AuditOutcomeSuccess,
	domain.AuditOutcomeSuccess,
	domain.AuditOutcomePartial,
	domain.AuditOutcomeFailure,
}

// InsertRandomAuditEntries 插入 n 条随机的批量更新审计记录，
// 用于在没有真实流量的环境里开发审计时间线页面
func InsertRandomAuditEntries(ctx context.Context, store audit.Store, n int) error {
	for i := 0; i < n; i++ {
		entry, err := randomAuditEntry()
		if err != nil {
			return err
		}
		if err := store.Record(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func randomAuditEntry() (*domain.AuditEntry, error) {
	groupCount := rand.Intn(3) + 1
	date := time.Now().AddDate(0, 0, -rand.Intn(30)).Format("2006-01-02")
	outcome := outcomes[rand.Intn(len(outcomes))]

	groups := make([]domain.Group, 0, groupCount)
	results := make([]map[string]any, 0, groupCount)
	for g := 0; g < groupCount; g++ {
		team := teamNames[rand.Intn(len(teamNames))]
		occurrenceID := fmt.Sprintf("%s:%s", utils.GenerateRandomSeriesID(), date)
		startTime := utils.GenerateRandomTime24()

		groups = append(groups, domain.Group{
			GroupID: team,
			Updates: []domain.UpdateItem{
				{OccurrenceID: occurrenceID, StartTime: startTime, EndTime: "21:00"},
			},
		})

		status := domain.ResultStatusSuccess
		if outcome == domain.AuditOutcomeFailure || (outcome == domain.AuditOutcomePartial && g == 0) {
			status = domain.ResultStatusFailed
		}
		results = append(results, map[string]any{
			"status": status,
			"results": []map[string]any{
				{"data": map[string]any{"date": date}},
			},
		})
	}

	body, err := json.Marshal(map[string]any{"groups": groups})
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]any{
		"summary": outcome,
		"results": results,
	})
	if err != nil {
		return nil, err
	}

	statusCode := http.StatusOK

	return &domain.AuditEntry{
		RequestID:      uuid.NewString(),
		// 幂等键由客户端自选，不一定是 UUID，用随机串更贴近真实流量
		IdempotencyKey: utils.GenerateRandomID(8, 4),
		Method:         http.MethodPost,
		Path:           "/api/shifts/bulk",
		Body:           body,
		StatusCode:     statusCode,
		Payload:        payload,
		DurationMs:     int64(rand.Intn(2000) + 100),
		Outcome:        outcome,
	}, nil
}
