package updater

import (
	"context"
	"sync"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// ApplyFlat 并发上限内逐条应用相互独立的更新。
// 每条的失败不影响其它条目，结果保留请求中的原始下标。
func (u *Updater) ApplyFlat(ctx context.Context, items []domain.UpdateItem) *domain.FlatResult {
	results := make([]domain.ItemResult, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, u.flatConcurrency)

	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()

			item := &items[index]
			view, err := u.ApplyUpdate(ctx, item, nil)
			if err != nil {
				results[index] = domain.ItemResult{
					Index:        index,
					OccurrenceID: item.OccurrenceID,
					Status:       domain.ResultStatusFailed,
					Error:        domain.AsUpdateError(err).Item(),
				}
				return
			}
			results[index] = domain.ItemResult{
				Index:        index,
				OccurrenceID: item.OccurrenceID,
				Status:       domain.ResultStatusSuccess,
				Data:         view,
			}
		}(i)
	}
	wg.Wait()

	success := 0
	for i := range results {
		if results[i].Status == domain.ResultStatusSuccess {
			success++
		}
	}

	return &domain.FlatResult{
		Summary: summaryOf(len(items), success),
		Mode:    ModeFlat,
		Counts: domain.ResultCounts{
			Total:   len(items),
			Success: success,
			Failed:  len(items) - success,
		},
		Results: results,
	}
}
