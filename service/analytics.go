package service

import (
	"context"
	"fmt"
	"time"

	"qrmenu/database"
	"qrmenu/model"
)

type AnalyticsService struct {
	store database.Store
	now   func() time.Time
}

func NewAnalyticsService(store database.Store) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// startOfDay is local midnight of t.
func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func (s *AnalyticsService) Summary(ctx context.Context) (*model.AnalyticsSummary, error) {
	summary, err := s.store.Summary(ctx, startOfDay(s.now()))
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	return summary, nil
}
