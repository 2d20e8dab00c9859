// Package service holds the query and statistics layer on top of the
// store: pagination clamping, per-path statistics, and the dashboard
// aggregate.
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/hookcatch/hookcatch/internal/store"
)

const (
	DefaultLimit  = 100
	MaxLimit      = 1000
	recentInStats = 10
)

type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

// PathStats summarizes the traffic captured for one path.
type PathStats struct {
	PathID        string           `json:"path_id"`
	TotalRequests int64            `json:"total_requests"`
	MethodCounts  map[string]int64 `json:"method_counts"`
	CreatedAt     time.Time        `json:"created_at"`
	LastRequest   *time.Time       `json:"last_request"`
}

// DashboardStats is the cross-path aggregate. Recent requests are
// serialized without bodies.
type DashboardStats struct {
	TotalPaths     int64            `json:"total_paths"`
	TotalRequests  int64            `json:"total_requests"`
	ActivePaths    int64            `json:"active_paths"`
	RecentRequests []*store.Request `json:"recent_requests"`
}

func (s *Service) PathStatistics(ctx context.Context, pathID string) (*PathStats, error) {
	path, err := s.store.FindPath(ctx, pathID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.MethodCounts(ctx, pathID)
	if err != nil {
		return nil, err
	}

	stats := &PathStats{
		PathID:        path.PathID,
		TotalRequests: path.RequestCount,
		MethodCounts:  counts,
		CreatedAt:     path.CreatedAt,
	}

	if path.RequestCount > 0 {
		latest, err := s.store.ListRequestsForPath(ctx, pathID, 1, 0, "")
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			stats.LastRequest = &latest[0].Timestamp
		}
	}
	return stats, nil
}

func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	totalPaths, err := s.store.CountPaths(ctx)
	if err != nil {
		return nil, err
	}
	totalRequests, err := s.store.CountRequests(ctx)
	if err != nil {
		return nil, err
	}
	activePaths, err := s.store.CountActivePaths(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListRecentRequests(ctx, recentInStats)
	if err != nil {
		return nil, err
	}

	views := make([]*store.Request, 0, len(recent))
	for _, r := range recent {
		views = append(views, r.View(false))
	}

	return &DashboardStats{
		TotalPaths:     totalPaths,
		TotalRequests:  totalRequests,
		ActivePaths:    activePaths,
		RecentRequests: views,
	}, nil
}

// ValidatePagination clamps limit to [1, MaxLimit] and offset to
// [0, inf). Malformed input falls back to the defaults silently rather
// than erroring.
func ValidatePagination(limitRaw, offsetRaw string) (limit, offset int) {
	limit, offset = DefaultLimit, 0

	if limitRaw != "" || offsetRaw != "" {
		l, lerr := atoiDefault(limitRaw, DefaultLimit)
		o, oerr := atoiDefault(offsetRaw, 0)
		if lerr != nil || oerr != nil {
			return DefaultLimit, 0
		}
		limit, offset = l, o
	}

	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func atoiDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
