package services

import (
	"context"
	"time"

	"leadcrm/internal/auth"
	"leadcrm/internal/repo"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardDays   = 14
	dashboardRecent = 10
	dayLayout       = "2006-01-02"
)

// DashboardService computes the tenant's pipeline summary
type DashboardService struct {
	store *repo.Store
	now   func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store *repo.Store) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

// StageSummary is one pipeline column
type StageSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Order      int       `json:"order"`
	IsTerminal bool      `json:"is_terminal"`
	Count      int64     `json:"count"`
}

// DailyCount is the number of leads created on one UTC day
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DashboardSummary is the payload of the dashboard
type DashboardSummary struct {
	TotalLeads  int64          `json:"total_leads"`
	NewThisWeek int64          `json:"new_this_week"`
	InPipeline  int64          `json:"in_pipeline"`
	Unstaged    int64          `json:"unstaged"`
	Stages      []StageSummary `json:"stages"`
	Daily       []DailyCount   `json:"daily"`
	RecentLeads []LeadView     `json:"recent_leads"`
}

// Summary reads every dashboard figure in parallel. Sales only count their
// own leads.
func (s *DashboardService) Summary(ctx context.Context, session *auth.Session) (*DashboardSummary, error) {
	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	chartStart := today.AddDate(0, 0, -(dashboardDays - 1))

	var assignedTo *uuid.UUID
	if session.Role == auth.RoleSales {
		assignedTo = &session.UserID
	}
	tenantID := session.TenantID

	var (
		summary     DashboardSummary
		stages      []StageSummary
		stageCounts []repo.StageCount
		created     []time.Time
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		summary.TotalLeads, err = s.store.CountLeads(egCtx, tenantID, repo.LeadFilter{AssignedTo: assignedTo})
		return err
	})
	eg.Go(func() error {
		var err error
		summary.NewThisWeek, err = s.store.CountLeads(egCtx, tenantID, repo.LeadFilter{AssignedTo: assignedTo, CreatedAfter: &weekAgo})
		return err
	})
	eg.Go(func() error {
		var err error
		summary.InPipeline, err = s.store.CountOpenLeads(egCtx, tenantID, assignedTo)
		return err
	})
	eg.Go(func() error {
		list, err := s.store.ListStages(egCtx, tenantID)
		for _, st := range list {
			stages = append(stages, StageSummary{ID: st.ID, Name: st.Name, Order: st.Order, IsTerminal: st.IsTerminal})
		}
		return err
	})
	eg.Go(func() error {
		var err error
		stageCounts, err = s.store.CountByStage(egCtx, tenantID, assignedTo)
		return err
	})
	eg.Go(func() error {
		var err error
		created, err = s.store.LeadCreationTimes(egCtx, tenantID, chartStart, assignedTo)
		return err
	})
	eg.Go(func() error {
		leads, err := s.store.ListLeads(egCtx, tenantID, repo.LeadFilter{AssignedTo: assignedTo, Limit: dashboardRecent})
		summary.RecentLeads = newLeadViews(leads, now)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, storeErr("dashboard summary", "Dashboard", err)
	}

	counts := make(map[uuid.UUID]int64, len(stageCounts))
	for _, sc := range stageCounts {
		if sc.StageID == nil {
			summary.Unstaged += sc.Count
			continue
		}
		counts[*sc.StageID] = sc.Count
	}
	for i := range stages {
		stages[i].Count = counts[stages[i].ID]
	}
	if stages == nil {
		stages = []StageSummary{}
	}
	summary.Stages = stages
	summary.Daily = bucketByDay(created, chartStart, dashboardDays)

	return &summary, nil
}

// bucketByDay counts times per UTC day for days consecutive days from start
func bucketByDay(times []time.Time, start time.Time, days int) []DailyCount {
	index := make(map[string]int, days)
	daily := make([]DailyCount, days)
	for d := 0; d < days; d++ {
		key := start.AddDate(0, 0, d).Format(dayLayout)
		daily[d] = DailyCount{Date: key}
		index[key] = d
	}
	for _, t := range times {
		if i, ok := index[t.UTC().Format(dayLayout)]; ok {
			daily[i].Count++
		}
	}
	return daily
}
