package services

import (
	"time"

	"leadcrm/pkg/models"
)

// SLAStatus grades how long a lead has waited since it came in
type SLAStatus string

const (
	SLAGreen  SLAStatus = "green"
	SLAYellow SLAStatus = "yellow"
	SLARed    SLAStatus = "red"
)

const (
	slaGreenMaxMinutes  = 15
	slaYellowMaxMinutes = 60
)

// SLAMinutes returns whole minutes elapsed since createdAt
func SLAMinutes(createdAt, now time.Time) int64 {
	return int64(now.Sub(createdAt) / time.Minute)
}

// GradeSLA returns green under 15 minutes, yellow under an hour, red after
func GradeSLA(createdAt, now time.Time) SLAStatus {
	minutes := SLAMinutes(createdAt, now)
	switch {
	case minutes < slaGreenMaxMinutes:
		return SLAGreen
	case minutes < slaYellowMaxMinutes:
		return SLAYellow
	default:
		return SLARed
	}
}

// LeadView is a lead as returned by list endpoints
type LeadView struct {
	models.Lead
	SLAStatus  SLAStatus `json:"sla_status"`
	SLAMinutes int64     `json:"sla_minutes"`
}

func newLeadViews(leads []models.Lead, now time.Time) []LeadView {
	views := make([]LeadView, 0, len(leads))
	for _, l := range leads {
		views = append(views, LeadView{
			Lead:       l,
			SLAStatus:  GradeSLA(l.CreatedAt, now),
			SLAMinutes: SLAMinutes(l.CreatedAt, now),
		})
	}
	return views
}
