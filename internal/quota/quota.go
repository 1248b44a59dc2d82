// Package quota enforces per-tenant ceilings on lead and user counts.
//
// The ceiling read and the count are separate queries with no transaction
// around them or the creation they guard. Two concurrent creations can both
// pass and overshoot the ceiling slightly; the quota is a business limit,
// not a hard resource constraint.
package quota

import (
	"context"
	"fmt"

	"leadcrm/internal/apperr"
	"leadcrm/internal/telemetry"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Resource is a quota-limited entity kind
type Resource string

const (
	Leads Resource = "leads"
	Users Resource = "users"
)

// DefaultMax returns the ceiling used when the tenant carries none
func (r Resource) DefaultMax() int64 {
	if r == Users {
		return models.DefaultMaxUsers
	}
	return models.DefaultMaxLeads
}

// Store reads ceilings and counts. Ceiling returns nil when the tenant row
// or its column is absent.
type Store interface {
	Ceiling(ctx context.Context, tenantID uuid.UUID, resource Resource) (*int64, error)
	Count(ctx context.Context, tenantID uuid.UUID, resource Resource) (int64, error)
}

// Result is the outcome of a quota check
type Result struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

// Guard checks quotas before creations
type Guard struct {
	store   Store
	metrics *telemetry.Metrics
}

// NewGuard creates a new quota guard
func NewGuard(store Store, metrics *telemetry.Metrics) *Guard {
	return &Guard{store: store, metrics: metrics}
}

// Check compares the tenant's current count of resource with its ceiling.
// Allowed is current < max: the ceiling is the first rejected count.
func (g *Guard) Check(ctx context.Context, tenantID uuid.UUID, resource Resource) (Result, error) {
	res, err := g.Usage(ctx, tenantID, resource)
	if err != nil {
		return Result{}, err
	}
	if !res.Allowed {
		g.metrics.QuotaDenied(string(resource))
	}
	return res, nil
}

// Usage is Check without counting a denial, for reporting
func (g *Guard) Usage(ctx context.Context, tenantID uuid.UUID, resource Resource) (Result, error) {
	var (
		ceiling *int64
		count   int64
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		ceiling, err = g.store.Ceiling(egCtx, tenantID, resource)
		return err
	})
	eg.Go(func() error {
		var err error
		count, err = g.store.Count(egCtx, tenantID, resource)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Result{}, fmt.Errorf("check %s quota: %w", resource, err)
	}

	max := resource.DefaultMax()
	if ceiling != nil {
		max = *ceiling
	}
	return Result{Allowed: count < max, Current: count, Max: max}, nil
}

// Require is Check that fails with a QuotaExceeded error when not allowed
func (g *Guard) Require(ctx context.Context, tenantID uuid.UUID, resource Resource) error {
	res, err := g.Check(ctx, tenantID, resource)
	if err != nil {
		return apperr.Upstream(err)
	}
	if !res.Allowed {
		return apperr.QuotaExceeded(limitMessage(resource), res.Current, res.Max)
	}
	return nil
}

func limitMessage(resource Resource) string {
	if resource == Users {
		return "User limit reached for your plan"
	}
	return "Lead limit reached for your plan"
}
