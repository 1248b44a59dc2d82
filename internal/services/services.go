// Package services implements the CRM's API operations on top of the tenant
// store: role gates, ownership checks, quotas, then the mutation itself.
package services

import (
	"context"
	"errors"
	"fmt"

	"leadcrm/internal/apperr"
	"leadcrm/internal/authz"
	"leadcrm/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// storeErr passes classified errors through, maps a missing row to
// NotFound and wraps everything else as Upstream.
func storeErr(op, resource string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource + " not found")
	}
	return apperr.Upstream(fmt.Errorf("%s: %w", op, err))
}

// decide turns an ownership check into an error, nil when allowed
func decide(d authz.Decision, err error, resource string) error {
	if err != nil {
		return apperr.Upstream(err)
	}
	return d.Err(resource)
}

func publish(ctx context.Context, publisher realtime.Publisher, eventType string, tenantID uuid.UUID, payload interface{}) {
	if publisher == nil {
		return
	}
	event, err := realtime.NewEvent(eventType, tenantID, payload)
	if err == nil {
		err = publisher.Publish(ctx, event)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("tenant_id", tenantID.String()).Msg("failed to publish realtime event")
	}
}
