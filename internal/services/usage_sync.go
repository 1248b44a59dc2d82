package services

import (
	"context"
	"sync"
	"time"

	"leadcrm/internal/quota"
	"leadcrm/internal/repo"
	"leadcrm/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// UsageSyncService periodically exports how many tenants sit at their lead
// and user ceilings
type UsageSyncService struct {
	store         *repo.Store
	quota         *quota.Guard
	metrics       *telemetry.Metrics
	checkInterval time.Duration
	mutex         sync.RWMutex
	isRunning     bool
	lastSync      time.Time
	stopChan      chan struct{}
}

// NewUsageSyncService creates a new usage sync service
func NewUsageSyncService(store *repo.Store, guard *quota.Guard, metrics *telemetry.Metrics, interval time.Duration) *UsageSyncService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &UsageSyncService{
		store:         store,
		quota:         guard,
		metrics:       metrics,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the sync loop in the background
func (uss *UsageSyncService) Start(ctx context.Context) {
	uss.mutex.Lock()
	if uss.isRunning {
		uss.mutex.Unlock()
		return
	}
	uss.isRunning = true
	uss.mutex.Unlock()

	log.Info().Dur("interval", uss.checkInterval).Msg("quota usage sync started")

	go func() {
		ticker := time.NewTicker(uss.checkInterval)
		defer ticker.Stop()

		uss.SyncOnce(ctx)

		for {
			select {
			case <-ticker.C:
				uss.SyncOnce(ctx)
			case <-uss.stopChan:
				log.Info().Msg("quota usage sync stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sync loop
func (uss *UsageSyncService) Stop() {
	uss.mutex.Lock()
	defer uss.mutex.Unlock()

	if !uss.isRunning {
		return
	}

	uss.isRunning = false
	close(uss.stopChan)
}

// SyncOnce walks every tenant and returns the number at each ceiling
func (uss *UsageSyncService) SyncOnce(ctx context.Context) map[quota.Resource]int {
	ids, err := uss.store.ListTenantIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("usage sync: failed to list tenants")
		return nil
	}

	atCeiling := map[quota.Resource]int{quota.Leads: 0, quota.Users: 0}
	for _, id := range ids {
		if ctx.Err() != nil {
			return atCeiling
		}
		for resource := range atCeiling {
			res, err := uss.quota.Usage(ctx, id, resource)
			if err != nil {
				log.Warn().Err(err).Str("tenant_id", id.String()).Str("resource", string(resource)).Msg("usage sync: check failed")
				continue
			}
			if !res.Allowed {
				atCeiling[resource]++
			}
		}
	}

	for resource, n := range atCeiling {
		uss.metrics.SetTenantsAtQuota(string(resource), n)
	}

	uss.mutex.Lock()
	uss.lastSync = time.Now()
	uss.mutex.Unlock()

	log.Debug().
		Int("tenants", len(ids)).
		Int("leads_at_quota", atCeiling[quota.Leads]).
		Int("users_at_quota", atCeiling[quota.Users]).
		Msg("usage sync done")
	return atCeiling
}

// GetSyncStatus returns the current status of the sync loop
func (uss *UsageSyncService) GetSyncStatus() map[string]interface{} {
	uss.mutex.RLock()
	defer uss.mutex.RUnlock()

	status := map[string]interface{}{
		"is_running":     uss.isRunning,
		"check_interval": uss.checkInterval.String(),
	}
	if !uss.lastSync.IsZero() {
		status["last_sync"] = uss.lastSync.UTC().Format(time.RFC3339)
	}
	return status
}
