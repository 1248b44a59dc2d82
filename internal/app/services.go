package app

import (
	"context"
	"fmt"

	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/config"
	"leadcrm/internal/ingest"
	"leadcrm/internal/quota"
	"leadcrm/internal/realtime"
	"leadcrm/internal/repo"
	"leadcrm/internal/services"
	"leadcrm/internal/telemetry"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   *repo.Store
	Metrics *telemetry.Metrics

	AuthService *auth.Service
	Identities  auth.IdentityProvider
	Authz       *authz.Engine
	Quota       *quota.Guard

	Hub       *realtime.Hub
	Publisher realtime.Publisher
	Redis     *redis.Client

	Pipeline *ingest.Pipeline

	LeadService      *services.LeadService
	TaskService      *services.TaskService
	UserService      *services.UserService
	SignupService    *services.SignupService
	ChannelService   *services.ChannelService
	InboxService     *services.InboxService
	DashboardService *services.DashboardService
	UsageSyncService *services.UsageSyncService
}

// NewServices wires the container. Redis and S3 are optional: without them
// events stay local to this instance and payloads are not archived.
func NewServices(cfg *config.Config, db *gorm.DB, metrics *telemetry.Metrics) (*Services, error) {
	store := repo.NewStore(db)
	identities := auth.NewLocalIdentityProvider(db)
	engine := authz.NewEngine(store)
	guard := quota.NewGuard(store, metrics)

	hub := realtime.NewHub(metrics)
	var publisher realtime.Publisher = hub
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		publisher = realtime.NewRedisPublisher(redisClient, realtime.DefaultChannel)
	} else {
		log.Warn().Msg("REDIS_URL not set, realtime events stay local to this instance")
	}

	// a nil *PayloadArchive must not reach the pipeline as a non-nil interface
	var archiver ingest.Archiver
	if cfg.S3.Enabled() {
		archive, err := services.NewPayloadArchive(cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize payload archive, continuing without it")
		} else {
			archiver = archive
		}
	} else {
		log.Warn().Msg("S3 not configured, webhook payloads will not be archived")
	}

	pipeline := ingest.NewPipeline(store, guard, publisher, archiver, metrics, ingest.Config{
		VerifyToken:      cfg.WhatsAppVerifyToken,
		FallbackTenantID: cfg.WhatsAppFallbackTenant,
	})

	return &Services{
		Config:           cfg,
		DB:               db,
		Store:            store,
		Metrics:          metrics,
		AuthService:      auth.NewService(cfg.JWTSecret, cfg.JWTAccessDuration, identities, store),
		Identities:       identities,
		Authz:            engine,
		Quota:            guard,
		Hub:              hub,
		Publisher:        publisher,
		Redis:            redisClient,
		Pipeline:         pipeline,
		LeadService:      services.NewLeadService(store, engine, guard, publisher, metrics),
		TaskService:      services.NewTaskService(store, engine),
		UserService:      services.NewUserService(store, identities, guard),
		SignupService:    services.NewSignupService(store, identities),
		ChannelService:   services.NewChannelService(store),
		InboxService:     services.NewInboxService(store, engine),
		DashboardService: services.NewDashboardService(store),
		UsageSyncService: services.NewUsageSyncService(store, guard, metrics, 0),
	}, nil
}

// Start runs the background workers until ctx is done: the realtime hub,
// the Redis relay when configured and the usage sync loop.
func (s *Services) Start(ctx context.Context) {
	go s.Hub.Run(ctx)

	if s.Redis != nil {
		go func() {
			if err := realtime.Relay(ctx, s.Redis, realtime.DefaultChannel, s.Hub, nil); err != nil {
				log.Error().Err(err).Msg("realtime relay stopped")
			}
		}()
		log.Info().Msg("Realtime relay started")
	}

	s.UsageSyncService.Start(ctx)
}

// Close releases the external clients
func (s *Services) Close() {
	s.UsageSyncService.Stop()
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}
