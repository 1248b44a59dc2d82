package repo

import (
	"leadcrm/internal/auth"
	"leadcrm/internal/authz"
	"leadcrm/internal/ingest"
	"leadcrm/internal/quota"

	"gorm.io/gorm"
)

// Store is the tenant store: every repository over one connection
type Store struct {
	*TenantRepository
	*UserRepository
	*LeadRepository
	*StageRepository
	*TaskRepository
	*LeadSourceRepository
	*ContactRepository
	*MessageRepository
	*WorkspaceRepository
	*QuotaRepository
}

// NewStore creates a store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		TenantRepository:     NewTenantRepository(db),
		UserRepository:       NewUserRepository(db),
		LeadRepository:       NewLeadRepository(db),
		StageRepository:      NewStageRepository(db),
		TaskRepository:       NewTaskRepository(db),
		LeadSourceRepository: NewLeadSourceRepository(db),
		ContactRepository:    NewContactRepository(db),
		MessageRepository:    NewMessageRepository(db),
		WorkspaceRepository:  NewWorkspaceRepository(db),
		QuotaRepository:      NewQuotaRepository(db),
	}
}

var (
	_ authz.Store         = (*Store)(nil)
	_ quota.Store         = (*Store)(nil)
	_ ingest.Store        = (*Store)(nil)
	_ auth.UserRepository = (*Store)(nil)
)
