package repo

import (
	"context"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadFilter narrows lead listings and counts
type LeadFilter struct {
	Origin       string
	AssignedTo   *uuid.UUID
	CreatedAfter *time.Time
	Limit        int
}

func (f LeadFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.Origin != "" {
		tx = tx.Where("origin = ?", f.Origin)
	}
	if f.AssignedTo != nil {
		tx = tx.Where("assigned_to_user_id = ?", *f.AssignedTo)
	}
	if f.CreatedAfter != nil {
		tx = tx.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	return tx
}

// LeadRepository handles lead data access
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// LeadAssignee returns the lead's assignee; found is false when the lead is
// not in the tenant.
func (r *LeadRepository) LeadAssignee(ctx context.Context, tenantID, leadID uuid.UUID) (*uuid.UUID, bool, error) {
	var lead models.Lead
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id", "assigned_to_user_id").
		Where("id = ? AND tenant_id = ?", leadID, tenantID), &lead)
	if err != nil || !found {
		return nil, false, err
	}
	return lead.AssignedToUserID, true, nil
}

// GetLead gets a tenant's lead by ID
func (r *LeadRepository) GetLead(ctx context.Context, tenantID, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListLeads lists a tenant's leads, newest first
func (r *LeadRepository) ListLeads(ctx context.Context, tenantID uuid.UUID, filter LeadFilter) ([]models.Lead, error) {
	var leads []models.Lead
	tx := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	err := filter.apply(tx).Order("created_at DESC").Find(&leads).Error
	return leads, err
}

// LeadsByIDs loads the tenant's leads among ids
func (r *LeadRepository) LeadsByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, assignedTo *uuid.UUID) ([]models.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var leads []models.Lead
	tx := r.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids)
	if assignedTo != nil {
		tx = tx.Where("assigned_to_user_id = ?", *assignedTo)
	}
	err := tx.Find(&leads).Error
	return leads, err
}

// CountLeads counts a tenant's leads matching filter
func (r *LeadRepository) CountLeads(ctx context.Context, tenantID uuid.UUID, filter LeadFilter) (int64, error) {
	var count int64
	filter.Limit = 0
	tx := r.db.WithContext(ctx).Model(&models.Lead{}).Where("tenant_id = ?", tenantID)
	err := filter.apply(tx).Count(&count).Error
	return count, err
}

// CountOpenLeads counts leads with no stage or a non-terminal stage
func (r *LeadRepository) CountOpenLeads(ctx context.Context, tenantID uuid.UUID, assignedTo *uuid.UUID) (int64, error) {
	terminal := r.db.Model(&models.PipelineStage{}).
		Select("id").
		Where("tenant_id = ? AND is_terminal = ?", tenantID, true)

	var count int64
	tx := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("tenant_id = ?", tenantID).
		Where("stage_id IS NULL OR stage_id NOT IN (?)", terminal)
	if assignedTo != nil {
		tx = tx.Where("assigned_to_user_id = ?", *assignedTo)
	}
	err := tx.Count(&count).Error
	return count, err
}

// StageCount is the number of leads sitting in one stage
type StageCount struct {
	StageID *uuid.UUID `json:"stage_id"`
	Count   int64      `json:"count"`
}

// CountByStage groups a tenant's leads by stage
func (r *LeadRepository) CountByStage(ctx context.Context, tenantID uuid.UUID, assignedTo *uuid.UUID) ([]StageCount, error) {
	var rows []StageCount
	tx := r.db.WithContext(ctx).Model(&models.Lead{}).
		Select("stage_id, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID)
	if assignedTo != nil {
		tx = tx.Where("assigned_to_user_id = ?", *assignedTo)
	}
	err := tx.Group("stage_id").Scan(&rows).Error
	return rows, err
}

// LeadCreationTimes returns created_at for leads created after since
func (r *LeadRepository) LeadCreationTimes(ctx context.Context, tenantID uuid.UUID, since time.Time, assignedTo *uuid.UUID) ([]time.Time, error) {
	var times []time.Time
	tx := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since)
	if assignedTo != nil {
		tx = tx.Where("assigned_to_user_id = ?", *assignedTo)
	}
	err := tx.Pluck("created_at", &times).Error
	return times, err
}

// LatestLeadForContact returns the contact's most recent lead, or nil
func (r *LeadRepository) LatestLeadForContact(ctx context.Context, tenantID, contactID uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	found, err := firstOrNil(r.db.WithContext(ctx).
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Order("created_at DESC"), &lead)
	if err != nil || !found {
		return nil, err
	}
	return &lead, nil
}

// CreateLead creates a lead
func (r *LeadRepository) CreateLead(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// UpdateLead applies column updates to a tenant's lead and returns the row
func (r *LeadRepository) UpdateLead(ctx context.Context, tenantID, id uuid.UUID, updates map[string]interface{}) (*models.Lead, error) {
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Lead{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetLead(ctx, tenantID, id)
}

// DeleteLead removes a tenant's lead and its tasks, and unlinks its messages
func (r *LeadRepository) DeleteLead(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Lead{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// tasks go with their lead; the conversation stays as unlinked messages
		if err := tx.Where("lead_id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Message{}).
			Where("lead_id = ? AND tenant_id = ?", id, tenantID).
			Update("lead_id", nil).Error
	})
}

// StageRepository handles pipeline stage data access
type StageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// FirstStageID returns the tenant's lowest-order stage, or nil
func (r *StageRepository) FirstStageID(ctx context.Context, tenantID uuid.UUID) (*uuid.UUID, error) {
	var stage models.PipelineStage
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id").
		Where("tenant_id = ?", tenantID).
		Order("position ASC"), &stage)
	if err != nil || !found {
		return nil, err
	}
	return &stage.ID, nil
}

// ListStages lists the tenant's stages in order
func (r *StageRepository) ListStages(ctx context.Context, tenantID uuid.UUID) ([]models.PipelineStage, error) {
	var stages []models.PipelineStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC").
		Find(&stages).Error
	return stages, err
}

// StageInTenant reports whether stageID belongs to the tenant
func (r *StageRepository) StageInTenant(ctx context.Context, tenantID, stageID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PipelineStage{}).
		Where("id = ? AND tenant_id = ?", stageID, tenantID).
		Count(&count).Error
	return count > 0, err
}

// CreateStages inserts stages in one statement
func (r *StageRepository) CreateStages(ctx context.Context, stages []models.PipelineStage) error {
	return r.db.WithContext(ctx).Create(&stages).Error
}

// TaskRepository handles task data access
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskLeadID returns the task's lead; found is false when the task is not
// in the tenant.
func (r *TaskRepository) TaskLeadID(ctx context.Context, tenantID, taskID uuid.UUID) (*uuid.UUID, bool, error) {
	var task models.Task
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id", "lead_id").
		Where("id = ? AND tenant_id = ?", taskID, tenantID), &task)
	if err != nil || !found {
		return nil, false, err
	}
	return task.LeadID, true, nil
}

// ListTasks lists a tenant's tasks by due date, undated last. When ownerID is
// set only standalone tasks and tasks on leads assigned to ownerID are returned.
func (r *TaskRepository) ListTasks(ctx context.Context, tenantID uuid.UUID, ownerID *uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	tx := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if ownerID != nil {
		owned := r.db.Model(&models.Lead{}).
			Select("id").
			Where("tenant_id = ? AND assigned_to_user_id = ?", tenantID, *ownerID)
		tx = tx.Where("lead_id IS NULL OR lead_id IN (?)", owned)
	}
	err := tx.Order("due_at IS NULL, due_at ASC").Find(&tasks).Error
	return tasks, err
}

// GetTask gets a tenant's task by ID
func (r *TaskRepository) GetTask(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task
func (r *TaskRepository) CreateTask(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// UpdateTask applies column updates to a tenant's task and returns the row
func (r *TaskRepository) UpdateTask(ctx context.Context, tenantID, id uuid.UUID, updates map[string]interface{}) (*models.Task, error) {
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Task{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetTask(ctx, tenantID, id)
}

// LeadSourceRepository handles lead source data access
type LeadSourceRepository struct {
	db *gorm.DB
}

// NewLeadSourceRepository creates a new lead source repository
func NewLeadSourceRepository(db *gorm.DB) *LeadSourceRepository {
	return &LeadSourceRepository{db: db}
}

// LeadSourceTenant resolves an external form binding to its tenant, or nil
func (r *LeadSourceRepository) LeadSourceTenant(ctx context.Context, origin, externalID string) (*uuid.UUID, error) {
	var source models.LeadSource
	found, err := firstOrNil(r.db.WithContext(ctx).
		Select("id", "tenant_id").
		Where("origin = ? AND external_id = ?", origin, externalID), &source)
	if err != nil || !found {
		return nil, err
	}
	return &source.TenantID, nil
}

// ListLeadSources lists a tenant's lead sources, newest first
func (r *LeadSourceRepository) ListLeadSources(ctx context.Context, tenantID uuid.UUID) ([]models.LeadSource, error) {
	var sources []models.LeadSource
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&sources).Error
	return sources, err
}

// CreateLeadSource registers a lead source. The (origin, external_id) pair is
// globally unique.
func (r *LeadSourceRepository) CreateLeadSource(ctx context.Context, source *models.LeadSource) error {
	if err := r.db.WithContext(ctx).Create(source).Error; err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("This source is already registered", err)
		}
		return err
	}
	return nil
}
