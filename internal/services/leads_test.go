package services

import (
	"context"
	"encoding/json"
	"testing"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/internal/realtime"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignTo(id uuid.UUID) OptionalUUID {
	return OptionalUUID{Set: true, Value: &id}
}

func TestCreateLeadOnFirstStage(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	lead, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: " Jane ", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", lead.Name)
	assert.Equal(t, models.OriginManual, lead.Origin)
	assert.Nil(t, lead.AssignedToUserID)

	first, err := f.store.FirstStageID(ctx, admin.TenantID)
	require.NoError(t, err)
	require.NotNil(t, lead.StageID)
	assert.Equal(t, *first, *lead.StageID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, realtime.EventLeadCreated, f.publisher.events[0].Type)
	assert.Equal(t, admin.TenantID, f.publisher.events[0].TenantID)
}

func TestCreateLeadRoleGates(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	for _, role := range []auth.Role{auth.RoleSupport, auth.RoleReadonly} {
		member := f.addMember(t, admin.TenantID, role)
		_, err := f.leads.Create(ctx, member, CreateLeadRequest{Name: "x"})
		assertKind(t, err, apperr.KindAuthorization)
	}
	assert.Equal(t, int64(0), f.count(t, &models.Lead{}, "tenant_id = ?", admin.TenantID))
}

func TestCreateLeadAssignment(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)
	colleague := f.addMember(t, admin.TenantID, auth.RoleSales)

	// sales always own what they create
	lead, err := f.leads.Create(ctx, sales, CreateLeadRequest{Name: "a", AssignedToUserID: assignTo(colleague.UserID)})
	require.NoError(t, err)
	require.NotNil(t, lead.AssignedToUserID)
	assert.Equal(t, sales.UserID, *lead.AssignedToUserID)

	lead, err = f.leads.Create(ctx, admin, CreateLeadRequest{Name: "b", AssignedToUserID: assignTo(colleague.UserID)})
	require.NoError(t, err)
	require.NotNil(t, lead.AssignedToUserID)
	assert.Equal(t, colleague.UserID, *lead.AssignedToUserID)

	_, err = f.leads.Create(ctx, admin, CreateLeadRequest{Name: "c", AssignedToUserID: assignTo(other.UserID)})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.leads.Create(ctx, admin, CreateLeadRequest{Name: "d", AssignedToUserID: OptionalUUID{Set: true, Invalid: true}})
	assertKind(t, err, apperr.KindValidation)
}

func TestCreateLeadQuota(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	f.setCeiling(t, admin.TenantID, "max_leads", 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "lead"})
		require.NoError(t, err)
	}

	_, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "one too many"})
	assertKind(t, err, apperr.KindQuotaExceeded)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, int64(2), ae.Current)
	assert.Equal(t, int64(2), ae.Max)
	assert.Equal(t, int64(2), f.count(t, &models.Lead{}, "tenant_id = ?", admin.TenantID))
}

func TestListLeadsScopedBySalesAndOrigin(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)

	_, err := f.leads.Create(ctx, sales, CreateLeadRequest{Name: "mine"})
	require.NoError(t, err)
	_, err = f.leads.Create(ctx, admin, CreateLeadRequest{Name: "unassigned"})
	require.NoError(t, err)
	_, err = f.leads.Create(ctx, other, CreateLeadRequest{Name: "foreign"})
	require.NoError(t, err)

	all, err := f.leads.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, l := range all {
		assert.Equal(t, SLAGreen, l.SLAStatus)
	}

	mine, err := f.leads.List(ctx, sales, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine", mine[0].Name)

	meta, err := f.leads.List(ctx, admin, models.OriginMeta)
	require.NoError(t, err)
	assert.Empty(t, meta)

	_, err = f.leads.List(ctx, admin, "fax")
	assertKind(t, err, apperr.KindValidation)
}

func TestLeadViewJSON(t *testing.T) {
	view := LeadView{Lead: models.Lead{Name: "x"}, SLAStatus: SLARed, SLAMinutes: 75}
	b, err := json.Marshal(view)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "x", out["name"])
	assert.Equal(t, "red", out["sla_status"])
	assert.Equal(t, float64(75), out["sla_minutes"])
}

func TestUpdateLeadOwnership(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)
	lead, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "unowned"})
	require.NoError(t, err)

	stages, err := f.store.ListStages(ctx, admin.TenantID)
	require.NoError(t, err)
	won := stages[4].ID

	_, err = f.leads.Update(ctx, sales, lead.ID, UpdateLeadRequest{StageID: assignTo(won)})
	assertKind(t, err, apperr.KindAuthorization)

	// another tenant's admin cannot tell the lead exists
	_, err = f.leads.Update(ctx, other, lead.ID, UpdateLeadRequest{StageID: OptionalUUID{Set: true}})
	assertKind(t, err, apperr.KindNotFound)

	otherStages, err := f.store.ListStages(ctx, other.TenantID)
	require.NoError(t, err)
	_, err = f.leads.Update(ctx, admin, lead.ID, UpdateLeadRequest{StageID: assignTo(otherStages[0].ID)})
	assertKind(t, err, apperr.KindValidation)

	updated, err := f.leads.Update(ctx, admin, lead.ID, UpdateLeadRequest{
		StageID:          assignTo(won),
		AssignedToUserID: assignTo(sales.UserID),
	})
	require.NoError(t, err)
	assert.Equal(t, won, *updated.StageID)
	assert.Equal(t, sales.UserID, *updated.AssignedToUserID)

	// now owned, sales can move it but not reassign it
	updated, err = f.leads.Update(ctx, sales, lead.ID, UpdateLeadRequest{
		StageID:          OptionalUUID{Set: true},
		AssignedToUserID: OptionalUUID{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.StageID)
	require.NotNil(t, updated.AssignedToUserID)
	assert.Equal(t, sales.UserID, *updated.AssignedToUserID)
}

func TestDeleteLead(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	support := f.addMember(t, admin.TenantID, auth.RoleSupport)
	lead, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "x"})
	require.NoError(t, err)

	assertKind(t, f.leads.Delete(ctx, support, lead.ID), apperr.KindAuthorization)
	assertKind(t, f.leads.Delete(ctx, other, lead.ID), apperr.KindNotFound)
	assertKind(t, f.leads.Delete(ctx, admin, uuid.New()), apperr.KindNotFound)

	require.NoError(t, f.leads.Delete(ctx, admin, lead.ID))
	assert.Equal(t, int64(0), f.count(t, &models.Lead{}, "id = ?", lead.ID))
}

func TestDeleteLeadCleansUpDependents(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	lead, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "Ana"})
	require.NoError(t, err)
	keep, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "Bruno"})
	require.NoError(t, err)

	for _, leadID := range []uuid.UUID{lead.ID, keep.ID} {
		id := leadID
		task := &models.Task{LeadID: &id, Title: "call back"}
		task.TenantID = admin.TenantID
		require.NoError(t, f.db.Create(task).Error)
		msg := &models.Message{LeadID: &id, Content: "hola", Type: models.MessageInbound}
		msg.TenantID = admin.TenantID
		require.NoError(t, f.db.Create(msg).Error)
	}

	require.NoError(t, f.leads.Delete(ctx, admin, lead.ID))

	assert.Zero(t, f.count(t, &models.Task{}, "lead_id = ?", lead.ID))
	assert.Zero(t, f.count(t, &models.Message{}, "lead_id = ?", lead.ID))
	assert.Equal(t, int64(1), f.count(t, &models.Message{}, "lead_id IS NULL"))

	assert.Equal(t, int64(1), f.count(t, &models.Task{}, "lead_id = ?", keep.ID))
	assert.Equal(t, int64(1), f.count(t, &models.Message{}, "lead_id = ?", keep.ID))
}
