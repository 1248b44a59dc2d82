package authz

import (
	"context"
	"errors"
	"testing"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLead struct {
	tenantID uuid.UUID
	assignee *uuid.UUID
}

type fakeTask struct {
	tenantID uuid.UUID
	leadID   *uuid.UUID
}

type countingStore struct {
	leads map[uuid.UUID]fakeLead
	tasks map[uuid.UUID]fakeTask
	users map[uuid.UUID]uuid.UUID
	err   error
	calls int
}

func newCountingStore() *countingStore {
	return &countingStore{
		leads: map[uuid.UUID]fakeLead{},
		tasks: map[uuid.UUID]fakeTask{},
		users: map[uuid.UUID]uuid.UUID{},
	}
}

func (s *countingStore) LeadAssignee(_ context.Context, tenantID, leadID uuid.UUID) (*uuid.UUID, bool, error) {
	s.calls++
	if s.err != nil {
		return nil, false, s.err
	}
	l, ok := s.leads[leadID]
	if !ok || l.tenantID != tenantID {
		return nil, false, nil
	}
	return l.assignee, true, nil
}

func (s *countingStore) TaskLeadID(_ context.Context, tenantID, taskID uuid.UUID) (*uuid.UUID, bool, error) {
	s.calls++
	t, ok := s.tasks[taskID]
	if !ok || t.tenantID != tenantID {
		return nil, false, nil
	}
	return t.leadID, true, nil
}

func (s *countingStore) UserInTenant(_ context.Context, tenantID, userID uuid.UUID) (bool, error) {
	s.calls++
	return s.users[userID] == tenantID, nil
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestWriteChecksFailFastForSupportAndReadonly(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	leadID := uuid.New()
	taskID := uuid.New()

	for _, role := range []auth.Role{auth.RoleSupport, auth.RoleReadonly} {
		t.Run(string(role), func(t *testing.T) {
			store := newCountingStore()
			store.leads[leadID] = fakeLead{tenantID: tenant}
			store.tasks[taskID] = fakeTask{tenantID: tenant}
			engine := NewEngine(store)
			actor := Actor{UserID: uuid.New(), TenantID: tenant, Role: role}

			d, err := engine.CanUpdateLead(ctx, actor, leadID)
			require.NoError(t, err)
			assert.Equal(t, Forbidden, d)

			d, err = engine.CanDeleteLead(ctx, actor, leadID)
			require.NoError(t, err)
			assert.Equal(t, Forbidden, d)

			d, err = engine.CanUpdateTask(ctx, actor, taskID)
			require.NoError(t, err)
			assert.Equal(t, Forbidden, d)

			assert.Zero(t, store.calls, "no store lookup expected")
		})
	}
}

func TestAdminAndManagerSkipLookup(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	engine := NewEngine(store)

	for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleManager} {
		actor := Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: role}
		d, err := engine.CanUpdateLead(ctx, actor, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, Allowed, d)

		d, err = engine.CanUpdateTask(ctx, actor, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, Allowed, d)
	}
	assert.Zero(t, store.calls)
}

func TestSalesLeadOwnership(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	rep := uuid.New()
	other := uuid.New()

	store := newCountingStore()
	own := uuid.New()
	theirs := uuid.New()
	unassigned := uuid.New()
	foreign := uuid.New()
	store.leads[own] = fakeLead{tenantID: tenant, assignee: ptr(rep)}
	store.leads[theirs] = fakeLead{tenantID: tenant, assignee: ptr(other)}
	store.leads[unassigned] = fakeLead{tenantID: tenant}
	store.leads[foreign] = fakeLead{tenantID: uuid.New(), assignee: ptr(rep)}

	engine := NewEngine(store)
	actor := Actor{UserID: rep, TenantID: tenant, Role: auth.RoleSales}

	tests := []struct {
		name string
		lead uuid.UUID
		want Decision
	}{
		{"own lead", own, Allowed},
		{"someone else's lead", theirs, Forbidden},
		{"unassigned lead", unassigned, Forbidden},
		{"other tenant", foreign, NotFound},
		{"missing", uuid.New(), NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.calls = 0
			d, err := engine.CanUpdateLead(ctx, actor, tt.lead)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)

			d, err = engine.CanDeleteLead(ctx, actor, tt.lead)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, 2, store.calls)
		})
	}
}

func TestSalesTaskOwnership(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	rep := uuid.New()

	store := newCountingStore()
	ownLead := uuid.New()
	otherLead := uuid.New()
	store.leads[ownLead] = fakeLead{tenantID: tenant, assignee: ptr(rep)}
	store.leads[otherLead] = fakeLead{tenantID: tenant, assignee: ptr(uuid.New())}

	standalone := uuid.New()
	onOwn := uuid.New()
	onOther := uuid.New()
	store.tasks[standalone] = fakeTask{tenantID: tenant}
	store.tasks[onOwn] = fakeTask{tenantID: tenant, leadID: ptr(ownLead)}
	store.tasks[onOther] = fakeTask{tenantID: tenant, leadID: ptr(otherLead)}

	engine := NewEngine(store)
	actor := Actor{UserID: rep, TenantID: tenant, Role: auth.RoleSales}

	tests := []struct {
		name string
		task uuid.UUID
		want Decision
	}{
		{"standalone", standalone, Allowed},
		{"own lead", onOwn, Allowed},
		{"other lead", onOther, Forbidden},
		{"missing", uuid.New(), NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.CanUpdateTask(ctx, actor, tt.task)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestCanReadLead(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	rep := uuid.New()
	store := newCountingStore()
	leadID := uuid.New()
	store.leads[leadID] = fakeLead{tenantID: tenant, assignee: ptr(uuid.New())}
	engine := NewEngine(store)

	d, err := engine.CanReadLead(ctx, Actor{UserID: rep, TenantID: tenant, Role: auth.RoleSupport}, leadID)
	require.NoError(t, err)
	assert.Equal(t, Allowed, d)

	d, err = engine.CanReadLead(ctx, Actor{UserID: rep, TenantID: tenant, Role: auth.RoleSales}, leadID)
	require.NoError(t, err)
	assert.Equal(t, Forbidden, d)

	d, err = engine.CanReadLead(ctx, Actor{UserID: rep, TenantID: uuid.New(), Role: auth.RoleAdmin}, leadID)
	require.NoError(t, err)
	assert.Equal(t, NotFound, d)
}

func TestStoreErrorPropagates(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("connection reset")
	engine := NewEngine(store)

	_, err := engine.CanUpdateLead(context.Background(), Actor{Role: auth.RoleSales}, uuid.New())
	assert.ErrorIs(t, err, store.err)
}

func TestIsUserInTenant(t *testing.T) {
	store := newCountingStore()
	tenant := uuid.New()
	member := uuid.New()
	outsider := uuid.New()
	store.users[member] = tenant
	store.users[outsider] = uuid.New()
	engine := NewEngine(store)

	ok, err := engine.IsUserInTenant(context.Background(), tenant, member)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.IsUserInTenant(context.Background(), tenant, outsider)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleGates(t *testing.T) {
	tests := []struct {
		role          auth.Role
		readOnly      bool
		writeLeads    bool
		setAssignment bool
		manageUsers   bool
	}{
		{auth.RoleAdmin, false, true, true, true},
		{auth.RoleManager, false, true, true, false},
		{auth.RoleSales, false, true, false, false},
		{auth.RoleSupport, false, false, false, false},
		{auth.RoleReadonly, true, false, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.readOnly, IsReadOnly(tt.role))
			assert.Equal(t, tt.writeLeads, CanWriteLeads(tt.role))
			assert.Equal(t, tt.setAssignment, CanSetLeadAssignment(tt.role))
			assert.Equal(t, tt.manageUsers, CanManageUsers(tt.role))
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Allowed.Err("Lead"))
	assert.True(t, apperr.Is(Forbidden.Err("Lead"), apperr.KindAuthorization))

	err := NotFound.Err("Task")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "Task not found")
}
