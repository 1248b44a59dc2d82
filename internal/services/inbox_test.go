package services

import (
	"context"
	"testing"
	"time"

	"leadcrm/internal/apperr"
	"leadcrm/internal/auth"
	"leadcrm/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) addMessage(t *testing.T, tenantID uuid.UUID, leadID *uuid.UUID, content string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{LeadID: leadID, Content: content, Type: models.MessageInbound}
	msg.TenantID = tenantID
	msg.CreatedAt = at
	require.NoError(t, f.store.CreateMessage(context.Background(), msg))
	return msg
}

func TestConversations(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)
	owned, err := f.leads.Create(ctx, sales, CreateLeadRequest{Name: "mine"})
	require.NoError(t, err)
	unowned, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "theirs"})
	require.NoError(t, err)
	_, err = f.leads.Create(ctx, admin, CreateLeadRequest{Name: "silent"})
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	f.addMessage(t, admin.TenantID, &owned.ID, "hello", base)
	f.addMessage(t, admin.TenantID, &unowned.ID, "hi", base.Add(time.Minute))
	f.addMessage(t, admin.TenantID, &owned.ID, "again", base.Add(2*time.Minute))
	f.addMessage(t, admin.TenantID, nil, "orphan", base.Add(3*time.Minute))

	list, err := f.inbox.Conversations(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, owned.ID, list[0].LeadID)
	assert.Equal(t, "again", list[0].LastMessage.Content)
	assert.Equal(t, unowned.ID, list[1].LeadID)

	list, err = f.inbox.Conversations(ctx, sales)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Name)
}

func TestThreadAccessAndRead(t *testing.T) {
	f := newFixture(t)
	admin := f.newTenant(t, "Acme Corp", "owner@acme.test")
	other := f.newTenant(t, "Other Inc", "owner@other.test")
	ctx := context.Background()

	sales := f.addMember(t, admin.TenantID, auth.RoleSales)
	readonly := f.addMember(t, admin.TenantID, auth.RoleReadonly)
	lead, err := f.leads.Create(ctx, admin, CreateLeadRequest{Name: "theirs"})
	require.NoError(t, err)

	base := time.Now().UTC().Add(-time.Hour)
	first := f.addMessage(t, admin.TenantID, &lead.ID, "first", base)
	f.addMessage(t, admin.TenantID, &lead.ID, "second", base.Add(time.Minute))

	_, err = f.inbox.Messages(ctx, sales, lead.ID)
	assertKind(t, err, apperr.KindAuthorization)
	_, err = f.inbox.Messages(ctx, other, lead.ID)
	assertKind(t, err, apperr.KindNotFound)

	thread, err := f.inbox.Messages(ctx, readonly, lead.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "first", thread[0].Content)
	assert.False(t, thread[0].IsRead)

	// readonly may read but not flag
	assertKind(t, f.inbox.SetMessageRead(ctx, readonly, first.ID, true), apperr.KindAuthorization)
	assertKind(t, f.inbox.SetMessageRead(ctx, other, first.ID, true), apperr.KindNotFound)

	require.NoError(t, f.inbox.SetMessageRead(ctx, admin, first.ID, true))
	n, err := f.inbox.MarkRead(ctx, admin, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, int64(0), f.count(t, &models.Message{}, "lead_id = ? AND is_read = ?", lead.ID, false))
}
