package services

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"leadcrm/internal/config"
	"leadcrm/internal/quota"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestPayloadArchive(t *testing.T) {
	client := &fakeS3{}
	archive := NewPayloadArchiveWithClient(client, "crm-archive")
	archive.now = func() time.Time { return time.Date(2026, 4, 9, 23, 0, 0, 0, time.UTC) }
	tenantID := uuid.New()

	key, err := archive.Archive(context.Background(), "whatsapp", tenantID, []byte(`{"object":"whatsapp_business_account"}`))
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^webhooks/whatsapp/` + tenantID.String() + `/2026/04/09/[0-9a-f-]{36}\.json$`)
	assert.Regexp(t, pattern, key)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "crm-archive", aws.StringValue(client.puts[0].Bucket))
	assert.Equal(t, key, aws.StringValue(client.puts[0].Key))
	assert.Equal(t, "application/json", aws.StringValue(client.puts[0].ContentType))
	assert.JSONEq(t, `{"object":"whatsapp_business_account"}`, string(client.body))
}

func TestPayloadArchiveError(t *testing.T) {
	archive := NewPayloadArchiveWithClient(&fakeS3{err: errors.New("boom")}, "b")
	_, err := archive.Archive(context.Background(), "meta", uuid.New(), []byte(`{}`))
	assert.ErrorContains(t, err, "boom")
}

func TestNewPayloadArchiveRequiresSettings(t *testing.T) {
	_, err := NewPayloadArchive(config.S3Config{Bucket: "b"})
	assert.Error(t, err)

	archive, err := NewPayloadArchive(config.S3Config{
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "b",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	assert.NotNil(t, archive)
}

func TestUsageSyncCountsTenantsAtCeiling(t *testing.T) {
	f := newFixture(t)
	full := f.newTenant(t, "Full Co", "owner@full.test")
	f.newTenant(t, "Roomy Co", "owner@roomy.test")
	f.setCeiling(t, full.TenantID, "max_users", 1)
	f.setCeiling(t, full.TenantID, "max_leads", 1)
	ctx := context.Background()

	_, err := f.leads.Create(ctx, full, CreateLeadRequest{Name: "only one"})
	require.NoError(t, err)

	syncer := NewUsageSyncService(f.store, f.guard, nil, time.Minute)
	got := syncer.SyncOnce(ctx)
	assert.Equal(t, 1, got[quota.Leads])
	assert.Equal(t, 1, got[quota.Users])

	status := syncer.GetSyncStatus()
	assert.Equal(t, false, status["is_running"])
	assert.Contains(t, status, "last_sync")
}
