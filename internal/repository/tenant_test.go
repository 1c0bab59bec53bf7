package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

func newTenantRepo(t *testing.T) (*TenantRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTenantRepository(db, logger.NewNop()), mock
}

func tenantRows(tenants ...*models.Tenant) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "slug", "source_database_id", "source_api_key",
		"webhook_token", "created_at", "updated_at",
	})
	for _, tn := range tenants {
		rows.AddRow(tn.ID, tn.Slug, tn.SourceDatabaseID, tn.SourceAPIKey,
			tn.WebhookToken, time.Now(), time.Now())
	}
	return rows
}

func TestTenantRepository_Create(t *testing.T) {
	repo, mock := newTenantRepo(t)

	mock.ExpectExec("INSERT INTO tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tenant := &models.Tenant{Slug: "acme", SourceDatabaseID: "db-1", SourceAPIKey: "secret"}
	require.NoError(t, repo.Create(context.Background(), tenant))

	assert.NotEmpty(t, tenant.ID)
	assert.False(t, tenant.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantRepository_GetBySlug(t *testing.T) {
	repo, mock := newTenantRepo(t)

	mock.ExpectQuery("SELECT .+ FROM tenants WHERE slug").
		WithArgs("acme").
		WillReturnRows(tenantRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))

	tenant, err := repo.GetBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "t-1", tenant.ID)
}

func TestTenantRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newTenantRepo(t)

	mock.ExpectQuery("SELECT .+ FROM tenants WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestTenantRepository_List(t *testing.T) {
	repo, mock := newTenantRepo(t)

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(tenantRows(
			&models.Tenant{ID: "t-1", Slug: "acme"},
			&models.Tenant{ID: "t-2", Slug: "globex"},
		))

	tenants, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "acme", tenants[0].Slug)
}

func TestTenantRepository_UpdateWebhookToken(t *testing.T) {
	repo, mock := newTenantRepo(t)

	mock.ExpectExec("UPDATE tenants SET webhook_token").
		WithArgs("t-1", "tok-123", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateWebhookToken(context.Background(), "t-1", "tok-123"))

	mock.ExpectExec("UPDATE tenants SET webhook_token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateWebhookToken(context.Background(), "missing", "tok-123")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestVerificationRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewVerificationRepository(db, logger.NewNop())

	// Attributed challenge.
	mock.ExpectExec("INSERT INTO webhook_verifications").
		WithArgs(sqlmock.AnyArg(), "t-1", "tok-123", "url_verification", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), &models.WebhookVerification{
		TenantID:      "t-1",
		Token:         "tok-123",
		ChallengeType: "url_verification",
	}))

	// Unattributed challenge stores a null tenant id.
	mock.ExpectExec("INSERT INTO webhook_verifications").
		WithArgs(sqlmock.AnyArg(), nil, "tok-456", "url_verification", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), &models.WebhookVerification{
		Token:         "tok-456",
		ChallengeType: "url_verification",
	}))

	assert.NoError(t, mock.ExpectationsWereMet())
}
