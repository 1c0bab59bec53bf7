package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/repository"
	"github.com/northpages/contentsync/internal/source"
	contentsync "github.com/northpages/contentsync/internal/sync"
	"github.com/northpages/contentsync/internal/tenant"
)

func newTestProcessor(t *testing.T, sourceURL string) (*Processor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	tenants := repository.NewTenantRepository(db, log)
	content := repository.NewContentRepository(db, log)
	verifications := repository.NewVerificationRepository(db, log)

	src := source.NewClient(source.Config{BaseURL: sourceURL, Version: "2022-06-28"}, log)
	pipeline := contentsync.NewPipeline(src, content, nil, log)
	resolver := tenant.NewResolver(tenants, log)

	return NewProcessor(resolver, src, pipeline, content, tenants, verifications, nil, log), mock
}

func listRows(tenants ...*models.Tenant) *sqlmock.Rows {
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

func pageEvent(eventType, pageID, databaseID string) *Event {
	e := &Event{Type: eventType}
	e.Entity.ID = pageID
	e.Entity.Type = "page"
	e.Data.Parent.ID = databaseID
	e.Data.Parent.Type = "database"
	return e
}

func TestProcess_VerificationEchoesChallenge(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	// Explicit tenant pins resolution.
	mock.ExpectQuery("SELECT .+ FROM tenants WHERE id").
		WithArgs("t-1").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme"}))
	mock.ExpectExec("UPDATE tenants SET webhook_token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO webhook_verifications").
		WithArgs(sqlmock.AnyArg(), "t-1", "challenge-abc", TypeURLVerification, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &Event{Type: TypeURLVerification, Challenge: "challenge-abc"}
	result, err := p.Process(context.Background(), "t-1", event)

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "challenge-abc", result.Challenge)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_VerificationWithoutTenantStillRecorded(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	mock.ExpectQuery("SELECT .+ FROM tenants WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT .+ FROM tenants WHERE slug").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO webhook_verifications").
		WithArgs(sqlmock.AnyArg(), nil, "tok-xyz", TypeURLVerification, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &Event{Type: TypeURLVerification, Challenge: "tok-xyz"}
	result, err := p.Process(context.Background(), "ghost", event)

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "tok-xyz", result.Challenge)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_UnresolvedTenantAcknowledged(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows())

	result, err := p.Process(context.Background(), "", pageEvent(TypePageCreated, "page-1", "db-unknown"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "no matching tenant", result.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_PageDeletedMarksRemoved(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))
	mock.ExpectExec("UPDATE content_items SET status").
		WithArgs("t-1", "page-1", models.StatusRemoved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageDeleted, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "content removed", result.Message)
	assert.Equal(t, "page-1", result.PageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_PageDeletedAlreadyGone(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))
	mock.ExpectExec("UPDATE content_items SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageDeleted, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "page already removed", result.Message)
}

func TestProcess_MovedPageNotFoundCorroboratesRemoval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code": "object_not_found", "message": "page gone"}`))
	}))
	defer server.Close()

	p, mock := newTestProcessor(t, server.URL)

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))
	mock.ExpectExec("UPDATE content_items SET status").
		WithArgs("t-1", "page-1", models.StatusRemoved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageMoved, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "content removed", result.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_MovedOutOfDatabaseMarksRemoved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "page-1", "parent": {"type": "database_id", "database_id": "db-other"}}`))
	}))
	defer server.Close()

	p, mock := newTestProcessor(t, server.URL)

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))
	mock.ExpectExec("UPDATE content_items SET status").
		WithArgs("t-1", "page-1", models.StatusRemoved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageMoved, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "content removed", result.Message)
}

func TestProcess_UndeletedUnfetchableFlipsStatusOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code": "internal_server_error"}`))
	}))
	defer server.Close()

	p, mock := newTestProcessor(t, server.URL)

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))
	mock.ExpectExec("UPDATE content_items SET status").
		WithArgs("t-1", "page-1", models.StatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageUndeleted, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "content restored", result.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_UpsertFetchFailureStillSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code": "internal_server_error"}`))
	}))
	defer server.Close()

	p, mock := newTestProcessor(t, server.URL)

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))

	result, err := p.Process(context.Background(), "", pageEvent(TypePageContentUpdate, "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "page not fetchable", result.Message)
}

func TestProcess_UnknownEventTypeAcknowledged(t *testing.T) {
	p, mock := newTestProcessor(t, "http://unused.invalid")

	mock.ExpectQuery("SELECT .+ FROM tenants ORDER BY slug").
		WillReturnRows(listRows(&models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1"}))

	result, err := p.Process(context.Background(), "", pageEvent("page.locked", "page-1", "db-1"))

	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "event type not handled", result.Message)
}

func TestEventHelpers(t *testing.T) {
	assert.True(t, (&Event{Type: TypeURLVerification}).IsVerification())
	assert.True(t, (&Event{Token: "tok"}).IsVerification())
	assert.False(t, (&Event{Type: TypePageCreated}).IsVerification())

	assert.True(t, (&Event{Type: TypePageDeleted}).ImpliesDeletion())
	assert.True(t, (&Event{Type: TypePageMoved}).ImpliesDeletion())
	assert.False(t, (&Event{Type: TypePageUndeleted}).ImpliesDeletion())

	e := pageEvent(TypePageCreated, "p", "db-9")
	assert.Equal(t, "db-9", e.SourceDatabaseID())
	e.Data.Parent.Type = "page"
	assert.Empty(t, e.SourceDatabaseID())
}
