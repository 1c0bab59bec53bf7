package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpages/contentsync/internal/repository"
	"github.com/northpages/contentsync/internal/testhelpers"
)

func contentRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := testhelpers.NewTestLogger()
	h := NewContentHandler(repository.NewContentRepository(db, log), log)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/content/:tenantId", h.List)
	r.GET("/content/:tenantId/:pageId", h.GetByPageID)
	r.POST("/content/:tenantId/:pageId/visit", h.RecordVisit)
	return r, mock
}

func contentRow(pageID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "source_page_id", "source_url", "title", "description",
		"category", "tags", "blocks", "cover_url", "preview_url", "status", "visitors",
		"embedding", "created_at", "updated_at",
	}).AddRow("item-1", "t-1", pageID, "https://s/"+pageID, "Title", "",
		"", []byte(`[]`), []byte(`[]`), "", "", "active", 0, nil, now, now)
}

func TestContentList(t *testing.T) {
	r, mock := contentRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM content_items").
		WithArgs("t-1").
		WillReturnRows(contentRow("page-1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/content/t-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), `"source_page_id":"page-1"`)
}

func TestContentGetByPageID_NotFound(t *testing.T) {
	r, mock := contentRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM content_items").
		WithArgs("t-1", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/content/t-1/ghost", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentRecordVisit(t *testing.T) {
	r, mock := contentRouter(t)
	mock.ExpectExec("UPDATE content_items SET visitors").
		WithArgs("t-1", "page-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/content/t-1/page-1/visit", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
