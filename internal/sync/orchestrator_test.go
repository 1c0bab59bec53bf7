package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpages/contentsync/internal/models"
)

// fakeDatabase serves a two-request paginated database query followed by
// empty block trees for every returned page.
func fakeDatabase(t *testing.T, queryCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/databases/db-1/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		if queryCalls.Add(1) == 1 {
			assert.Nil(t, body["start_cursor"])
			_, _ = w.Write([]byte(`{
				"results": [{"id": "p1", "url": "https://s/p1"}, {"id": "p2", "url": "https://s/p2"}],
				"has_more": true, "next_cursor": "cur-2"
			}`))
			return
		}
		assert.Equal(t, "cur-2", body["start_cursor"])
		_, _ = w.Write([]byte(`{"results": [{"id": "p3", "url": "https://s/p3"}], "has_more": false}`))
	})
	mux.HandleFunc("/blocks/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [], "has_more": false}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func upsertResult(id string, created bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at", "is_insert"}).
		AddRow(id, time.Now(), created)
}

func TestOrchestratorRun(t *testing.T) {
	var queryCalls atomic.Int32
	server := fakeDatabase(t, &queryCalls)

	p, mock := newTestPipeline(t, server.URL, nil)
	o := NewOrchestrator(p.source, p, nil, nil, p.logger, 2, 1)

	// Concurrency 1 keeps upserts in enumeration order: p1 and p2 are
	// new rows, p3 already exists.
	mock.ExpectQuery("INSERT INTO content_items").WillReturnRows(upsertResult("i1", true))
	mock.ExpectQuery("INSERT INTO content_items").WillReturnRows(upsertResult("i2", true))
	mock.ExpectQuery("INSERT INTO content_items").WillReturnRows(upsertResult("i3", false))

	tenant := &models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1", SourceAPIKey: "key"}
	stats, err := o.Run(context.Background(), tenant)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPages)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, int32(2), queryCalls.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorRun_PageFailureCountedNotFatal(t *testing.T) {
	var queryCalls atomic.Int32
	server := fakeDatabase(t, &queryCalls)

	p, mock := newTestPipeline(t, server.URL, nil)
	o := NewOrchestrator(p.source, p, nil, nil, p.logger, 10, 1)

	mock.ExpectQuery("INSERT INTO content_items").WillReturnRows(upsertResult("i1", true))
	mock.ExpectQuery("INSERT INTO content_items").WillReturnError(assert.AnError)
	mock.ExpectQuery("INSERT INTO content_items").WillReturnRows(upsertResult("i3", false))

	tenant := &models.Tenant{ID: "t-1", Slug: "acme", SourceDatabaseID: "db-1", SourceAPIKey: "key"}
	stats, err := o.Run(context.Background(), tenant)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPages)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrchestratorRun_EnumerationErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code": "bad_gateway"}`))
	}))
	defer server.Close()

	p, _ := newTestPipeline(t, server.URL, nil)
	o := NewOrchestrator(p.source, p, nil, nil, p.logger, 10, 2)

	tenant := &models.Tenant{ID: "t-1", SourceDatabaseID: "db-1", SourceAPIKey: "key"}
	stats, err := o.Run(context.Background(), tenant)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerate source database")
	assert.Equal(t, 0, stats.TotalPages)
}
