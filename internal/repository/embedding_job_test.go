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

func newJobRepo(t *testing.T) (*EmbeddingJobRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEmbeddingJobRepository(db, logger.NewNop()), mock
}

func jobRows(id string, status models.JobStatus, startedAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "status", "started_at", "completed_at",
		"total_items", "items_processed", "error_detail", "created_at", "updated_at",
	})
	var started any
	if startedAt != nil {
		started = *startedAt
	}
	return rows.AddRow(id, "tenant-1", status, started, nil, 10, 0, "", now, now)
}

func TestEmbeddingJobRepository_Create(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("INSERT INTO embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.EmbeddingJob{TenantID: "tenant-1", TotalItems: 10}
	require.NoError(t, repo.Create(context.Background(), job))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingJobRepository_LatestCompleted(t *testing.T) {
	repo, mock := newJobRepo(t)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WithArgs("tenant-1", models.JobCompleted).
		WillReturnRows(jobRows("job-1", models.JobCompleted, &started))

	job, err := repo.LatestCompleted(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, job.StartedAt)
	assert.True(t, job.StartedAt.Equal(started))
}

func TestEmbeddingJobRepository_LatestCompletedNone(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LatestCompleted(context.Background(), "tenant-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEmbeddingJobRepository_MarkProcessing(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessing(context.Background(), "job-1", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingJobRepository_AddProgressOnTerminalJob(t *testing.T) {
	repo, mock := newJobRepo(t)

	// The guarded update matches nothing; the follow-up lookup finds the
	// job in a terminal state.
	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WillReturnRows(jobRows("job-1", models.JobCompleted, nil))

	err := repo.AddProgress(context.Background(), "job-1", 5)
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestEmbeddingJobRepository_AddProgressMissingJob(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := repo.AddProgress(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEmbeddingJobRepository_SetTotalItems(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WithArgs("job-1", 7, sqlmock.AnyArg(), models.JobPending, models.JobProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetTotalItems(context.Background(), "job-1", 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddingJobRepository_SetTotalItemsOnTerminalJob(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WillReturnRows(jobRows("job-1", models.JobCompleted, nil))

	err := repo.SetTotalItems(context.Background(), "job-1", 7)
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestEmbeddingJobRepository_FinishRejectsNonTerminal(t *testing.T) {
	repo, _ := newJobRepo(t)

	err := repo.Finish(context.Background(), "job-1", models.JobProcessing, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a terminal status")
}

func TestEmbeddingJobRepository_FinishTerminalImmutable(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT .+ FROM embedding_jobs").
		WillReturnRows(jobRows("job-1", models.JobError, nil))

	err := repo.Finish(context.Background(), "job-1", models.JobCompleted, "")
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestEmbeddingJobRepository_Finish(t *testing.T) {
	repo, mock := newJobRepo(t)

	mock.ExpectExec("UPDATE embedding_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finish(context.Background(), "job-1", models.JobPartialSuccess, "2 items failed")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
