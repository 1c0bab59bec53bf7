package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/northpages/contentsync/internal/logger"
	"github.com/northpages/contentsync/internal/models"
)

// VerificationRepository records provider subscription-verification
// challenges.
type VerificationRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewVerificationRepository creates a verification repository.
func NewVerificationRepository(db *sql.DB, log logger.Logger) *VerificationRepository {
	return &VerificationRepository{db: db, logger: log}
}

// Record stores a verification token. TenantID may be empty when the
// challenge could not be attributed to a tenant.
func (r *VerificationRepository) Record(ctx context.Context, v *models.WebhookVerification) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.ReceivedAt.IsZero() {
		v.ReceivedAt = time.Now()
	}

	var tenantID any
	if v.TenantID != "" {
		tenantID = v.TenantID
	}

	query := `
		INSERT INTO webhook_verifications (id, tenant_id, token, challenge_type, received_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, v.ID, tenantID, v.Token, v.ChallengeType, v.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert webhook verification: %w", err)
	}
	return nil
}
