package models

import "time"

// Tenant is an account owning one external source database and one content
// namespace. SourceDatabaseID is the only mapping from inbound webhook
// payloads to a tenant; there is deliberately no secondary lookup table.
type Tenant struct {
	ID               string    `json:"id" db:"id"`
	Slug             string    `json:"slug" db:"slug"`
	SourceDatabaseID string    `json:"source_database_id" db:"source_database_id"`
	SourceAPIKey     string    `json:"-" db:"source_api_key"`
	WebhookToken     string    `json:"-" db:"webhook_token"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// WebhookVerification records a provider subscription-verification
// challenge. TenantID is empty when the challenge could not be attributed
// to a tenant.
type WebhookVerification struct {
	ID            string    `json:"id" db:"id"`
	TenantID      string    `json:"tenant_id,omitempty" db:"tenant_id"`
	Token         string    `json:"token" db:"token"`
	ChallengeType string    `json:"challenge_type" db:"challenge_type"`
	ReceivedAt    time.Time `json:"received_at" db:"received_at"`
}
