package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync frequency values accepted on a credential.
const (
	SyncFrequencyDaily  = "daily"
	SyncFrequencyWeekly = "weekly"
	SyncFrequencyManual = "manual"
)

// Sync outcome values recorded on a credential after a run.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// Credential is a stored storefront API key for one connected account.
// The key is encrypted at rest and never leaves the server in responses;
// KeyDisplay carries a masked form for the admin UI.
type Credential struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Name           string     `db:"name" json:"name"`
	EncryptedKey   string     `db:"encrypted_key" json:"-"`
	KeyDisplay     string     `db:"-" json:"key_display,omitempty"`
	BaseURL        string     `db:"base_url" json:"base_url"`
	AutoSync       bool       `db:"auto_sync" json:"auto_sync"`
	SyncFrequency  string     `db:"sync_frequency" json:"sync_frequency"`
	Active         bool       `db:"active" json:"active"`
	LastSyncAt     *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	LastSyncStatus *string    `db:"last_sync_status" json:"last_sync_status,omitempty"`
	LastSyncError  *string    `db:"last_sync_error" json:"last_sync_error,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateCredentialRequest is the payload for connecting a new storefront account.
type CreateCredentialRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=255"`
	APIKey         string `json:"api_key" binding:"required"`
	BaseURL        string `json:"base_url,omitempty" binding:"omitempty,url"`
	AutoSync       *bool  `json:"auto_sync,omitempty"`
	SyncFrequency  string `json:"sync_frequency,omitempty" binding:"omitempty,oneof=daily weekly manual"`
	SkipValidation bool   `json:"skip_validation,omitempty"`
}

// UpdateCredentialRequest carries partial updates; nil fields are left unchanged.
type UpdateCredentialRequest struct {
	Name          *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	APIKey        *string `json:"api_key,omitempty"`
	BaseURL       *string `json:"base_url,omitempty" binding:"omitempty,url"`
	AutoSync      *bool   `json:"auto_sync,omitempty"`
	SyncFrequency *string `json:"sync_frequency,omitempty" binding:"omitempty,oneof=daily weekly manual"`
	Active        *bool   `json:"active,omitempty"`
}

// SyncRun is one recorded execution of a catalog sync for a credential.
type SyncRun struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CredentialID   uuid.UUID  `db:"credential_id" json:"credential_id"`
	TriggeredBy    string     `db:"triggered_by" json:"triggered_by"`
	Status         string     `db:"status" json:"status"`
	ProductsSynced int        `db:"products_synced" json:"products_synced"`
	ServicesSynced int        `db:"services_synced" json:"services_synced"`
	LinksSynced    int        `db:"links_synced" json:"links_synced"`
	ErrorMessage   *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Sync run trigger sources.
const (
	SyncTriggerManual    = "manual"
	SyncTriggerScheduler = "scheduler"
)
