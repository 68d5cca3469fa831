// credential_repository.go provides database operations for stored storefront
// credentials and their sync run history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/catalog-sync/catalog-sync/internal/db/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CredentialRepository handles database operations for credentials.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const credentialColumns = `id, user_id, name, encrypted_key, base_url, auto_sync,
	       sync_frequency, active, last_sync_at, last_sync_status, last_sync_error,
	       created_at, updated_at`

// Create inserts a new credential row and returns it with db-generated fields populated.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	query := `
		INSERT INTO credentials (
			id, user_id, name, encrypted_key, base_url, auto_sync,
			sync_frequency, active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING ` + credentialColumns

	return r.db.QueryRowContext(ctx, query,
		cred.ID,
		cred.UserID,
		cred.Name,
		cred.EncryptedKey,
		cred.BaseURL,
		cred.AutoSync,
		cred.SyncFrequency,
		cred.Active,
		cred.CreatedAt,
		cred.UpdatedAt,
	).Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Name,
		&cred.EncryptedKey,
		&cred.BaseURL,
		&cred.AutoSync,
		&cred.SyncFrequency,
		&cred.Active,
		&cred.LastSyncAt,
		&cred.LastSyncStatus,
		&cred.LastSyncError,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
}

// GetByID returns a credential by its UUID, or nil if not found.
func (r *CredentialRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	var cred models.Credential
	err := r.db.GetContext(ctx, &cred, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return &cred, nil
}

// GetByIDForUser returns a credential only when it belongs to the given user,
// or nil if not found.
func (r *CredentialRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1 AND user_id = $2`

	var cred models.Credential
	err := r.db.GetContext(ctx, &cred, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential for user: %w", err)
	}

	return &cred, nil
}

// ListByUser returns all credentials owned by a user ordered by name.
func (r *CredentialRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id = $1 ORDER BY name`

	var creds []models.Credential
	if err := r.db.SelectContext(ctx, &creds, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return creds, nil
}

// ListDueForAutoSync returns active auto-sync credentials whose last sync is
// older than their frequency allows. Never-synced credentials are always due.
func (r *CredentialRepository) ListDueForAutoSync(ctx context.Context) ([]models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE active = true
		  AND auto_sync = true
		  AND sync_frequency IN ('daily', 'weekly')
		  AND (
		        last_sync_at IS NULL
		        OR (sync_frequency = 'daily'  AND last_sync_at <= NOW() - INTERVAL '24 hours')
		        OR (sync_frequency = 'weekly' AND last_sync_at <= NOW() - INTERVAL '168 hours')
		      )
		ORDER BY last_sync_at ASC NULLS FIRST
	`

	var creds []models.Credential
	if err := r.db.SelectContext(ctx, &creds, query); err != nil {
		return nil, fmt.Errorf("failed to list credentials due for auto sync: %w", err)
	}

	return creds, nil
}

// Update persists mutable fields of a credential.
func (r *CredentialRepository) Update(ctx context.Context, cred *models.Credential) error {
	cred.UpdatedAt = time.Now()

	query := `
		UPDATE credentials
		SET name           = $2,
		    encrypted_key  = $3,
		    base_url       = $4,
		    auto_sync      = $5,
		    sync_frequency = $6,
		    active         = $7,
		    updated_at     = $8
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		cred.ID,
		cred.Name,
		cred.EncryptedKey,
		cred.BaseURL,
		cred.AutoSync,
		cred.SyncFrequency,
		cred.Active,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	return nil
}

// UpdateSyncStatus updates the last_sync_* fields after a sync run.
func (r *CredentialRepository) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status string, syncErr *string) error {
	now := time.Now()

	query := `
		UPDATE credentials
		SET last_sync_at = $2, last_sync_status = $3, last_sync_error = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, now, status, syncErr, now)
	if err != nil {
		return fmt.Errorf("failed to update credential sync status: %w", err)
	}

	return nil
}

// Delete removes a credential together with all catalog rows synced under it.
// The dependent deletes run first, inside a single transaction, so a failure
// partway through never leaves orphaned catalog rows behind.
func (r *CredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"synced_products", "synced_services", "synced_scheduling_links"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE credential_id = $1", table), id,
		); err != nil {
			return fmt.Errorf("failed to delete synced rows from %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return tx.Commit()
}

// ---- Sync runs ---------------------------------------------------------------

// CreateSyncRun inserts a new sync run record in the running state.
func (r *CredentialRepository) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = "running"
	}

	query := `
		INSERT INTO sync_runs (
			id, credential_id, triggered_by, status, started_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.CredentialID,
		run.TriggeredBy,
		run.Status,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}

	return nil
}

// CompleteSyncRun marks a sync run as finished with its final counts.
func (r *CredentialRepository) CompleteSyncRun(
	ctx context.Context,
	id uuid.UUID,
	status string,
	products, services, links int,
	errMsg *string,
) error {
	now := time.Now()

	query := `
		UPDATE sync_runs
		SET status          = $2,
		    completed_at    = $3,
		    products_synced = $4,
		    services_synced = $5,
		    links_synced    = $6,
		    error_message   = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, now, products, services, links, errMsg)
	if err != nil {
		return fmt.Errorf("failed to complete sync run: %w", err)
	}

	return nil
}

// ListSyncRuns returns the most recent sync runs for a credential.
func (r *CredentialRepository) ListSyncRuns(ctx context.Context, credentialID uuid.UUID, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, credential_id, triggered_by, status, products_synced,
		       services_synced, links_synced, error_message, started_at, completed_at
		FROM sync_runs
		WHERE credential_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	var runs []models.SyncRun
	if err := r.db.SelectContext(ctx, &runs, query, credentialID, limit); err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	return runs, nil
}
