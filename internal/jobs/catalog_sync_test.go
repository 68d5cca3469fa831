package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/catalog-sync/catalog-sync/internal/credentials"
	"github.com/catalog-sync/catalog-sync/internal/crypto"
	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

const testEncryptionSecret = "0123456789abcdef0123456789abcdef"

var syncCredentialCols = []string{
	"id", "user_id", "name", "encrypted_key", "base_url", "auto_sync",
	"sync_frequency", "active", "last_sync_at", "last_sync_status", "last_sync_error",
	"created_at", "updated_at",
}

func newCatalogSyncJob(t *testing.T) (*CatalogSyncJob, sqlmock.Sqlmock, *crypto.KeyCipher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cipher, err := crypto.NewKeyCipher(testEncryptionSecret)
	if err != nil {
		t.Fatalf("NewKeyCipher: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	credRepo := repositories.NewCredentialRepository(sqlxDB)
	catalogRepo := repositories.NewCatalogRepository(sqlxDB)
	store := credentials.NewStore(credRepo, cipher, "https://app.storefronthq.com", "", 100)

	return NewCatalogSyncJob(store, credRepo, catalogRepo, "", 100), mock, cipher
}

func syncCredentialRow(t *testing.T, mock sqlmock.Sqlmock, cipher *crypto.KeyCipher, id uuid.UUID, baseURL string, active bool) *sqlmock.Rows {
	t.Helper()
	encrypted, err := cipher.Encrypt("sf_live_a1b2c3d4e5f6")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	now := time.Now()
	return mock.NewRows(syncCredentialCols).AddRow(
		id, uuid.New(), "test-store", encrypted, baseURL,
		true, models.SyncFrequencyDaily, active, nil, nil, nil, now, now,
	)
}

// --- Construction and triggering ---

func TestNewCatalogSyncJob_NotNil(t *testing.T) {
	job, _, _ := newCatalogSyncJob(t)
	if job == nil {
		t.Fatal("expected non-nil job")
	}
}

func TestTriggerSync_Enqueues(t *testing.T) {
	job, _, _ := newCatalogSyncJob(t)

	if err := job.TriggerSync(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTriggerSync_QueueFull(t *testing.T) {
	job, _, _ := newCatalogSyncJob(t)

	for i := 0; i < cap(job.manualTriggerCh); i++ {
		if err := job.TriggerSync(context.Background(), uuid.New()); err != nil {
			t.Fatalf("unexpected error filling queue: %v", err)
		}
	}
	if err := job.TriggerSync(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error when queue is full")
	}
}

func TestIsSyncing_DefaultFalse(t *testing.T) {
	job, _, _ := newCatalogSyncJob(t)
	if job.IsSyncing(uuid.New()) {
		t.Fatal("expected no active syncs")
	}
}

func TestStartStop_Lifecycle(t *testing.T) {
	job, mock, _ := newCatalogSyncJob(t)

	// The immediate startup check queries for due credentials.
	mock.ExpectQuery(`SELECT.*FROM credentials`).
		WillReturnRows(mock.NewRows(syncCredentialCols))

	job.Start(context.Background(), 60)
	job.Stop()
}

// --- doSync ---

func TestDoSync_SuccessRecordsRunAndStatus(t *testing.T) {
	job, mock, cipher := newCatalogSyncJob(t)
	credID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products":
			fmt.Fprint(w, `{"products":[{"id":"p1","title":"Widget"}],"pagination":{"has_more":false}}`)
		case "/api/v1/services":
			fmt.Fprint(w, `{"services":[{"id":"s1","title":"Call"}],"pagination":{"has_more":false}}`)
		case "/api/v1/scheduling/availability":
			fmt.Fprint(w, `{"scheduling_links":[]}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	mock.ExpectQuery(`SELECT.*FROM credentials`).
		WithArgs(credID).
		WillReturnRows(syncCredentialRow(t, mock, cipher, credID, srv.URL, true))
	mock.ExpectExec(`INSERT INTO sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO synced_products`).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	mock.ExpectQuery(`INSERT INTO synced_services`).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	mock.ExpectExec(`UPDATE sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE credentials`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job.doSync(context.Background(), credID, models.SyncTriggerManual)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if job.IsSyncing(credID) {
		t.Fatal("active sync flag must be cleared after doSync")
	}
}

func TestDoSync_PartialFailureKeepsOtherEntities(t *testing.T) {
	job, mock, cipher := newCatalogSyncJob(t)
	credID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/products":
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		case "/api/v1/services":
			fmt.Fprint(w, `{"services":[{"id":"s1","title":"Call"}],"pagination":{"has_more":false}}`)
		case "/api/v1/scheduling/availability":
			fmt.Fprint(w, `{"scheduling_links":[]}`)
		}
	}))
	defer srv.Close()

	mock.ExpectQuery(`SELECT.*FROM credentials`).
		WithArgs(credID).
		WillReturnRows(syncCredentialRow(t, mock, cipher, credID, srv.URL, true))
	mock.ExpectExec(`INSERT INTO sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The products fetch fails, but the service row is still written.
	mock.ExpectQuery(`INSERT INTO synced_services`).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	mock.ExpectExec(`UPDATE sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE credentials`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job.doSync(context.Background(), credID, models.SyncTriggerManual)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDoSync_InactiveCredentialSkipped(t *testing.T) {
	job, mock, cipher := newCatalogSyncJob(t)
	credID := uuid.New()

	mock.ExpectQuery(`SELECT.*FROM credentials`).
		WithArgs(credID).
		WillReturnRows(syncCredentialRow(t, mock, cipher, credID, "https://app.storefronthq.com", false))

	job.doSync(context.Background(), credID, models.SyncTriggerScheduler)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDoSync_UndecryptableKeyRecordsError(t *testing.T) {
	job, mock, _ := newCatalogSyncJob(t)
	credID := uuid.New()

	now := time.Now()
	rows := mock.NewRows(syncCredentialCols).AddRow(
		credID, uuid.New(), "broken-store", "garbage-ciphertext", "https://app.storefronthq.com",
		true, models.SyncFrequencyDaily, true, nil, nil, nil, now, now,
	)

	mock.ExpectQuery(`SELECT.*FROM credentials`).
		WithArgs(credID).
		WillReturnRows(rows)
	mock.ExpectExec(`INSERT INTO sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sync_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE credentials`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job.doSync(context.Background(), credID, models.SyncTriggerManual)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
