// catalog_sync.go implements the background job that keeps synced storefront
// catalogs up to date. On each tick it selects credentials whose auto-sync is
// due (daily or weekly since their last run) and syncs each one; HTTP
// handlers trigger single-credential syncs on demand through TriggerSync.
//
// A sync is deliberately not atomic across entity kinds: products, services,
// and scheduling links are fetched and upserted independently, so a failure
// in one collection leaves the rows already written by the others in place.
// Per-credential active-sync tracking prevents overlapping runs for the same
// credential while still allowing different credentials to sync in parallel.
package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/catalog-sync/catalog-sync/internal/catalog"
	"github.com/catalog-sync/catalog-sync/internal/credentials"
	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
	"github.com/catalog-sync/catalog-sync/internal/safego"
	"github.com/catalog-sync/catalog-sync/internal/telemetry"

	"github.com/google/uuid"
)

// CatalogSyncJob periodically refreshes synced catalogs for due credentials.
type CatalogSyncJob struct {
	credStore    *credentials.Store
	credRepo     *repositories.CredentialRepository
	catalogRepo  *repositories.CatalogRepository
	referralCode string
	pageSize     int

	activeSyncs      map[uuid.UUID]bool
	activeSyncsMutex sync.Mutex

	stopCh    chan struct{}
	startedCh chan struct{}
	wg        sync.WaitGroup

	// manualTriggerCh carries explicit per-credential sync requests from HTTP handlers.
	manualTriggerCh chan uuid.UUID
}

// NewCatalogSyncJob creates a new CatalogSyncJob.
func NewCatalogSyncJob(
	credStore *credentials.Store,
	credRepo *repositories.CredentialRepository,
	catalogRepo *repositories.CatalogRepository,
	referralCode string,
	pageSize int,
) *CatalogSyncJob {
	return &CatalogSyncJob{
		credStore:       credStore,
		credRepo:        credRepo,
		catalogRepo:     catalogRepo,
		referralCode:    referralCode,
		pageSize:        pageSize,
		activeSyncs:     make(map[uuid.UUID]bool),
		stopCh:          make(chan struct{}),
		startedCh:       make(chan struct{}),
		manualTriggerCh: make(chan uuid.UUID, 16),
	}
}

// Start begins the background sync loop, checking every intervalMinutes.
func (j *CatalogSyncJob) Start(ctx context.Context, intervalMinutes int) {
	log.Printf("[catalog-sync] starting sync job (interval: %d minutes)", intervalMinutes)

	j.wg.Add(1)
	go func() {
		close(j.startedCh)
		defer j.wg.Done()

		ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
		defer ticker.Stop()

		// Run an initial scheduled check immediately on startup.
		j.runScheduledSyncs(ctx)

		for {
			select {
			case <-ticker.C:
				j.runScheduledSyncs(ctx)
			case credentialID := <-j.manualTriggerCh:
				cid := credentialID
				safego.Go(func() { j.syncCredential(ctx, cid, models.SyncTriggerManual) })
			case <-j.stopCh:
				log.Println("[catalog-sync] sync job stopped")
				return
			case <-ctx.Done():
				log.Println("[catalog-sync] sync job context cancelled")
				return
			}
		}
	}()
}

// Stop halts the background loop gracefully.
func (j *CatalogSyncJob) Stop() {
	<-j.startedCh
	close(j.stopCh)
	j.wg.Wait()
}

// TriggerSync enqueues a manual sync for a single credential.
func (j *CatalogSyncJob) TriggerSync(ctx context.Context, credentialID uuid.UUID) error {
	select {
	case j.manualTriggerCh <- credentialID:
		return nil
	default:
		return fmt.Errorf("sync queue is full, a sync for this credential may already be running")
	}
}

// IsSyncing reports whether a sync for the credential is currently running.
func (j *CatalogSyncJob) IsSyncing(credentialID uuid.UUID) bool {
	j.activeSyncsMutex.Lock()
	defer j.activeSyncsMutex.Unlock()
	return j.activeSyncs[credentialID]
}

// ----- Scheduled sync -------------------------------------------------------

func (j *CatalogSyncJob) runScheduledSyncs(ctx context.Context) {
	creds, err := j.credRepo.ListDueForAutoSync(ctx)
	if err != nil {
		log.Printf("[catalog-sync] failed to list credentials due for sync: %v", err)
		return
	}

	if len(creds) == 0 {
		return
	}

	log.Printf("[catalog-sync] %d credential(s) due for syncing", len(creds))

	for _, cred := range creds {
		credID := cred.ID // capture for goroutine

		j.activeSyncsMutex.Lock()
		if j.activeSyncs[credID] {
			log.Printf("[catalog-sync] credential %s (%s) is already syncing, skipping", cred.Name, credID)
			j.activeSyncsMutex.Unlock()
			continue
		}
		j.activeSyncs[credID] = true
		j.activeSyncsMutex.Unlock()

		safego.Go(func() { j.doSync(ctx, credID, models.SyncTriggerScheduler) })
	}
}

func (j *CatalogSyncJob) syncCredential(ctx context.Context, credentialID uuid.UUID, triggeredBy string) {
	j.activeSyncsMutex.Lock()
	if j.activeSyncs[credentialID] {
		log.Printf("[catalog-sync] credential %s already syncing, ignoring %s trigger", credentialID, triggeredBy)
		j.activeSyncsMutex.Unlock()
		return
	}
	j.activeSyncs[credentialID] = true
	j.activeSyncsMutex.Unlock()

	j.doSync(ctx, credentialID, triggeredBy)
}

// doSync performs the full sync lifecycle for one credential: load, decrypt,
// create a run record, sync each entity kind, record the outcome.
func (j *CatalogSyncJob) doSync(ctx context.Context, credentialID uuid.UUID, triggeredBy string) {
	defer func() {
		j.activeSyncsMutex.Lock()
		delete(j.activeSyncs, credentialID)
		j.activeSyncsMutex.Unlock()
	}()

	cred, err := j.credRepo.GetByID(ctx, credentialID)
	if err != nil || cred == nil {
		log.Printf("[catalog-sync] cannot load credential %s for sync: %v", credentialID, err)
		return
	}
	if !cred.Active {
		log.Printf("[catalog-sync] credential %s (%s) is inactive, skipping", cred.Name, credentialID)
		return
	}

	log.Printf("[catalog-sync] starting sync for %s (base: %s, trigger: %s)", cred.Name, cred.BaseURL, triggeredBy)
	started := time.Now()

	run := &models.SyncRun{
		CredentialID: credentialID,
		TriggeredBy:  triggeredBy,
		StartedAt:    started,
		Status:       "running",
	}
	if createErr := j.credRepo.CreateSyncRun(ctx, run); createErr != nil {
		log.Printf("[catalog-sync] failed to create sync run for %s: %v", cred.Name, createErr)
	}

	result, syncErr := j.performSync(ctx, cred)

	// Use a cleanup context so the outcome is always recorded even if the
	// original ctx was cancelled mid-sync.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status := models.SyncStatusSuccess
	var errMsg *string
	if syncErr != nil {
		status = models.SyncStatusError
		s := syncErr.Error()
		errMsg = &s
		log.Printf("[catalog-sync] sync FAILED for %s: %v", cred.Name, syncErr)
	} else {
		log.Printf("[catalog-sync] sync completed for %s: products=%d services=%d links=%d",
			cred.Name, result.Products, result.Services, result.Links)
	}

	telemetry.CatalogSyncRunsTotal.WithLabelValues(status).Inc()
	telemetry.CatalogSyncDuration.Observe(time.Since(started).Seconds())

	_ = j.credRepo.CompleteSyncRun(cleanupCtx, run.ID, status,
		result.Products, result.Services, result.Links, errMsg)
	_ = j.credRepo.UpdateSyncStatus(cleanupCtx, credentialID, status, errMsg)
}

// ----- Sync implementation --------------------------------------------------

// SyncResult holds per-entity upsert counts for one run.
type SyncResult struct {
	Products int
	Services int
	Links    int
}

// performSync fetches and upserts each entity kind in turn. Entity failures
// are collected rather than aborting, so one broken collection does not
// discard the rows the others already wrote.
func (j *CatalogSyncJob) performSync(ctx context.Context, cred *models.Credential) (*SyncResult, error) {
	result := &SyncResult{}

	apiKey, err := j.credStore.DecryptedKey(cred)
	if err != nil {
		return result, err
	}

	client := catalog.NewClient(cred.BaseURL, apiKey, j.referralCode, j.pageSize)
	syncedAt := time.Now()

	var failures []string

	if n, syncErr := j.syncProducts(ctx, client, cred.ID, syncedAt); syncErr != nil {
		failures = append(failures, fmt.Sprintf("products: %v", syncErr))
	} else {
		result.Products = n
	}

	if n, syncErr := j.syncServices(ctx, client, cred.ID, syncedAt); syncErr != nil {
		failures = append(failures, fmt.Sprintf("services: %v", syncErr))
	} else {
		result.Services = n
	}

	if n, syncErr := j.syncSchedulingLinks(ctx, client, cred.ID, syncedAt); syncErr != nil {
		failures = append(failures, fmt.Sprintf("scheduling_links: %v", syncErr))
	} else {
		result.Links = n
	}

	if len(failures) > 0 {
		return result, fmt.Errorf("sync failed for %s", strings.Join(failures, "; "))
	}

	return result, nil
}

func (j *CatalogSyncJob) syncProducts(ctx context.Context, client *catalog.Client, credentialID uuid.UUID, syncedAt time.Time) (int, error) {
	items, err := client.FetchProducts(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range items {
		product, mapErr := catalog.MapProduct(credentialID, &items[i], syncedAt)
		if mapErr != nil {
			log.Printf("[catalog-sync] skipping unmappable product for %s: %v", credentialID, mapErr)
			continue
		}
		if upsertErr := j.catalogRepo.UpsertProduct(ctx, product); upsertErr != nil {
			log.Printf("[catalog-sync] failed to upsert product %s: %v", product.ExternalID, upsertErr)
			continue
		}
		count++
	}

	telemetry.CatalogItemsUpserted.WithLabelValues("product").Add(float64(count))
	return count, nil
}

func (j *CatalogSyncJob) syncServices(ctx context.Context, client *catalog.Client, credentialID uuid.UUID, syncedAt time.Time) (int, error) {
	items, err := client.FetchServices(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range items {
		service, mapErr := catalog.MapService(credentialID, &items[i], syncedAt)
		if mapErr != nil {
			log.Printf("[catalog-sync] skipping unmappable service for %s: %v", credentialID, mapErr)
			continue
		}
		if upsertErr := j.catalogRepo.UpsertService(ctx, service); upsertErr != nil {
			log.Printf("[catalog-sync] failed to upsert service %s: %v", service.ExternalID, upsertErr)
			continue
		}
		count++
	}

	telemetry.CatalogItemsUpserted.WithLabelValues("service").Add(float64(count))
	return count, nil
}

func (j *CatalogSyncJob) syncSchedulingLinks(ctx context.Context, client *catalog.Client, credentialID uuid.UUID, syncedAt time.Time) (int, error) {
	items, err := client.FetchSchedulingLinks(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range items {
		link, mapErr := catalog.MapSchedulingLink(credentialID, &items[i], syncedAt)
		if mapErr != nil {
			log.Printf("[catalog-sync] skipping unmappable scheduling link for %s: %v", credentialID, mapErr)
			continue
		}
		if upsertErr := j.catalogRepo.UpsertSchedulingLink(ctx, link); upsertErr != nil {
			log.Printf("[catalog-sync] failed to upsert scheduling link %s: %v", link.ExternalID, upsertErr)
			continue
		}
		count++
	}

	telemetry.CatalogItemsUpserted.WithLabelValues("scheduling_link").Add(float64(count))
	return count, nil
}
