// Package credentials implements the lifecycle of stored storefront API keys:
// format validation, an optional live probe against the platform, encryption
// at rest, and owner-scoped CRUD. Handlers and background jobs go through
// this package instead of touching the credential repository directly so the
// plaintext key never escapes it except for a live sync.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/catalog-sync/catalog-sync/internal/catalog"
	"github.com/catalog-sync/catalog-sync/internal/crypto"
	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

// Storefront API keys start with this prefix.
const keyPrefix = "sf_"

const minKeyLength = 16

// ErrNotFound is returned when a credential does not exist or is not owned
// by the requesting user.
var ErrNotFound = errors.New("credential not found")

// Store manages encrypted storefront credentials.
type Store struct {
	repo           *repositories.CredentialRepository
	cipher         *crypto.KeyCipher
	defaultBaseURL string
	referralCode   string
	pageSize       int
}

// NewStore creates a credential store.
func NewStore(repo *repositories.CredentialRepository, cipher *crypto.KeyCipher, defaultBaseURL, referralCode string, pageSize int) *Store {
	return &Store{
		repo:           repo,
		cipher:         cipher,
		defaultBaseURL: strings.TrimRight(defaultBaseURL, "/"),
		referralCode:   referralCode,
		pageSize:       pageSize,
	}
}

// ValidateKeyFormat checks the shape of an API key without any remote call.
func ValidateKeyFormat(key string) error {
	if !strings.HasPrefix(key, keyPrefix) {
		return &catalog.ValidationError{Field: "api_key", Message: fmt.Sprintf("key must start with %q", keyPrefix)}
	}
	if len(key) < minKeyLength {
		return &catalog.ValidationError{Field: "api_key", Message: "key is too short"}
	}
	return nil
}

// Create validates, probes, encrypts, and stores a new credential.
// The live probe is skipped when req.SkipValidation is set, which lets an
// admin connect an account while the platform is unreachable.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, req *models.CreateCredentialRequest) (*models.Credential, error) {
	if err := ValidateKeyFormat(req.APIKey); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(req.BaseURL, "/")
	if baseURL == "" {
		baseURL = s.defaultBaseURL
	}

	if !req.SkipValidation {
		client := catalog.NewClient(baseURL, req.APIKey, s.referralCode, s.pageSize)
		if err := client.ValidateKey(ctx); err != nil {
			return nil, err
		}
	}

	encrypted, err := s.cipher.Encrypt(req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	frequency := req.SyncFrequency
	if frequency == "" {
		frequency = models.SyncFrequencyManual
	}
	autoSync := false
	if req.AutoSync != nil {
		autoSync = *req.AutoSync
	}

	cred := &models.Credential{
		UserID:        userID,
		Name:          req.Name,
		EncryptedKey:  encrypted,
		BaseURL:       baseURL,
		AutoSync:      autoSync,
		SyncFrequency: frequency,
		Active:        true,
	}

	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, err
	}

	attachKeyDisplay(cred)
	return cred, nil
}

// Get returns one credential owned by the user with its key display set.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*models.Credential, error) {
	cred, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	attachKeyDisplay(cred)
	return cred, nil
}

// List returns all credentials owned by the user with key displays set.
func (s *Store) List(ctx context.Context, userID uuid.UUID) ([]models.Credential, error) {
	creds, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range creds {
		attachKeyDisplay(&creds[i])
	}
	return creds, nil
}

// Update applies partial changes to a credential. A replacement API key is
// format-checked and re-encrypted; no live probe runs on update.
func (s *Store) Update(ctx context.Context, userID, id uuid.UUID, req *models.UpdateCredentialRequest) (*models.Credential, error) {
	cred, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotFound
	}

	if req.APIKey != nil {
		if err := ValidateKeyFormat(*req.APIKey); err != nil {
			return nil, err
		}
		encrypted, err := s.cipher.Encrypt(*req.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt api key: %w", err)
		}
		cred.EncryptedKey = encrypted
	}
	if req.Name != nil {
		cred.Name = *req.Name
	}
	if req.BaseURL != nil {
		cred.BaseURL = strings.TrimRight(*req.BaseURL, "/")
	}
	if req.AutoSync != nil {
		cred.AutoSync = *req.AutoSync
	}
	if req.SyncFrequency != nil {
		cred.SyncFrequency = *req.SyncFrequency
	}
	if req.Active != nil {
		cred.Active = *req.Active
	}

	if err := s.repo.Update(ctx, cred); err != nil {
		return nil, err
	}

	attachKeyDisplay(cred)
	return cred, nil
}

// Delete removes a credential and all catalog rows synced under it.
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cred, err := s.repo.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotFound
	}

	return s.repo.Delete(ctx, id)
}

// DecryptedKey returns the plaintext API key for a credential. Only the sync
// job and the key probe call this.
func (s *Store) DecryptedKey(cred *models.Credential) (string, error) {
	key, err := s.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential %s: %w", cred.ID, err)
	}
	return key, nil
}

// attachKeyDisplay sets a display fragment derived purely from the stored
// ciphertext. The plaintext key never feeds the fragment, so API responses
// carry no key material at all.
func attachKeyDisplay(cred *models.Credential) {
	cred.KeyDisplay = crypto.MaskCiphertext(cred.EncryptedKey)
}
