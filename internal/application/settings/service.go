// Package settings serves per-store tax integration settings with a small
// in-process cache, so the submission path does not hit the database for
// every invoice.
package settings

import (
	"sync"
	"time"

	"github.com/albadr/zatca-integration/internal/domain/entity"
	"github.com/albadr/zatca-integration/internal/domain/repository"
	"github.com/albadr/zatca-integration/pkg/logger"
)

type cacheKey struct {
	storeID int64
	shopID  int64
}

type cacheEntry struct {
	settings  *repository.StoreSettings
	fetchedAt time.Time
}

// Service loads store settings through a TTL cache. Credential updates
// invalidate the store's entry so a fresh certificate is picked up at once.
type Service struct {
	repo repository.SettingsRepository
	ttl  time.Duration
	log  *logger.Logger

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry

	now func() time.Time
}

// New builds the service. A zero TTL disables caching.
func New(repo repository.SettingsRepository, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		ttl:   ttl,
		log:   log,
		cache: map[cacheKey]cacheEntry{},
		now:   time.Now,
	}
}

// Get returns the settings for one store, from cache when fresh.
func (s *Service) Get(storeID, shopID int64) (*repository.StoreSettings, error) {
	key := cacheKey{storeID: storeID, shopID: shopID}

	if s.ttl > 0 {
		s.mu.RLock()
		entry, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
			return entry.settings, nil
		}
	}

	settings, err := s.repo.Get(storeID, shopID)
	if err != nil {
		return nil, err
	}

	if s.ttl > 0 {
		s.mu.Lock()
		s.cache[key] = cacheEntry{settings: settings, fetchedAt: s.now()}
		s.mu.Unlock()
	}
	return settings, nil
}

// List returns every store of the shop. Listing is rare, so it always reads
// through.
func (s *Service) List(shopID int64) ([]*repository.StoreSettings, error) {
	return s.repo.List(shopID)
}

// UpdateCredential persists the new credential bundle and drops the store's
// cache entry.
func (s *Service) UpdateCredential(storeID, shopID int64, cred *entity.CredentialBundle) error {
	if err := s.repo.UpdateCredential(storeID, shopID, cred); err != nil {
		return err
	}
	s.Invalidate(storeID, shopID)
	s.log.Debug().Int64("store_id", storeID).Int64("shop_id", shopID).Msg("credential updated, settings cache invalidated")
	return nil
}

// UpdateProfile persists the editable taxpayer fields and drops the store's
// cache entry.
func (s *Service) UpdateProfile(storeID, shopID int64, profile entity.TaxpayerProfile) error {
	if err := s.repo.UpdateProfile(storeID, shopID, profile); err != nil {
		return err
	}
	s.Invalidate(storeID, shopID)
	return nil
}

// Invalidate drops one store's cache entry.
func (s *Service) Invalidate(storeID, shopID int64) {
	s.mu.Lock()
	delete(s.cache, cacheKey{storeID: storeID, shopID: shopID})
	s.mu.Unlock()
}
