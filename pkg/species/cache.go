package species

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

const DefaultTTL = 24 * time.Hour

type entry struct {
	profile    *Profile
	fetchedAt  time.Time
	refreshing bool
	failing    bool
	retryAt    time.Time
}

type CacheOptions struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	// RetryAfter spaces out lookups of a species whose last fetch failed.
	RetryAfter time.Duration
	Clock      clock.Clock
	// OnUpdate runs after a profile was (re)fetched successfully.
	OnUpdate func(speciesID string, p *Profile)
	// OnUnavailable runs once per failure episode of a species.
	OnUnavailable func(models.LookupUnavailable)
}

// Cache never blocks its callers on the lookup service. Missing or expired
// entries are refreshed in the background while the last known profile, if
// any, keeps being served.
type Cache struct {
	source  Source
	opts    CacheOptions
	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewCache(source Source, opts CacheOptions) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	return &Cache{
		source:  source,
		opts:    opts,
		entries: make(map[string]*entry),
		logger:  common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategorySpecies),
	}
}

// Get returns the cached profile and schedules a refresh when it is missing or expired.
func (c *Cache) Get(speciesID string) (*Profile, bool) {
	if speciesID == "" || c.source == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[speciesID]
	if !ok {
		e = &entry{}
		c.entries[speciesID] = e
	}
	now := c.opts.Clock.Now()
	expired := e.profile == nil || now.Sub(e.fetchedAt) >= c.opts.TTL
	if expired && !e.refreshing && !now.Before(e.retryAt) {
		e.refreshing = true
		c.wg.Add(1)
		go c.refresh(speciesID)
	}
	return e.profile, e.profile != nil
}

func (c *Cache) refresh(speciesID string) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
	defer cancel()
	p, err := c.source.Fetch(ctx, speciesID)
	now := c.opts.Clock.Now()

	c.mu.Lock()
	e := c.entries[speciesID]
	e.refreshing = false
	var firstFailure bool
	if err != nil {
		firstFailure = !e.failing
		e.failing = true
		e.retryAt = now.Add(c.opts.RetryAfter)
	} else {
		e.failing = false
		e.profile = p
		e.fetchedAt = now
	}
	c.mu.Unlock()

	if err != nil {
		if firstFailure {
			c.logger.Warn("Species lookup unavailable", zap.String("species_id", speciesID), zap.Error(err))
			if c.opts.OnUnavailable != nil {
				c.opts.OnUnavailable(models.LookupUnavailable{SpeciesID: speciesID, Error: err.Error(), Timestamp: now})
			}
		}
		return
	}

	c.logger.Info("Species profile refreshed", zap.String("species_id", speciesID))
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(speciesID, p)
	}
}

// Wait blocks until in-flight refreshes are done.
func (c *Cache) Wait() {
	c.wg.Wait()
}
