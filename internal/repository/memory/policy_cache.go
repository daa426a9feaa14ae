package memory

import (
	"time"

	"rma-engine-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PolicyCache holds resolved policies per company for a short TTL.
type PolicyCache struct {
	cache *cache.Cache
}

func NewPolicyCache(ttl, cleanupInterval time.Duration) *PolicyCache {
	return &PolicyCache{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (c *PolicyCache) Get(companyID uuid.UUID) (*entity.RMAPolicy, bool) {
	if x, found := c.cache.Get(companyID.String()); found {
		return x.(*entity.RMAPolicy), true
	}
	return nil, false
}

func (c *PolicyCache) Set(policy *entity.RMAPolicy) {
	c.cache.Set(policy.CompanyID.String(), policy, cache.DefaultExpiration)
}

func (c *PolicyCache) Delete(companyID uuid.UUID) {
	c.cache.Delete(companyID.String())
}

func (c *PolicyCache) Flush() {
	c.cache.Flush()
}
