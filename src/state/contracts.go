package state

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/model"
)

// ContractFetcher resolves instrument metadata from the venue. Implemented by
// the venue client.
type ContractFetcher interface {
	ContractDetails(ctx context.Context, instrumentID string) (*model.ContractMeta, error)
}

// ContractStore persists fetched metadata. Implemented by the contract
// repository.
type ContractStore interface {
	Upsert(ctx context.Context, meta *model.ContractMeta) error
}

// ContractCache resolves instrument ids to tick geometry with fetch-on-miss
// and indefinite retention. A miss triggers exactly one venue fetch per
// instrument id even under concurrent lookups.
type ContractCache struct {
	mu      sync.Mutex
	metas   map[string]*model.ContractMeta
	pending map[string]chan struct{}
	fetcher ContractFetcher
	store   ContractStore
}

func NewContractCache(fetcher ContractFetcher, store ContractStore) *ContractCache {
	return &ContractCache{
		metas:   make(map[string]*model.ContractMeta),
		pending: make(map[string]chan struct{}),
		fetcher: fetcher,
		store:   store,
	}
}

// Warm preloads persisted metadata at startup.
func (c *ContractCache) Warm(metas []model.ContractMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range metas {
		m := metas[i]
		c.metas[m.InstrumentID] = &m
	}
}

// Resolve returns metadata for an instrument, fetching from the venue on the
// first miss. Concurrent callers for the same instrument share one fetch.
// Returns (nil, nil) when the venue does not know the instrument.
func (c *ContractCache) Resolve(ctx context.Context, instrumentID string) (*model.ContractMeta, error) {
	for {
		c.mu.Lock()
		if meta, ok := c.metas[instrumentID]; ok {
			c.mu.Unlock()
			return meta, nil
		}
		if wait, inflight := c.pending[instrumentID]; inflight {
			c.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		c.pending[instrumentID] = done
		c.mu.Unlock()

		meta, err := c.fetcher.ContractDetails(ctx, instrumentID)

		c.mu.Lock()
		delete(c.pending, instrumentID)
		close(done)
		if err != nil {
			c.mu.Unlock()
			logger.WithField("instrument", instrumentID).
				WithError(err).Warn("Contract metadata fetch failed")
			return nil, err
		}
		if meta != nil {
			c.metas[instrumentID] = meta
		}
		c.mu.Unlock()

		if meta != nil && c.store != nil {
			if err := c.store.Upsert(ctx, meta); err != nil {
				// Cache stays valid; the row will be re-fetched after the
				// next restart instead.
				logger.WithField("instrument", instrumentID).
					WithError(err).Warn("Failed to persist contract metadata")
			}
		}
		return meta, nil
	}
}

// Cached returns metadata already in memory without fetching.
func (c *ContractCache) Cached(instrumentID string) (*model.ContractMeta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[instrumentID]
	return meta, ok
}
