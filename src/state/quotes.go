package state

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"riskenforcer/src/events"
)

var (
	ErrCrossedQuote = errors.New("quote rejected: ask below bid")
	ErrNonPositive  = errors.New("quote rejected: non-positive price")
)

// CachedQuote is the latest accepted top-of-book for one instrument.
type CachedQuote struct {
	InstrumentID string
	Bid          decimal.Decimal
	Ask          decimal.Decimal
	Last         decimal.Decimal
	ReceivedAt   time.Time
}

// QuoteCache holds the latest bid/ask/last per instrument. Intentionally not
// persisted: a stale quote after a restart is worse than no quote, because a
// missing quote just excludes the position from unrealized P&L.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]CachedQuote
	maxAge time.Duration
}

// NewQuoteCache builds a cache that treats quotes older than maxAge as
// absent. maxAge <= 0 disables the staleness check.
func NewQuoteCache(maxAge time.Duration) *QuoteCache {
	return &QuoteCache{
		quotes: make(map[string]CachedQuote),
		maxAge: maxAge,
	}
}

// Apply validates and stores a quote, overwriting any previous one. Crossed
// or non-positive quotes are rejected so rules never price off garbage.
func (c *QuoteCache) Apply(q *events.Quote, receivedAt time.Time) error {
	if q.Bid.LessThanOrEqual(decimal.Zero) || q.Ask.LessThanOrEqual(decimal.Zero) || q.Last.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositive
	}
	if q.Ask.LessThan(q.Bid) {
		return ErrCrossedQuote
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.InstrumentID] = CachedQuote{
		InstrumentID: q.InstrumentID,
		Bid:          q.Bid,
		Ask:          q.Ask,
		Last:         q.Last,
		ReceivedAt:   receivedAt,
	}
	return nil
}

// Latest returns the freshest quote for an instrument, or false if none is
// cached or the cached one is stale.
func (c *QuoteCache) Latest(instrumentID string, now time.Time) (CachedQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[instrumentID]
	if !ok {
		return CachedQuote{}, false
	}
	if c.maxAge > 0 && now.Sub(q.ReceivedAt) > c.maxAge {
		return CachedQuote{}, false
	}
	return q, true
}
