package state

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskenforcer/src/events"
)

func quoteOf(instrument, bid, ask, last string) *events.Quote {
	return &events.Quote{
		InstrumentID: instrument,
		Bid:          decimal.RequireFromString(bid),
		Ask:          decimal.RequireFromString(ask),
		Last:         decimal.RequireFromString(last),
	}
}

func TestQuoteCacheValidation(t *testing.T) {
	cache := NewQuoteCache(0)
	now := time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		quote   *events.Quote
		wantErr error
	}{
		{name: "valid quote", quote: quoteOf("ESU5", "5400.00", "5400.25", "5400.25")},
		{name: "ask equals bid is valid", quote: quoteOf("ESU5", "5400.25", "5400.25", "5400.25")},
		{name: "crossed quote", quote: quoteOf("ESU5", "5400.50", "5400.25", "5400.25"), wantErr: ErrCrossedQuote},
		{name: "zero bid", quote: quoteOf("ESU5", "0", "5400.25", "5400.25"), wantErr: ErrNonPositive},
		{name: "negative last", quote: quoteOf("ESU5", "5400.00", "5400.25", "-1"), wantErr: ErrNonPositive},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := cache.Apply(tc.quote, now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestQuoteCacheRejectedQuoteKeepsPrevious(t *testing.T) {
	cache := NewQuoteCache(0)
	now := time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC)

	if err := cache.Apply(quoteOf("ESU5", "5400.00", "5400.25", "5400.25"), now); err != nil {
		t.Fatalf("unexpected error applying valid quote: %v", err)
	}
	if err := cache.Apply(quoteOf("ESU5", "9999", "1", "1"), now.Add(time.Second)); err == nil {
		t.Fatalf("expected crossed quote to be rejected")
	}

	q, ok := cache.Latest("ESU5", now.Add(2*time.Second))
	if !ok {
		t.Fatalf("expected previous quote to survive rejection")
	}
	if !q.Last.Equal(decimal.RequireFromString("5400.25")) {
		t.Fatalf("expected last 5400.25, got %s", q.Last)
	}
}

func TestQuoteCacheStaleness(t *testing.T) {
	cache := NewQuoteCache(30 * time.Second)
	received := time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC)

	if err := cache.Apply(quoteOf("ESU5", "5400.00", "5400.25", "5400.25"), received); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := cache.Latest("ESU5", received.Add(30*time.Second)); !ok {
		t.Fatalf("quote exactly at max age must still be fresh")
	}
	if _, ok := cache.Latest("ESU5", received.Add(31*time.Second)); ok {
		t.Fatalf("quote past max age must be treated as absent")
	}
	if _, ok := cache.Latest("NQU5", received); ok {
		t.Fatalf("unknown instrument must report no quote")
	}
}
