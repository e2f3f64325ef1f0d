package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type tags the inbound event variants. The set is closed: anything else on
// the wire is dropped at ingestion.
type Type string

const (
	TypeTrade         Type = "trade"
	TypePosition      Type = "position"
	TypeOrder         Type = "order"
	TypeQuote         Type = "quote"
	TypeAccountStatus Type = "account_status"
)

var ErrUnknownType = errors.New("unknown event type")

// Event is the tagged variant handed to the router. Exactly one of the
// payload pointers is non-nil, matching Type.
type Event struct {
	Type       Type       `json:"type"`
	AccountID  string     `json:"account_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Trade      *Trade     `json:"trade,omitempty"`
	Position   *Position  `json:"position,omitempty"`
	Order      *Order     `json:"order,omitempty"`
	Quote      *Quote     `json:"quote,omitempty"`
	AcctStatus *AccStatus `json:"account_status,omitempty"`
}

// Trade is one executed fill with the venue-reported realized P&L.
type Trade struct {
	TradeID string          `json:"trade_id"`
	Symbol  string          `json:"symbol"`
	Side    string          `json:"side"`
	Size    int             `json:"size"`
	Price   float64         `json:"price"`
	PnL     decimal.Decimal `json:"pnl"`
}

// Position is a full position snapshot. Size zero means the position was
// closed and must be removed from the mirror.
type Position struct {
	PositionID string    `json:"position_id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Size       int       `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Order is a full order snapshot including lifecycle state.
type Order struct {
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Kind       string    `json:"kind"`
	Side       string    `json:"side"`
	Size       int       `json:"size"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
	StopPrice  *float64  `json:"stop_price,omitempty"`
	State      string    `json:"state"`
	PlacedAt   time.Time `json:"placed_at"`
}

// Quote carries the latest top-of-book for one instrument. Quotes are the
// only event variant without an account id.
type Quote struct {
	InstrumentID string          `json:"instrument_id"`
	Bid          decimal.Decimal `json:"bid"`
	Ask          decimal.Decimal `json:"ask"`
	Last         decimal.Decimal `json:"last"`
}

// AccStatus reports an account-level status change from the venue, including
// authentication events the anomaly guard watches.
type AccStatus struct {
	Status    string `json:"status"`
	AuthEvent string `json:"auth_event,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Decode parses one wire message into an Event without validating it.
func Decode(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	return &ev, nil
}

// Validate checks that the event carries its tag's payload and the required
// identifiers. A validation error means drop-and-log, never a pipeline stop.
func (e *Event) Validate() error {
	switch e.Type {
	case TypeTrade:
		if e.Trade == nil {
			return errors.New("trade event missing trade payload")
		}
		if e.AccountID == "" {
			return errors.New("trade event missing account id")
		}
		if e.Trade.TradeID == "" {
			return errors.New("trade event missing trade id")
		}
		if e.Trade.Symbol == "" {
			return errors.New("trade event missing symbol")
		}
	case TypePosition:
		if e.Position == nil {
			return errors.New("position event missing position payload")
		}
		if e.AccountID == "" {
			return errors.New("position event missing account id")
		}
		if e.Position.PositionID == "" {
			return errors.New("position event missing position id")
		}
	case TypeOrder:
		if e.Order == nil {
			return errors.New("order event missing order payload")
		}
		if e.AccountID == "" {
			return errors.New("order event missing account id")
		}
		if e.Order.OrderID == "" {
			return errors.New("order event missing order id")
		}
	case TypeQuote:
		if e.Quote == nil {
			return errors.New("quote event missing quote payload")
		}
		if e.Quote.InstrumentID == "" {
			return errors.New("quote event missing instrument id")
		}
	case TypeAccountStatus:
		if e.AcctStatus == nil {
			return errors.New("status event missing status payload")
		}
		if e.AccountID == "" {
			return errors.New("status event missing account id")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	return nil
}
