package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
	"riskenforcer/src/reset"
)

// hoursRule gates activity to the venue's trading session. Orders placed
// outside the allowed window are cancelled; positions still open outside it
// are closed. Holidays block the whole day. The window may span midnight
// (open 18:00, close 17:00 next day, the futures convention).
type hoursRule struct {
	cfg       Config
	loc       *time.Location
	openMins  int
	closeMins int
}

func newHoursRule(cfg Config) (*hoursRule, error) {
	loc, err := time.LoadLocation(cfg.HoursTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid trading hours timezone %q: %w", cfg.HoursTimezone, err)
	}
	open, err := parseClock(cfg.HoursOpen)
	if err != nil {
		return nil, fmt.Errorf("invalid trading hours open: %w", err)
	}
	closeAt, err := parseClock(cfg.HoursClose)
	if err != nil {
		return nil, fmt.Errorf("invalid trading hours close: %w", err)
	}
	return &hoursRule{cfg: cfg, loc: loc, openMins: open, closeMins: closeAt}, nil
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

func (r *hoursRule) ID() string    { return "trading_hours" }
func (r *hoursRule) Enabled() bool { return r.cfg.HoursEnabled }

// inSession reports whether t falls inside the allowed window.
func (r *hoursRule) inSession(t time.Time) bool {
	local := t.In(r.loc)
	if reset.IsTradingHoliday(local) {
		return false
	}

	mins := local.Hour()*60 + local.Minute()
	if r.openMins <= r.closeMins {
		return mins >= r.openMins && mins < r.closeMins
	}
	// Overnight window.
	return mins >= r.openMins || mins < r.closeMins
}

func (r *hoursRule) Check(ev *events.Event, view View) *Breach {
	if ev.Position == nil && ev.Order == nil {
		return nil
	}
	if r.inSession(view.Now()) {
		return nil
	}

	if ev.Order != nil {
		return &Breach{
			RuleID: r.ID(),
			Reason: "order placed outside trading hours",
			Action: Action{Kind: model.ActionCancelOrder, OrderID: ev.Order.OrderID},
		}
	}
	return &Breach{
		RuleID: r.ID(),
		Reason: "position open outside trading hours",
		Action: Action{Kind: model.ActionClosePosition, Symbol: ev.Position.Symbol},
	}
}

// blockedSymbolsRule forbids activity on configured instruments.
type blockedSymbolsRule struct {
	cfg     Config
	blocked map[string]bool
}

func newBlockedSymbolsRule(cfg Config) *blockedSymbolsRule {
	blocked := make(map[string]bool, len(cfg.BlockedSymbols))
	for _, s := range cfg.BlockedSymbols {
		s = strings.TrimSpace(s)
		if s != "" {
			blocked[strings.ToUpper(s)] = true
		}
	}
	return &blockedSymbolsRule{cfg: cfg, blocked: blocked}
}

func (r *blockedSymbolsRule) ID() string    { return "blocked_symbols" }
func (r *blockedSymbolsRule) Enabled() bool { return r.cfg.BlockedSymbolsEnabled }

func (r *blockedSymbolsRule) Check(ev *events.Event, view View) *Breach {
	switch {
	case ev.Order != nil:
		if r.blocked[strings.ToUpper(ev.Order.Symbol)] {
			return &Breach{
				RuleID: r.ID(),
				Reason: fmt.Sprintf("symbol %s is blocked", ev.Order.Symbol),
				Action: Action{Kind: model.ActionCancelOrder, OrderID: ev.Order.OrderID},
			}
		}
	case ev.Position != nil:
		if r.blocked[strings.ToUpper(ev.Position.Symbol)] {
			return &Breach{
				RuleID: r.ID(),
				Reason: fmt.Sprintf("symbol %s is blocked", ev.Position.Symbol),
				Action: Action{Kind: model.ActionClosePosition, Symbol: ev.Position.Symbol},
			}
		}
	}
	return nil
}
