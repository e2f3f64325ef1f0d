package rules

import (
	"fmt"
	"strings"

	"riskenforcer/src/events"
	"riskenforcer/src/model"
)

// authGuardRule reacts to suspicious authentication events on the account
// stream. A match flattens the account and imposes a permanent lockout that
// only an operator can clear.
type authGuardRule struct {
	cfg        Config
	suspicious map[string]bool
}

func newAuthGuardRule(cfg Config) *authGuardRule {
	suspicious := make(map[string]bool, len(cfg.AuthGuardEvents))
	for _, e := range cfg.AuthGuardEvents {
		e = strings.TrimSpace(strings.ToLower(e))
		if e != "" {
			suspicious[e] = true
		}
	}
	return &authGuardRule{cfg: cfg, suspicious: suspicious}
}

func (r *authGuardRule) ID() string    { return "auth_anomaly" }
func (r *authGuardRule) Enabled() bool { return r.cfg.AuthGuardEnabled }

func (r *authGuardRule) Check(ev *events.Event, view View) *Breach {
	if ev.AcctStatus == nil || ev.AcctStatus.AuthEvent == "" {
		return nil
	}
	if !r.suspicious[strings.ToLower(ev.AcctStatus.AuthEvent)] {
		return nil
	}

	return &Breach{
		RuleID: r.ID(),
		Reason: fmt.Sprintf("suspicious authentication event %q", ev.AcctStatus.AuthEvent),
		Action: Action{
			Kind: model.ActionCloseAll,
			Lockout: &LockoutSpec{
				Reason: model.LockoutReasonAuthAnomaly,
				Until:  nil, // permanent
			},
		},
	}
}
