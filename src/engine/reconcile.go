package engine

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
)

// reconcile re-fetches authoritative positions and orders for every enabled
// account and swaps the mirror to match, in memory and durably. It never
// dispatches rules: a gap closed by reconciliation must not fire phantom
// enforcement, the next real event will re-evaluate against the corrected
// state.
func (e *Engine) reconcile(ctx context.Context) error {
	accounts, err := e.resetRepo.EnabledAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts for reconciliation: %w", err)
	}

	for _, account := range accounts {
		positions, err := e.client.ListPositions(ctx, account.AccountID)
		if err != nil {
			return fmt.Errorf("failed to fetch positions for %s: %w", account.AccountID, err)
		}
		orders, err := e.client.ListOrders(ctx, account.AccountID)
		if err != nil {
			return fmt.Errorf("failed to fetch orders for %s: %w", account.AccountID, err)
		}

		e.mirror.ReplaceAccount(account.AccountID, positions, orders)
		if err := e.mirrorRepo.ReplaceAccount(ctx, account.AccountID, positions, orders); err != nil {
			logger.WithField("account", account.AccountID).
				WithError(err).Warn("Failed to persist reconciled mirror")
		}
	}

	logger.WithField("accounts", len(accounts)).Info("Mirror reconciliation complete")
	return nil
}
