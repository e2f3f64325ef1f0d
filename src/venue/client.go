package venue

import (
	"context"

	"riskenforcer/src/model"
)

// CommandResult reports the outcome of one outbound venue command.
type CommandResult struct {
	OK       bool
	VenueRef string // server-assigned identifier, when the venue returns one
	Message  string
}

// Client is the outbound command and query surface of the trading venue.
// Implemented by the REST client below; tests substitute a fake.
type Client interface {
	ClosePosition(ctx context.Context, accountID, symbol string) (CommandResult, error)
	CloseAll(ctx context.Context, accountID string) (CommandResult, error)
	CancelOrder(ctx context.Context, accountID, orderID string) (CommandResult, error)
	CancelAll(ctx context.Context, accountID string) (CommandResult, error)
	PlaceProtectiveOrder(ctx context.Context, accountID, symbol, side string, size int, stopPrice float64) (CommandResult, error)

	ListPositions(ctx context.Context, accountID string) ([]model.MirroredPosition, error)
	ListOrders(ctx context.Context, accountID string) ([]model.MirroredOrder, error)
	ContractDetails(ctx context.Context, instrumentID string) (*model.ContractMeta, error)
}
