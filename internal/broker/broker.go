package broker

import (
	"context"
	"time"

	"sentinel/internal/models"
)

type PendingLimitRequest struct {
	Symbol          string
	Direction       models.Direction
	Volume          float64
	Price           float64
	StopLoss        float64
	TakeProfit      float64
	DeviationPoints int
	Magic           int64
	Comment         string
	Expiration      time.Time
}

type Gateway interface {
	SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error)
	Account(ctx context.Context) (models.AccountInfo, error)
	Quote(ctx context.Context, symbol string) (models.Tick, error)
	ServerTime(ctx context.Context) (time.Time, error)
	PendingOrders(ctx context.Context, magic int64) ([]models.PendingOrder, error)
	OpenPositions(ctx context.Context, magic int64) ([]models.Position, error)
	DealsSince(ctx context.Context, from time.Time, magic int64) ([]models.Deal, error)
	PlacePendingLimit(ctx context.Context, req PendingLimitRequest) (int64, error)
	ModifyPosition(ctx context.Context, ticket int64, symbol string, stopLoss, takeProfit float64) error
	ClosePartial(ctx context.Context, ticket int64, symbol string, volume float64) error
	CancelOrder(ctx context.Context, ticket int64, magic int64, comment string) error
}
