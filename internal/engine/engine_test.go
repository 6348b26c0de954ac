package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinel/internal/broker"
	"sentinel/internal/config"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
	"sentinel/internal/store"
)

type modifyCall struct {
	Ticket     int64
	StopLoss   float64
	TakeProfit float64
}

type closeCall struct {
	Ticket int64
	Volume float64
}

type fakeGateway struct {
	rules     map[string]models.SymbolRules
	account   models.AccountInfo
	ticks     map[string]models.Tick
	now       time.Time
	orders    []models.PendingOrder
	positions []models.Position
	deals     []models.Deal

	modifyErr error
	closeErr  error
	placeErr  error

	nextTicket int64
	modifies   []modifyCall
	closes     []closeCall
	placed     []broker.PendingLimitRequest
	cancels    []int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rules: map[string]models.SymbolRules{
			"EURUSD": {
				Symbol:     "EURUSD",
				Point:      0.00001,
				Digits:     5,
				TickSize:   0.00001,
				TickValue:  1.0,
				VolumeMin:  0.01,
				VolumeMax:  100,
				VolumeStep: 0.01,
			},
		},
		account:    models.AccountInfo{Login: 1, Balance: 10000, Equity: 10000, Currency: "USD"},
		ticks:      map[string]models.Tick{},
		now:        time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		nextTicket: 9000,
	}
}

func (g *fakeGateway) SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	return g.rules[symbol], nil
}

func (g *fakeGateway) Account(ctx context.Context) (models.AccountInfo, error) {
	return g.account, nil
}

func (g *fakeGateway) Quote(ctx context.Context, symbol string) (models.Tick, error) {
	return g.ticks[symbol], nil
}

func (g *fakeGateway) ServerTime(ctx context.Context) (time.Time, error) {
	return g.now, nil
}

func (g *fakeGateway) PendingOrders(ctx context.Context, magic int64) ([]models.PendingOrder, error) {
	return g.orders, nil
}

func (g *fakeGateway) OpenPositions(ctx context.Context, magic int64) ([]models.Position, error) {
	return g.positions, nil
}

func (g *fakeGateway) DealsSince(ctx context.Context, from time.Time, magic int64) ([]models.Deal, error) {
	return g.deals, nil
}

func (g *fakeGateway) PlacePendingLimit(ctx context.Context, req broker.PendingLimitRequest) (int64, error) {
	if g.placeErr != nil {
		return 0, g.placeErr
	}
	g.placed = append(g.placed, req)
	g.nextTicket++
	return g.nextTicket, nil
}

func (g *fakeGateway) ModifyPosition(ctx context.Context, ticket int64, symbol string, stopLoss, takeProfit float64) error {
	if g.modifyErr != nil {
		return g.modifyErr
	}
	g.modifies = append(g.modifies, modifyCall{Ticket: ticket, StopLoss: stopLoss, TakeProfit: takeProfit})
	for i := range g.positions {
		if g.positions[i].Ticket == ticket {
			g.positions[i].StopLoss = stopLoss
			g.positions[i].TakeProfit = takeProfit
		}
	}
	return nil
}

func (g *fakeGateway) ClosePartial(ctx context.Context, ticket int64, symbol string, volume float64) error {
	if g.closeErr != nil {
		return g.closeErr
	}
	g.closes = append(g.closes, closeCall{Ticket: ticket, Volume: volume})
	for i := range g.positions {
		if g.positions[i].Ticket == ticket {
			g.positions[i].Volume -= volume
		}
	}
	return nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, ticket int64, magic int64, comment string) error {
	g.cancels = append(g.cancels, ticket)
	return nil
}

type stubSetups struct {
	setup *models.Setup
	err   error
}

func (s *stubSetups) Setup(ctx context.Context, symbol string, day time.Time) (*models.Setup, error) {
	return s.setup, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Bot: config.BotConfig{
			Symbols:                  []string{"EURUSD"},
			Magic:                    77,
			Comment:                  "test",
			Mode:                     ModeConservative,
			TriggerR:                 3.0,
			PartialFraction:          0.5,
			RiskPct:                  0.5,
			Retries:                  1,
			RetryDelay:               time.Millisecond,
			DeviationPoints:          20,
			DuplicateTolerancePoints: 10,
			CancelUnfilledEOD:        false,
		},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, gw *fakeGateway, provider SetupProvider, dir string) (*Engine, *store.Store) {
	t.Helper()

	st, err := store.New(dir)
	require.NoError(t, err)

	log := logger.New(logger.Config{Level: "fatal"})
	eng, err := New(cfg, gw, st, provider, metrics.New(), log)
	require.NoError(t, err)
	return eng, st
}

func countEvents(t *testing.T, st *store.Store, eventType string) int {
	t.Helper()

	events, err := st.TailEvents(0)
	require.NoError(t, err)
	n := 0
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func buyPosition(ticket int64, volume float64) models.Position {
	return models.Position{
		Ticket:     ticket,
		Symbol:     "EURUSD",
		Direction:  models.DirectionBuy,
		OpenPrice:  1.1000,
		StopLoss:   1.0950,
		TakeProfit: 1.1250,
		Volume:     volume,
		Magic:      77,
		OpenedAt:   time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
	}
}
