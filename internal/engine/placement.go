package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"sentinel/internal/broker"
	"sentinel/internal/models"
	"sentinel/internal/risk"
	"sentinel/internal/store"
)

func (e *Engine) scanSetups(ctx context.Context) {
	if e.setups == nil {
		return
	}

	dayStart := dayStartOf(e.serverNow)
	dayKey := dayStart.Format("2006-01-02")

	for _, symbol := range e.cfg.Bot.Symbols {
		if e.state.LastDayStart[symbol] != dayKey {
			e.state.LastDayStart[symbol] = dayKey
			delete(e.state.OrdersPlaced, symbol)
			e.store.LogEvent(store.EventNewDay, map[string]any{
				"symbol": symbol,
				"date":   dayKey,
			})
			e.logEntry().WithFields(map[string]interface{}{
				"symbol": symbol,
				"date":   dayKey,
			}).Info("Новый торговый день.")
		}

		if e.state.OrdersPlaced[symbol] == dayKey {
			continue
		}

		traded, err := e.alreadyTradedToday(ctx, symbol, dayStart)
		if err != nil {
			e.met.CycleErrorInc()
			e.logEntry().WithError(err).WithField("symbol", symbol).Warn("Не удалось проверить сделки за день.")
			continue
		}
		if traded {
			e.state.OrdersPlaced[symbol] = dayKey
			e.store.LogEvent(store.EventSkipAlreadyTradedToday, map[string]any{
				"symbol": symbol,
				"date":   dayKey,
			})
			e.logEntry().WithField("symbol", symbol).Info("Сделка за сегодня уже была, новых ордеров не будет.")
			continue
		}

		setup, err := e.setups.Setup(ctx, symbol, dayStart)
		if err != nil {
			e.met.CycleErrorInc()
			e.logEntry().WithError(err).WithField("symbol", symbol).Warn("Не удалось получить сетап.")
			continue
		}
		if setup == nil {
			if e.noSetupLogged[symbol] != dayKey {
				e.noSetupLogged[symbol] = dayKey
				e.store.LogEvent(store.EventNoSetup, map[string]any{
					"symbol": symbol,
					"date":   dayKey,
				})
				e.logEntry().WithField("symbol", symbol).Info("Сетапа на сегодня нет.")
			}
			continue
		}
		if !setup.ValidUntil.IsZero() && e.serverNow.After(setup.ValidUntil) {
			continue
		}

		if err := e.placeSetup(ctx, symbol, setup, dayStart); err != nil {
			if errors.Is(err, ErrInvalidSetup) || errors.Is(err, errDuplicateIntent) {
				e.state.OrdersPlaced[symbol] = dayKey
				continue
			}
			e.met.CycleErrorInc()
			e.logEntry().WithError(err).WithField("symbol", symbol).Warn("Не удалось разместить ордер, повтор в следующем цикле.")
			continue
		}
		e.state.OrdersPlaced[symbol] = dayKey
	}
}

func (e *Engine) alreadyTradedToday(ctx context.Context, symbol string, dayStart time.Time) (bool, error) {
	var deals []models.Deal
	err := e.withRetryVoid(ctx, func() error {
		var err error
		deals, err = e.gw.DealsSince(ctx, dayStart, e.cfg.Bot.Magic)
		return err
	})
	if err != nil {
		return false, err
	}
	for _, deal := range deals {
		if deal.Symbol == symbol && deal.Entry == models.DealEntryIn {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) placeSetup(ctx context.Context, symbol string, setup *models.Setup, dayStart time.Time) error {
	rules, err := e.ensureRules(ctx, symbol)
	if err != nil {
		return err
	}

	tick, err := e.withRetryQuote(ctx, symbol)
	if err != nil {
		return err
	}

	entry := setup.EntryPrice
	if setup.Direction == models.DirectionBuy && e.cfg.Bot.AdjustBuyLimitForSpread {
		entry += tick.Spread()
	}
	if setup.Direction == models.DirectionSell && e.cfg.Bot.AdjustSellLimitForSpread {
		entry -= tick.Spread()
	}

	if setup.Direction == models.DirectionBuy && entry >= tick.Ask {
		e.store.LogEvent(store.EventSkipInvalidBuyLimit, map[string]any{
			"symbol": symbol,
			"entry":  entry,
			"ask":    tick.Ask,
		})
		e.logEntry().WithFields(map[string]interface{}{
			"symbol": symbol,
			"entry":  entry,
			"ask":    tick.Ask,
		}).Warn("BUY LIMIT выше текущего Ask, сетап пропущен.")
		return ErrInvalidSetup
	}
	if setup.Direction == models.DirectionSell && entry <= tick.Bid {
		e.store.LogEvent(store.EventSkipInvalidSellLimit, map[string]any{
			"symbol": symbol,
			"entry":  entry,
			"bid":    tick.Bid,
		})
		e.logEntry().WithFields(map[string]interface{}{
			"symbol": symbol,
			"entry":  entry,
			"bid":    tick.Bid,
		}).Warn("SELL LIMIT ниже текущего Bid, сетап пропущен.")
		return ErrInvalidSetup
	}

	if e.isDuplicateIntent(symbol, setup.Direction, entry, rules) {
		e.store.LogEvent(store.EventSkipDuplicate, map[string]any{
			"symbol":    symbol,
			"direction": setup.Direction,
			"entry":     entry,
		})
		e.logEntry().WithFields(map[string]interface{}{
			"symbol": symbol,
			"entry":  entry,
		}).Info("Такой ордер уже есть, дубликат пропущен.")
		return errDuplicateIntent
	}

	acct, err := e.withRetryAccount(ctx)
	if err != nil {
		return err
	}

	sizing, err := risk.VolumeByRisk(rules, acct.Balance, e.cfg.Bot.RiskPct, entry, setup.StopLoss)
	if err != nil {
		return err
	}

	var expiration time.Time
	if e.cfg.Bot.CancelUnfilledEOD {
		expiration = dayStart.Add(24*time.Hour - time.Minute)
	}

	req := broker.PendingLimitRequest{
		Symbol:          symbol,
		Direction:       setup.Direction,
		Volume:          sizing.Volume,
		Price:           entry,
		StopLoss:        setup.StopLoss,
		TakeProfit:      setup.TakeProfit,
		DeviationPoints: e.cfg.Bot.DeviationPoints,
		Magic:           e.cfg.Bot.Magic,
		Comment:         e.cfg.Bot.Comment,
		Expiration:      expiration,
	}

	e.store.LogEvent(store.EventPlacingOrder, map[string]any{
		"symbol":      symbol,
		"direction":   setup.Direction,
		"entry":       entry,
		"sl":          setup.StopLoss,
		"tp":          setup.TakeProfit,
		"volume":      sizing.Volume,
		"risk_amount": math.Round(sizing.RiskAmount*100) / 100,
		"estimated_r": setup.EstimatedR,
	})
	e.logEntry().WithFields(map[string]interface{}{
		"symbol":    symbol,
		"direction": setup.Direction,
		"entry":     entry,
		"volume":    sizing.Volume,
	}).Info("Размещаем отложенный ордер.")

	var ticket int64
	var lastErr error
	for attempt := 1; attempt <= e.retryAttempts(); attempt++ {
		ticket, lastErr = e.gw.PlacePendingLimit(ctx, req)
		if lastErr == nil {
			break
		}
		e.store.LogEvent(store.EventOrderSendFailed, map[string]any{
			"symbol":  symbol,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		e.logEntry().WithError(lastErr).WithField("symbol", symbol).Warn("Ошибка размещения ордера, повторяем.")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryDelay()):
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrPlacementFailed, lastErr)
	}

	e.met.OrderPlacedInc()
	e.store.LogEvent(store.EventOrderSendResult, map[string]any{
		"symbol":     symbol,
		"ticket":     ticket,
		"direction":  setup.Direction,
		"entry":      entry,
		"sl":         setup.StopLoss,
		"tp":         setup.TakeProfit,
		"volume":     sizing.Volume,
		"expiration": formatTime(expiration),
	})
	e.logEntry().WithFields(map[string]interface{}{
		"symbol": symbol,
		"ticket": ticket,
	}).Info("Ордер размещён.")
	return nil
}

func (e *Engine) isDuplicateIntent(symbol string, direction models.Direction, entry float64, rules models.SymbolRules) bool {
	tolerance := float64(e.cfg.Bot.DuplicateTolerancePoints) * rules.Point

	same := func(price float64) bool {
		if tolerance <= 0 {
			return price == entry
		}
		return math.Abs(price-entry) <= tolerance
	}

	for _, order := range e.knownOrders {
		if order.Symbol == symbol && order.Direction == direction && same(order.EntryPrice) {
			return true
		}
	}
	for _, tr := range e.tracked {
		if tr.Symbol == symbol && tr.Direction == direction && same(tr.OpenPrice) {
			return true
		}
	}
	return false
}
