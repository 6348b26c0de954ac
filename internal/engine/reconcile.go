package engine

import (
	"context"
	"sort"
	"time"

	"sentinel/internal/models"
	"sentinel/internal/store"
)

func (e *Engine) reconcileOrders(ctx context.Context) error {
	var orders []models.PendingOrder
	err := e.withRetryVoid(ctx, func() error {
		var err error
		orders, err = e.gw.PendingOrders(ctx, e.cfg.Bot.Magic)
		return err
	})
	if err != nil {
		return err
	}

	current := map[int64]models.PendingOrder{}
	for _, order := range orders {
		if order.Ticket <= 0 {
			continue
		}
		current[order.Ticket] = order
		e.lastOrders[order.Ticket] = order
	}

	var newTickets, goneTickets []int64
	for ticket := range current {
		if _, ok := e.knownOrders[ticket]; !ok {
			newTickets = append(newTickets, ticket)
		}
	}
	for ticket := range e.knownOrders {
		if _, ok := current[ticket]; !ok {
			goneTickets = append(goneTickets, ticket)
		}
	}
	sort.Slice(newTickets, func(i, j int) bool { return newTickets[i] < newTickets[j] })
	sort.Slice(goneTickets, func(i, j int) bool { return goneTickets[i] < goneTickets[j] })

	for _, ticket := range newTickets {
		order := current[ticket]
		e.store.LogEvent(store.EventPendingOrderSeen, map[string]any{
			"ticket":     ticket,
			"symbol":     order.Symbol,
			"direction":  order.Direction,
			"price_open": order.EntryPrice,
			"sl":         order.StopLoss,
			"tp":         order.TakeProfit,
			"volume":     order.Volume,
			"expiration": formatTime(order.Expiration),
		})
	}
	for _, ticket := range goneTickets {
		e.store.LogEvent(store.EventPendingOrderGone, map[string]any{"ticket": ticket})
	}

	if e.cfg.Bot.CancelUnfilledEOD {
		for ticket, order := range current {
			if order.Expiration.IsZero() || e.serverNow.Before(order.Expiration) {
				continue
			}
			err := e.withRetryVoid(ctx, func() error {
				return e.gw.CancelOrder(ctx, ticket, e.cfg.Bot.Magic, "expired")
			})
			payload := map[string]any{"ticket": ticket}
			if err != nil {
				payload["error"] = err.Error()
			}
			e.store.LogEvent(store.EventPendingOrderCancel, payload)
		}
	}

	e.knownOrders = current
	return nil
}

func (e *Engine) reconcilePositions(ctx context.Context) error {
	var positions []models.Position
	err := e.withRetryVoid(ctx, func() error {
		var err error
		positions, err = e.gw.OpenPositions(ctx, e.cfg.Bot.Magic)
		return err
	})
	if err != nil {
		return err
	}

	current := map[int64]models.Position{}
	for _, pos := range positions {
		if pos.Ticket <= 0 {
			continue
		}
		current[pos.Ticket] = pos
	}

	var goneTickets []int64
	for ticket := range e.tracked {
		if _, ok := current[ticket]; !ok {
			goneTickets = append(goneTickets, ticket)
		}
	}
	sort.Slice(goneTickets, func(i, j int) bool { return goneTickets[i] < goneTickets[j] })
	for _, ticket := range goneTickets {
		e.finalizeClosed(ticket)
	}

	var newTickets []int64
	for ticket, pos := range current {
		if tr, ok := e.tracked[ticket]; ok {
			tr.Volume = pos.Volume
			tr.CurrentSL = pos.StopLoss
			tr.CurrentTP = pos.TakeProfit
			continue
		}
		newTickets = append(newTickets, ticket)
	}
	sort.Slice(newTickets, func(i, j int) bool { return newTickets[i] < newTickets[j] })
	for _, ticket := range newTickets {
		e.adoptPosition(current[ticket])
	}

	e.met.SetOpenPositions(len(e.tracked))
	return nil
}

func (e *Engine) finalizeClosed(ticket int64) {
	tr, ok := e.tracked[ticket]
	if !ok {
		return
	}

	e.store.LogEvent(store.EventPositionGone, map[string]any{
		"ticket": ticket,
		"symbol": tr.Symbol,
		"phase":  tr.Phase,
	})

	if tr.Phase == models.PhaseTPCompressed {
		e.store.LogEvent(store.EventStateInconsistency, map[string]any{
			"ticket": ticket,
			"symbol": tr.Symbol,
			"reason": "position closed before partial completed",
		})
		e.logPosition(tr).Warn("Позиция закрылась до частичной фиксации.")
	}

	var removed []int64
	if _, ok := e.state.Compressions[ticket]; ok {
		delete(e.state.Compressions, ticket)
		removed = append(removed, ticket)
	}
	if _, ok := e.state.Partials[ticket]; ok {
		delete(e.state.Partials, ticket)
		removed = append(removed, ticket)
	}
	if len(removed) > 0 {
		e.store.LogEvent(store.EventCleanupClosedPartials, map[string]any{"removed_tickets": removed})
	}

	tr.Phase = models.PhaseClosed
	delete(e.tracked, ticket)
	e.met.PositionClosedInc()
	e.logEntry().WithFields(map[string]interface{}{
		"ticket": ticket,
		"symbol": tr.Symbol,
	}).Info("Позиция закрыта, сопровождение завершено.")
}

func (e *Engine) pollDeals(ctx context.Context) error {
	from := e.state.LastDealPoll
	if from.IsZero() {
		from = e.serverNow.Add(-12 * time.Hour)
	}

	var deals []models.Deal
	err := e.withRetryVoid(ctx, func() error {
		var err error
		deals, err = e.gw.DealsSince(ctx, from, e.cfg.Bot.Magic)
		return err
	})
	if err != nil {
		return err
	}

	for _, deal := range deals {
		if deal.Time.Before(from) {
			continue
		}
		e.store.LogEvent(store.EventDeal, map[string]any{
			"ticket":      deal.Ticket,
			"order":       deal.OrderTicket,
			"position_id": deal.PositionID,
			"symbol":      deal.Symbol,
			"direction":   deal.Direction,
			"entry":       deal.Entry,
			"volume":      deal.Volume,
			"price":       deal.Price,
			"profit":      deal.Profit,
			"time":        deal.Time.Format(time.RFC3339),
			"comment":     deal.Comment,
		})
	}

	e.state.LastDealPoll = e.serverNow
	return nil
}

func (e *Engine) weekendGate() bool {
	if !isWeekend(e.serverNow) {
		return false
	}
	key := e.serverNow.Format("2006-01-02")
	if e.state.LastWeekendNotice != key {
		e.state.LastWeekendNotice = key
		e.store.LogEvent(store.EventWeekendMode, map[string]any{
			"date":        key,
			"server_time": e.serverNow.Format(time.RFC3339),
		})
		e.logEntry().WithField("date", key).Info("Выходные: новые ордера не размещаются.")
	}
	return true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
