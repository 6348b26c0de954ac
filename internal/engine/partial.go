package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"sentinel/internal/models"
	"sentinel/internal/store"
)

func (e *Engine) managePartials(ctx context.Context) {
	if e.cfg.Bot.Mode != ModeConservative {
		return
	}

	tickets := make([]int64, 0, len(e.tracked))
	for ticket := range e.tracked {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })

	for _, ticket := range tickets {
		tr, ok := e.tracked[ticket]
		if !ok {
			continue
		}
		if err := e.managePosition(ctx, tr); err != nil {
			e.met.CycleErrorInc()
			e.logPosition(tr).WithError(err).Warn("Шаг сопровождения позиции не выполнен, повтор в следующем цикле.")
		}
	}
}

func (e *Engine) managePosition(ctx context.Context, tr *TrackedPosition) error {
	switch tr.Phase {
	case models.PhaseOpened:
		return e.maybeCompress(ctx, tr)
	case models.PhaseTPCompressed:
		return e.maybePartial(ctx, tr)
	case models.PhasePartialTaken:
		return e.maybeRestore(ctx, tr)
	}
	return nil
}

func (e *Engine) maybeCompress(ctx context.Context, tr *TrackedPosition) error {
	if tr.RiskDistance <= 0 {
		return nil
	}

	compressed := ThresholdPrice(tr.OpenPrice, tr.RiskDistance, e.cfg.Bot.TriggerR, tr.Direction)

	originalTP := tr.OriginalTP
	rec, hasRec := e.state.Compressions[tr.Ticket]
	if hasRec {
		originalTP = rec.OriginalTP
	}

	if !needsCompression(tr.Direction, originalTP, compressed) {
		return nil
	}

	if !hasRec {
		rec = store.CompressionRecord{
			Symbol:       tr.Symbol,
			OriginalTP:   originalTP,
			CompressedTP: compressed,
			EntryPrice:   tr.OpenPrice,
			OriginalSL:   tr.OriginalSL,
			ModifiedAt:   time.Now(),
		}
		e.state.Compressions[tr.Ticket] = rec
		e.persist()
	}

	if err := e.modifyPosition(ctx, tr, tr.CurrentSL, compressed); err != nil {
		e.store.LogEvent(store.EventTPModifyTo3RFailed, map[string]any{
			"ticket": tr.Ticket,
			"symbol": tr.Symbol,
			"error":  err.Error(),
		})
		return err
	}

	rec.Confirmed = true
	rec.ModifiedAt = time.Now()
	e.state.Compressions[tr.Ticket] = rec

	tr.Phase = models.PhaseTPCompressed
	tr.OriginalTP = rec.OriginalTP
	tr.CurrentTP = compressed
	e.met.CompressionInc()

	e.store.LogEvent(store.EventTPModifiedTo3R, map[string]any{
		"ticket":      tr.Ticket,
		"symbol":      tr.Symbol,
		"original_tp": rec.OriginalTP,
		"new_tp_3r":   compressed,
		"entry":       tr.OpenPrice,
	})
	e.logPosition(tr).WithFields(map[string]interface{}{
		"original_tp": rec.OriginalTP,
		"tp_3r":       compressed,
	}).Info("TP сжат до уровня 3R.")
	e.persist()
	return nil
}

func (e *Engine) maybePartial(ctx context.Context, tr *TrackedPosition) error {
	tick, err := e.withRetryQuote(ctx, tr.Symbol)
	if err != nil {
		return err
	}

	currentPrice := tick.Bid
	if tr.Direction == models.DirectionSell {
		currentPrice = tick.Ask
	}

	currentR := CurrentR(tr.Direction, tr.OpenPrice, currentPrice, tr.RiskDistance)
	if currentR < e.cfg.Bot.TriggerR-triggerEpsilon {
		return nil
	}

	rules, err := e.ensureRules(ctx, tr.Symbol)
	if err != nil {
		return err
	}

	partial, err := PartialCloseVolume(tr.Volume, e.cfg.Bot.PartialFraction, rules)
	if err != nil {
		if errors.Is(err, ErrRoundingInfeasible) {
			e.store.LogEvent(store.EventPartialVolumeInvalid, map[string]any{
				"ticket":         tr.Ticket,
				"symbol":         tr.Symbol,
				"volume":         tr.Volume,
				"partial_volume": RoundDownToStep(tr.Volume*e.cfg.Bot.PartialFraction, rules.VolumeStep),
			})
			e.logPosition(tr).Warn("Объём частичного закрытия не проходит по ограничениям, отложено.")
			return nil
		}
		return err
	}

	if err := e.withRetryVoid(ctx, func() error {
		return e.gw.ClosePartial(ctx, tr.Ticket, tr.Symbol, partial)
	}); err != nil {
		e.store.LogEvent(store.EventPartialCloseFailed, map[string]any{
			"ticket": tr.Ticket,
			"symbol": tr.Symbol,
			"volume": partial,
			"error":  err.Error(),
		})
		return err
	}

	remaining := tr.Volume - partial
	e.met.PartialCloseInc()
	e.store.LogEvent(store.EventPartialCloseSuccess, map[string]any{
		"ticket":           tr.Ticket,
		"symbol":           tr.Symbol,
		"volume_closed":    partial,
		"volume_remaining": remaining,
		"current_r":        math.Round(currentR*100) / 100,
	})
	e.logPosition(tr).WithFields(map[string]interface{}{
		"closed":    partial,
		"remaining": remaining,
		"r":         currentR,
	}).Info("Частичная фиксация прибыли выполнена.")

	rec := store.PartialRecord{
		Symbol:          tr.Symbol,
		EntryPrice:      tr.OpenPrice,
		OriginalSL:      tr.OriginalSL,
		NewSL:           tr.OpenPrice,
		TakeProfit:      tr.OriginalTP,
		RAtPartial:      math.Round(currentR*100) / 100,
		VolumeClosed:    partial,
		VolumeRemaining: remaining,
		PartialAt:       time.Now(),
	}

	tr.Phase = models.PhasePartialTaken
	tr.Volume = remaining
	e.state.Partials[tr.Ticket] = rec
	delete(e.state.Compressions, tr.Ticket)
	e.persist()

	return e.restoreTargets(ctx, tr)
}

func (e *Engine) maybeRestore(ctx context.Context, tr *TrackedPosition) error {
	rec, ok := e.state.Partials[tr.Ticket]
	if !ok || rec.Restored {
		return nil
	}
	return e.restoreTargets(ctx, tr)
}

func (e *Engine) restoreTargets(ctx context.Context, tr *TrackedPosition) error {
	rec, ok := e.state.Partials[tr.Ticket]
	if !ok {
		return nil
	}

	if err := e.modifyPosition(ctx, tr, tr.OpenPrice, rec.TakeProfit); err != nil {
		e.store.LogEvent(store.EventTPRestoreFailed, map[string]any{
			"ticket": tr.Ticket,
			"symbol": tr.Symbol,
			"error":  err.Error(),
		})
		return err
	}

	rec.Restored = true
	e.state.Partials[tr.Ticket] = rec
	tr.CurrentSL = tr.OpenPrice
	tr.CurrentTP = rec.TakeProfit

	e.store.LogEvent(store.EventTPRestoredSLToBE, map[string]any{
		"ticket":      tr.Ticket,
		"symbol":      tr.Symbol,
		"new_sl":      tr.OpenPrice,
		"restored_tp": rec.TakeProfit,
	})
	e.logPosition(tr).WithFields(map[string]interface{}{
		"sl": tr.OpenPrice,
		"tp": rec.TakeProfit,
	}).Info("SL переведён в безубыток, исходный TP восстановлен.")
	e.persist()
	return nil
}
