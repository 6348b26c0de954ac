package engine

import (
	"math"

	"sentinel/internal/models"
	"sentinel/internal/store"
)

func (e *Engine) adoptPosition(pos models.Position) {
	tr := &TrackedPosition{
		Ticket:         pos.Ticket,
		Symbol:         pos.Symbol,
		Direction:      pos.Direction,
		OpenPrice:      pos.OpenPrice,
		Volume:         pos.Volume,
		OriginalVolume: pos.Volume,
		CurrentSL:      pos.StopLoss,
		CurrentTP:      pos.TakeProfit,
		Phase:          models.PhaseOpened,
	}

	inferred := false
	switch {
	case e.hasPartialRecord(pos.Ticket):
		rec := e.state.Partials[pos.Ticket]
		tr.Phase = models.PhasePartialTaken
		tr.OriginalTP = rec.TakeProfit
		tr.OriginalSL = rec.OriginalSL
		tr.OriginalVolume = rec.VolumeClosed + rec.VolumeRemaining
	case e.hasCompressionRecord(pos.Ticket):
		rec := e.state.Compressions[pos.Ticket]
		tr.OriginalTP = rec.OriginalTP
		tr.OriginalSL = rec.OriginalSL
		if rec.Confirmed {
			tr.Phase = models.PhaseTPCompressed
		}
	default:
		if order, ok := e.lastOrders[pos.Ticket]; ok {
			tr.OriginalTP = order.TakeProfit
			tr.OriginalSL = order.StopLoss
		} else {
			tr.OriginalTP = pos.TakeProfit
			tr.OriginalSL = pos.StopLoss
			inferred = true
		}
	}

	tr.RiskDistance = math.Abs(tr.OpenPrice - tr.OriginalSL)
	tr.ThresholdPrice = ThresholdPrice(tr.OpenPrice, tr.RiskDistance, e.cfg.Bot.TriggerR, tr.Direction)
	e.tracked[pos.Ticket] = tr

	payload := map[string]any{
		"ticket":     pos.Ticket,
		"symbol":     pos.Symbol,
		"direction":  pos.Direction,
		"volume":     pos.Volume,
		"price_open": pos.OpenPrice,
		"sl":         pos.StopLoss,
		"tp":         pos.TakeProfit,
		"profit":     pos.Profit,
		"phase":      tr.Phase,
	}
	if inferred {
		payload["original_tp_inferred"] = true
		e.store.LogEvent(store.EventPositionAdopted, payload)
		e.store.LogEvent(store.EventStateInconsistency, map[string]any{
			"ticket": pos.Ticket,
			"symbol": pos.Symbol,
			"reason": "unknown position adopted, original tp inferred from current tp",
		})
		e.logPosition(tr).Warn("Принята неизвестная позиция, исходный TP выведен из текущего.")
		return
	}
	e.store.LogEvent(store.EventPositionOpenSeen, payload)
	e.logPosition(tr).WithField("volume", tr.Volume).Info("Позиция взята на сопровождение.")
}

func (e *Engine) hasPartialRecord(ticket int64) bool {
	_, ok := e.state.Partials[ticket]
	return ok
}

func (e *Engine) hasCompressionRecord(ticket int64) bool {
	_, ok := e.state.Compressions[ticket]
	return ok
}
