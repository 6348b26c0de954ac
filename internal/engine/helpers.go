package engine

import (
	"context"
	"time"

	"sentinel/internal/broker"
	"sentinel/internal/models"
)

func (e *Engine) retryAttempts() int {
	if e.cfg.Bot.Retries <= 0 {
		return 1
	}
	return e.cfg.Bot.Retries
}

func (e *Engine) retryDelay() time.Duration {
	if e.cfg.Bot.RetryDelay <= 0 {
		return 2 * time.Second
	}
	return e.cfg.Bot.RetryDelay
}

func (e *Engine) withRetryVoid(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < e.retryAttempts(); i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if !broker.IsTransient(lastErr) {
			return lastErr
		}
		e.logEntry().WithError(lastErr).Warn("Ошибка, повторяем запрос.")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryDelay()):
		}
	}
	return lastErr
}

func (e *Engine) withRetryRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	var rules models.SymbolRules
	err := e.withRetryVoid(ctx, func() error {
		var err error
		rules, err = e.gw.SymbolRules(ctx, symbol)
		return err
	})
	return rules, err
}

func (e *Engine) withRetryQuote(ctx context.Context, symbol string) (models.Tick, error) {
	var tick models.Tick
	err := e.withRetryVoid(ctx, func() error {
		var err error
		tick, err = e.gw.Quote(ctx, symbol)
		return err
	})
	return tick, err
}

func (e *Engine) withRetryAccount(ctx context.Context) (models.AccountInfo, error) {
	var acct models.AccountInfo
	err := e.withRetryVoid(ctx, func() error {
		var err error
		acct, err = e.gw.Account(ctx)
		return err
	})
	return acct, err
}

func (e *Engine) ensureRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	if rules, ok := e.rules[symbol]; ok {
		return rules, nil
	}
	rules, err := e.withRetryRules(ctx, symbol)
	if err != nil {
		return models.SymbolRules{}, err
	}
	e.rules[symbol] = rules
	return rules, nil
}

func (e *Engine) modifyPosition(ctx context.Context, tr *TrackedPosition, stopLoss, takeProfit float64) error {
	return e.withRetryVoid(ctx, func() error {
		return e.gw.ModifyPosition(ctx, tr.Ticket, tr.Symbol, stopLoss, takeProfit)
	})
}

func isWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

func dayStartOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
