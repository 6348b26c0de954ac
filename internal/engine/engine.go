package engine

import (
	"context"
	"sync"
	"time"

	"sentinel/internal/broker"
	"sentinel/internal/config"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/models"
	"sentinel/internal/store"
)

const ModeConservative = "conservative"

type SetupProvider interface {
	Setup(ctx context.Context, symbol string, day time.Time) (*models.Setup, error)
}

type TrackedPosition struct {
	Ticket         int64
	Symbol         string
	Direction      models.Direction
	OpenPrice      float64
	Volume         float64
	OriginalVolume float64
	OriginalSL     float64
	CurrentSL      float64
	CurrentTP      float64
	OriginalTP     float64
	RiskDistance   float64
	ThresholdPrice float64
	Phase          models.Phase
}

type Engine struct {
	cfg    *config.Config
	gw     broker.Gateway
	store  *store.Store
	setups SetupProvider
	log    *logger.Logger
	met    *metrics.Metrics

	mu            sync.Mutex
	state         *store.State
	tracked       map[int64]*TrackedPosition
	knownOrders   map[int64]models.PendingOrder
	lastOrders    map[int64]models.PendingOrder
	rules         map[string]models.SymbolRules
	noSetupLogged map[string]string
	serverNow     time.Time
}

func New(cfg *config.Config, gw broker.Gateway, st *store.Store, setups SetupProvider, met *metrics.Metrics, log *logger.Logger) (*Engine, error) {
	state, err := st.LoadState()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:           cfg,
		gw:            gw,
		store:         st,
		setups:        setups,
		log:           log,
		met:           met,
		state:         state,
		tracked:       map[int64]*TrackedPosition{},
		knownOrders:   map[int64]models.PendingOrder{},
		lastOrders:    map[int64]models.PendingOrder{},
		rules:         map[string]models.SymbolRules{},
		noSetupLogged: map[string]string{},
	}, nil
}

func (e *Engine) Start(ctx context.Context) error {
	for _, symbol := range e.cfg.Bot.Symbols {
		rules, err := e.withRetryRules(ctx, symbol)
		if err != nil {
			e.logEntry().WithError(err).WithField("symbol", symbol).Warn("Не удалось получить ограничения символа, пропуск.")
			continue
		}
		e.rules[symbol] = rules
	}

	e.store.LogEvent(store.EventStartup, map[string]any{
		"mode":      e.cfg.Bot.Mode,
		"symbols":   e.cfg.Bot.Symbols,
		"magic":     e.cfg.Bot.Magic,
		"trigger_r": e.cfg.Bot.TriggerR,
	})
	e.logEntry().WithFields(map[string]interface{}{
		"mode":    e.cfg.Bot.Mode,
		"symbols": len(e.cfg.Bot.Symbols),
	}).Info("Запуск цикла сверки.")

	interval := e.cfg.Bot.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.store.LogEvent(store.EventShutdown, nil)
			e.logEntry().Info("Цикл сверки остановлен.")
			return nil
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

func (e *Engine) RunCycle(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.met.CycleInc()

	now, err := e.gw.ServerTime(ctx)
	if err != nil {
		e.logEntry().WithError(err).Warn("Не удалось получить время сервера, используем локальное.")
		now = time.Now()
	}
	e.serverNow = now

	if err := e.reconcileOrders(ctx); err != nil {
		e.met.CycleErrorInc()
		e.logEntry().WithError(err).Warn("Сверка отложенных ордеров не удалась.")
	}
	if err := e.reconcilePositions(ctx); err != nil {
		e.met.CycleErrorInc()
		e.logEntry().WithError(err).Warn("Сверка позиций не удалась.")
	}

	e.managePartials(ctx)

	if err := e.pollDeals(ctx); err != nil {
		e.met.CycleErrorInc()
		e.logEntry().WithError(err).Warn("Опрос истории сделок не удался.")
	}

	if !e.weekendGate() {
		e.scanSetups(ctx)
	}

	e.persist()
}

func (e *Engine) persist() {
	if err := e.store.SaveState(e.state); err != nil {
		e.met.CycleErrorInc()
		e.logEntry().WithError(err).Error("Не удалось сохранить состояние.")
	}
}

func (e *Engine) Tracked(ticket int64) (TrackedPosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, ok := e.tracked[ticket]
	if !ok {
		return TrackedPosition{}, false
	}
	return *tr, true
}
