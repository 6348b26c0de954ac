package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	EventStartup                = "startup"
	EventShutdown               = "shutdown"
	EventNewDay                 = "new_day"
	EventWeekendMode            = "weekend_mode"
	EventNoSetup                = "no_setup"
	EventSkipInvalidBuyLimit    = "skip_invalid_buy_limit"
	EventSkipInvalidSellLimit   = "skip_invalid_sell_limit"
	EventSkipDuplicate          = "skip_duplicate"
	EventSkipAlreadyTradedToday = "skip_already_traded_today"
	EventPlacingOrder           = "placing_order"
	EventOrderSendResult        = "order_send_result"
	EventOrderSendFailed        = "order_send_failed"
	EventPendingOrderSeen       = "pending_order_seen"
	EventPendingOrderGone       = "pending_order_gone"
	EventPendingOrderCancel     = "pending_order_cancel_attempt"
	EventPositionOpenSeen       = "position_open_seen"
	EventPositionAdopted        = "position_adopted"
	EventPositionGone           = "position_gone"
	EventDeal                   = "deal"
	EventTPModifiedTo3R         = "tp_modified_to_3r"
	EventTPModifyTo3RFailed     = "tp_modify_to_3r_failed"
	EventPartialCloseSuccess    = "partial_close_success"
	EventPartialCloseFailed     = "partial_close_failed"
	EventPartialVolumeInvalid   = "partial_volume_invalid"
	EventTPRestoredSLToBE       = "tp_restored_sl_to_be"
	EventTPRestoreFailed        = "tp_restore_failed"
	EventCleanupClosedPartials  = "cleanup_closed_partials"
	EventStateInconsistency     = "state_inconsistency"
)

type Event struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (s *Store) LogEvent(eventType string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payload == nil {
		payload = map[string]any{}
	}
	row := Event{
		ID:      ulid.Make().String(),
		Time:    time.Now(),
		Type:    eventType,
		Payload: payload,
	}
	line, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("Не удалось сериализовать событие: %w", err)
	}

	f, err := os.OpenFile(s.eventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("Не удалось открыть журнал событий: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("Не удалось записать событие: %w", err)
	}
	return nil
}

func (s *Store) TailEvents(n int) ([]Event, error) {
	f, err := os.Open(s.eventsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
