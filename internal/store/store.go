package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Store struct {
	baseDir    string
	statePath  string
	eventsPath string

	mu sync.Mutex
}

func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("Не удалось создать каталог состояния: %w", err)
	}
	return &Store{
		baseDir:    baseDir,
		statePath:  filepath.Join(baseDir, "state.json"),
		eventsPath: filepath.Join(baseDir, "events.jsonl"),
	}, nil
}

func (s *Store) LoadState() (*State, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("Не удалось прочитать состояние: %w", err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("Не удалось разобрать состояние: %w", err)
	}
	state.ensureMaps()
	return state, nil
}

func (s *Store) SaveState(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.SavedAt = time.Now()
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("Не удалось сериализовать состояние: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("Не удалось создать временный файл: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("Не удалось записать состояние: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("Не удалось сбросить состояние на диск: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.statePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("Не удалось заменить файл состояния: %w", err)
	}
	return nil
}
