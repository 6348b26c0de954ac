package setups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"sentinel/internal/models"
)

type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Setup(ctx context.Context, symbol string, day time.Time) (*models.Setup, error) {
	if p.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("Не удалось прочитать файл сетапов: %w", err)
	}

	var bySymbol map[string]models.Setup
	if err := json.Unmarshal(data, &bySymbol); err != nil {
		return nil, fmt.Errorf("Не удалось разобрать файл сетапов: %w", err)
	}

	setup, ok := bySymbol[symbol]
	if !ok {
		return nil, nil
	}
	setup.Symbol = symbol
	return &setup, nil
}
