package setups

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/models"
)

func TestFileProviderReadsSetup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "setups.json")
	payload := `{
		"EURUSD": {
			"direction": "BUY",
			"entry_price": 1.0950,
			"stop_loss": 1.0900,
			"take_profit": 1.1100,
			"est_r": 3.0
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	p := NewFileProvider(path)
	setup, err := p.Setup(context.Background(), "EURUSD", time.Now())
	require.NoError(t, err)
	require.NotNil(t, setup)
	assert.Equal(t, "EURUSD", setup.Symbol)
	assert.Equal(t, models.DirectionBuy, setup.Direction)
	assert.InDelta(t, 1.0950, setup.EntryPrice, 1e-9)
	assert.InDelta(t, 1.0900, setup.StopLoss, 1e-9)
}

func TestFileProviderUnknownSymbol(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "setups.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	p := NewFileProvider(path)
	setup, err := p.Setup(context.Background(), "GBPUSD", time.Now())
	require.NoError(t, err)
	assert.Nil(t, setup)
}

func TestFileProviderMissingFile(t *testing.T) {
	t.Parallel()

	p := NewFileProvider(filepath.Join(t.TempDir(), "absent.json"))
	setup, err := p.Setup(context.Background(), "EURUSD", time.Now())
	require.NoError(t, err)
	assert.Nil(t, setup)
}

func TestFileProviderBadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "setups.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	p := NewFileProvider(path)
	_, err := p.Setup(context.Background(), "EURUSD", time.Now())
	assert.Error(t, err)
}
