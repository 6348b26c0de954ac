package mt5bridge

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sentinel/internal/logger"
	"sentinel/internal/models"
)

type Client struct {
	baseURL    string
	wsURL      string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger

	mu     sync.Mutex
	quotes map[string]models.Tick

	wsStop chan struct{}
}

func New(baseURL, wsURL, apiToken string, log *logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		wsURL:    wsURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		log:     log,
		quotes:  map[string]models.Tick{},
		wsStop:  make(chan struct{}),
	}
}
