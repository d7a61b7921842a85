package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/loan-intake/internal/llm"
)

// Config for the chat-completions client. Any OpenAI-compatible endpoint
// works; the defaults target OpenRouter.
type Config struct {
	APIKey            string        // if empty, falls back to env OPENROUTER_API_KEY, then OPENAI_API_KEY
	BaseURL           string        // default https://openrouter.ai/api/v1
	Model             string        // default openai/gpt-4o
	Temperature       float32       // default 0.1
	Referer           string        // HTTP-Referer header
	Title             string        // X-Title header
	DocumentTimeout   time.Duration // per attempt, default 30s
	VisionTimeout     time.Duration // per attempt, default 60s
	RequestsPerMinute int           // 0 = no client-side pacing
	Retry             *llm.RetryPolicy
	HTTPClient        *http.Client
}

type Client struct {
	cfg     Config
	http    *http.Client
	retry   llm.RetryPolicy
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.DocumentTimeout <= 0 {
		cfg.DocumentTimeout = 30 * time.Second
	}
	if cfg.VisionTimeout <= 0 {
		cfg.VisionTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	retry := llm.DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	hc := cfg.HTTPClient
	if hc == nil {
		// per-attempt deadlines come from the request context
		hc = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Client{
		cfg:     cfg,
		http:    hc,
		retry:   retry,
		limiter: limiter,
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }
