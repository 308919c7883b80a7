package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coursecal/coursecal-backend/internal/logger"
	"github.com/coursecal/coursecal-backend/internal/utils"
)

// GeminiClient is the outbound call to the generative-language service. The
// extraction service treats any error from it as a signal to fall back to
// regex extraction.
type GeminiClient interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig is injected into the client instead of being read from
// process-wide state inside it. Timeout bounds the whole request; an
// unresponsive upstream must never hang a request handler.
type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func LoadGeminiConfig(log *logger.Logger) GeminiConfig {
	timeoutSec := utils.GetEnvAsInt("GEMINI_TIMEOUT_SECONDS", 60, log)
	return GeminiConfig{
		BaseURL:    utils.GetEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com", log),
		APIKey:     utils.GetEnv("GEMINI_API_KEY", "", log),
		Model:      utils.GetEnv("GEMINI_MODEL", "gemini-2.0-flash", log),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: utils.GetEnvAsInt("GEMINI_MAX_RETRIES", 2, log),
	}
}

type geminiClient struct {
	log        *logger.Logger
	cfg        GeminiConfig
	httpClient *http.Client
}

func NewGeminiClient(log *logger.Logger, cfg GeminiConfig) (GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &geminiClient{
		log:        log.With("service", "GeminiClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	return false
}

// +/- 20%
func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// Request/response shapes for models/*:generateContent. The generation
// parameters are fixed and kept low-temperature to bias toward deterministic
// extraction.

type generateContentRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *geminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	req := generateContentRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			TopK:            1,
			TopP:            0.8,
			MaxOutputTokens: 8192,
		},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.cfg.Model)
	var resp generateContentResponse
	if err := c.do(ctx, path, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty completion from model")
	}
	var out strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("gemini decode error: %w", uErr)
			}
			return nil
		}

		if !isRetryableErr(err) {
			return err
		}
		if attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}
