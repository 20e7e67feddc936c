package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public endpoint used when no base URL is configured.
	DefaultBaseURL        = "https://translate.googleapis.com/translate_a/single"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryAttempts  = 3
	autoSourceLanguage    = "auto"
)

// Config captures the runtime settings required to reach the translation endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Result is a translated text plus the source language the endpoint detected.
type Result struct {
	Text       string
	SourceLang string
}

// Client wraps the translate_a/single endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a translation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Translate implements Translator with automatic source detection.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	result, err := c.TranslateFrom(ctx, text, autoSourceLanguage, targetLang)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// TranslateFrom translates text from sourceLang ("auto" or empty to detect) into targetLang.
func (c *Client) TranslateFrom(ctx context.Context, text, sourceLang, targetLang string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, errors.New("translate: text required")
	}
	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return Result{}, errors.New("translate: target language required")
	}
	sourceLang = strings.TrimSpace(sourceLang)
	if sourceLang == "" {
		sourceLang = autoSourceLanguage
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.sendOnce(ctx, text, sourceLang, targetLang)
		if err == nil {
			return result, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return Result{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return Result{}, fmt.Errorf("translate: failed after %d attempts: %w", attempts, lastErr)
}

// HealthCheck issues a single short translation to verify the endpoint responds.
func (c *Client) HealthCheck(ctx context.Context) error {
	result, err := c.sendOnce(ctx, "hello", "en", "es")
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Text) == "" {
		return errors.New("translate health: empty translation")
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if runes := []rune(body); len(runes) > 160 {
		body = string(runes[:160]) + "..."
	}
	return fmt.Sprintf("translate request: http %d: %s", e.StatusCode, body)
}

func (c *Client) sendOnce(ctx context.Context, text, sourceLang, targetLang string) (Result, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return Result{}, fmt.Errorf("translate request: build url: %w", err)
	}
	query := endpoint.Query()
	query.Set("client", "gtx")
	query.Set("sl", sourceLang)
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	if c.cfg.APIKey != "" {
		query.Set("key", c.cfg.APIKey)
	}
	endpoint.RawQuery = query.Encode()

	form := url.Values{}
	form.Set("q", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("translate request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("translate request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("translate request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return Result{}, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			RetryAfter: retryAfter,
		}
	}
	return decodeResponse(body)
}

// decodeResponse reads the positional array payload:
// [[["translated","original",...],...], null, "detected-source", ...].
func decodeResponse(body []byte) (Result, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("translate request: decode response: %w", err)
	}
	if len(payload) == 0 {
		return Result{}, errors.New("translate request: empty response")
	}
	var sentences [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return Result{}, fmt.Errorf("translate request: decode sentences: %w", err)
	}
	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(sentence[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	if b.Len() == 0 {
		return Result{}, errors.New("translate request: response carried no translated text")
	}
	result := Result{Text: b.String()}
	if len(payload) > 2 {
		var detected string
		if err := json.Unmarshal(payload[2], &detected); err == nil {
			result.SourceLang = detected
		}
	}
	return result, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
