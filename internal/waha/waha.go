package waha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/metrics"
	"go.uber.org/zap"
)

const (
	contentType       = "application/json"
	defaultSession    = "default"
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 3
	maxErrorBody      = 300
)

// Client talks to a WAHA (WhatsApp HTTP API) instance.
type Client struct {
	APIURL     string
	HTTPClient *http.Client

	apiKey     string
	session    string
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

type Config struct {
	URL     string
	APIKey  string
	Session string
	Timeout time.Duration
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Session == "" {
		cfg.Session = defaultSession
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		APIURL: strings.TrimRight(cfg.URL, "/"),
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:     cfg.APIKey,
		session:    cfg.Session,
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		logger: logger,
	}
}

type chatRequest struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text,omitempty"`
	Session string `json:"session"`
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %d", e.Code)
	}
	return fmt.Sprintf("bad status: %d: %s", e.Code, e.Body)
}

// SendText delivers text to chatID. Network failures, rate limits and 5xx
// answers are retried with exponential backoff.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("refusing to send an empty message", zap.String(logger.FieldConversation, chatID))
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries-1)), ctx)
	err := backoff.RetryNotify(func() error {
		err := c.post(ctx, "/api/sendText", chatRequest{ChatID: chatID, Text: text, Session: c.session})
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.logger.Debug("sendText failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	metrics.Gateway("send_text", err)
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// StartTyping shows the typing indicator. Failures are only logged.
func (c *Client) StartTyping(ctx context.Context, chatID string) {
	err := c.post(ctx, "/api/startTyping", chatRequest{ChatID: chatID, Session: c.session})
	metrics.Gateway("start_typing", err)
	if err != nil {
		c.logger.Debug("startTyping failed", zap.String(logger.FieldConversation, chatID), zap.Error(err))
	}
}

// StopTyping hides the typing indicator. Failures are only logged.
func (c *Client) StopTyping(ctx context.Context, chatID string) {
	err := c.post(ctx, "/api/stopTyping", chatRequest{ChatID: chatID, Session: c.session})
	metrics.Gateway("stop_typing", err)
	if err != nil {
		c.logger.Debug("stopTyping failed", zap.String(logger.FieldConversation, chatID), zap.Error(err))
	}
}

// SendSeen marks the chat as read. Failures are only logged.
func (c *Client) SendSeen(ctx context.Context, chatID string) {
	err := c.post(ctx, "/api/sendSeen", chatRequest{ChatID: chatID, Session: c.session})
	metrics.Gateway("send_seen", err)
	if err != nil {
		c.logger.Debug("sendSeen failed", zap.String(logger.FieldConversation, chatID), zap.Error(err))
	}
}

// Status returns the server status document.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/api/server/status", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(data)}
	}

	status := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return status, nil
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: truncate(data)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Accept", contentType)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}
	return true
}

func truncate(data []byte) string {
	return logger.TruncateForLog(string(data), maxErrorBody)
}
