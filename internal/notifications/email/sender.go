// Package email delivers messages through a transactional email provider's HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bissquit/newsletter-garden/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	messagePath    = "email"

	// maxErrorBody bounds how much of a provider error response is kept.
	maxErrorBody = 4 << 10
)

// ErrDispatch matches every error returned by Sender.Send.
var ErrDispatch = errors.New("email dispatch failed")

// Config holds email provider client configuration.
type Config struct {
	BaseURL            string
	SenderEmail        string
	AuthorizationToken string
	Timeout            time.Duration
	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
}

// Sender implements notifications.Sender over the provider's HTTP API.
// It is safe for concurrent use.
type Sender struct {
	config     Config
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewSender creates a new email sender.
func NewSender(config Config, logger *slog.Logger) (*Sender, error) {
	if config.BaseURL == "" {
		return nil, errors.New("email sender: base url is required")
	}
	if config.SenderEmail == "" {
		return nil, errors.New("email sender: sender email is required")
	}
	if config.AuthorizationToken == "" {
		return nil, errors.New("email sender: authorization token is required")
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint, err := url.JoinPath(config.BaseURL, messagePath)
	if err != nil {
		return nil, fmt.Errorf("email sender: invalid base url: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	logger.Info("email sender configured",
		"endpoint", endpoint,
		"sender_email", config.SenderEmail,
		"timeout", config.Timeout,
		"rate_limit", config.RateLimit,
	)

	return &Sender{
		config:   config,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send posts msg to {base_url}/email. It makes a single attempt bounded by
// the configured timeout and never retries.
// Errors are *TransientError (transport failures, timeouts, 5xx)
// or *PermanentError (4xx and other unexpected statuses).
func (s *Sender) Send(ctx context.Context, msg notifications.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return &TransientError{Message: "rate limit wait", Err: err}
	}

	body, err := json.Marshal(sendEmailRequest{
		From:     s.config.SenderEmail,
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	if err != nil {
		return &PermanentError{Message: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.AuthorizationToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransientError{Message: "send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp)
}

func (s *Sender) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		s.logger.Debug("email accepted by provider", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &TransientError{Code: resp.StatusCode, Message: "read response", Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return &TransientError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("server error: %s", string(body)),
		}
	case resp.StatusCode >= 400:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("client error: %s", string(body)),
		}
	default:
		return &PermanentError{
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("unexpected status: %s", string(body)),
		}
	}
}

// PermanentError indicates the provider rejected the request; resending it unchanged will fail again.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("email provider error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("email provider error: %s", e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// Is matches ErrDispatch.
func (e *PermanentError) Is(target error) bool { return target == ErrDispatch }

// TransientError indicates a timeout, transport failure or provider-side error.
type TransientError struct {
	Code    int
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code > 0 {
		return fmt.Sprintf("email provider error %d: %s", e.Code, msg)
	}
	return fmt.Sprintf("email provider error: %s", msg)
}

// IsRetryable returns true as these errors are temporary.
func (e *TransientError) IsRetryable() bool { return true }

// Is matches ErrDispatch.
func (e *TransientError) Is(target error) bool { return target == ErrDispatch }

func (e *TransientError) Unwrap() error { return e.Err }
