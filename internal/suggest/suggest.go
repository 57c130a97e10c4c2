// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package suggest answers study-coaching prompts. With a configured model
// endpoint it proxies the prompt to a hosted chat-completion API behind a
// rate limiter and circuit breaker; without one it answers with a canned
// hint so the route works before a model is wired up.
package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/learntrack/learntrack/internal/config"
)

// Errors callers can map to HTTP statuses.
var (
	// ErrRateLimited indicates the per-process request budget is exhausted.
	ErrRateLimited = errors.New("suggestion rate limit exceeded")

	// ErrUpstream indicates the model endpoint failed or is unavailable.
	ErrUpstream = errors.New("model endpoint unavailable")
)

// Response is what the coach hands back for one prompt.
type Response struct {
	Message string `json:"message"`
	Prompt  string `json:"prompt,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// chat wire types for the hosted endpoint (OpenAI-compatible shape).
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client calls the configured model endpoint. Safe for concurrent use.
type Client struct {
	cfg     config.SuggestConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  zerolog.Logger
}

// NewClient builds a client from config. With an empty Endpoint the client
// never calls out and answers from the canned fallback.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewClient(cfg config.SuggestConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:    "suggest",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		breaker: breaker,
		logger:  logger,
	}
}

// Suggest answers one prompt. Returns ErrRateLimited when the request
// budget is spent and ErrUpstream when the endpoint cannot serve.
func (c *Client) Suggest(ctx context.Context, prompt string) (*Response, error) {
	if c.cfg.Endpoint == "" {
		return fallback(prompt), nil
	}

	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.call(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUpstream)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, prompt string) (*Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a study coach for a learning resource tracker. Keep answers short and actionable."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", httpResp.StatusCode).
			Msg("model endpoint returned non-200")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, httpResp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrUpstream, err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstream)
	}

	return &Response{
		Message: chat.Choices[0].Message.Content,
		Prompt:  prompt,
	}, nil
}

// fallback is the answer when no model endpoint is configured.
func fallback(prompt string) *Response {
	return &Response{
		Message: "Hello from /ai-coach",
		Prompt:  prompt,
		Hint:    "Configure suggest.endpoint to get model-backed coaching.",
	}
}
