// Package extract turns a Gmail thread into a raw lead record via a single
// chat-completion call, with a process-wide throttle and bounded retries.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// ErrMalformedResponse marks a model reply that could not be parsed as the
// expected JSON schema. It is terminal for the item and never retried.
var ErrMalformedResponse = errors.New("malformed extraction response")

// ChatClient is the slice of the OpenAI client the extractor needs.
// *openai.Client satisfies it; tests inject a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model              string
	MaxTokens          int
	MinCallInterval    time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	SummaryByteCeiling int
}

// Extractor issues extraction calls against the text-understanding service.
// The last-call timestamp is owned by the instance and shared across all
// extractions, so one extractor must serve the whole process.
type Extractor struct {
	chat   ChatClient
	agents model.AgentDirectory
	opts   Options
	logger *zap.Logger

	lastCall time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewExtractor(chat ChatClient, agents model.AgentDirectory, opts Options, logger *zap.Logger) *Extractor {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.SummaryByteCeiling <= 0 {
		opts.SummaryByteCeiling = 12000
	}
	return &Extractor{
		chat:   chat,
		agents: agents,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// WithClock overrides the time source and sleep function. Used by tests.
func (e *Extractor) WithClock(now func() time.Time, sleep func(time.Duration)) *Extractor {
	e.now = now
	e.sleep = sleep
	return e
}

// Extract builds a bounded thread summary, calls the model once (retrying
// only on rate limits), and parses the structured reply. agentEmail, when
// known from the search filter, backfills a missing referring agent.
func (e *Extractor) Extract(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
	summary, truncated := summarizeThread(thread, e.opts.SummaryByteCeiling)
	if truncated {
		e.logger.Warn("thread summary hit byte ceiling, hard-truncated",
			zap.String("thread_id", thread.ID))
	}
	prompt := buildPrompt(summary, thread.ID)

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		e.waitForRateLimit()

		resp, err = e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     e.opts.Model,
			MaxTokens: e.opts.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err == nil {
			break
		}
		if IsRateLimit(err) && attempt < e.opts.MaxRetries {
			wait := e.opts.BackoffBase * time.Duration(attempt)
			e.logger.Warn("rate limit hit, backing off",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", e.opts.MaxRetries),
				zap.Duration("wait", wait))
			e.sleep(wait)
			// The backoff already exceeds the min interval; clear the
			// timer so the retry is not throttled a second time.
			e.lastCall = time.Time{}
			continue
		}
		return nil, fmt.Errorf("extraction call failed for thread %s: %w", thread.ID, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	raw, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	// The thread identity always comes from the source, not the model.
	raw.ThreadID = thread.ID

	if (raw.ReferringAgent == nil || *raw.ReferringAgent == "") && agentEmail != "" {
		name := e.agents.DisplayName(agentEmail)
		raw.ReferringAgent = &name
	}
	return raw, nil
}

// waitForRateLimit blocks until the minimum interval since the previous
// call has elapsed, then claims the slot.
func (e *Extractor) waitForRateLimit() {
	if !e.lastCall.IsZero() {
		elapsed := e.now().Sub(e.lastCall)
		if elapsed < e.opts.MinCallInterval {
			wait := e.opts.MinCallInterval - elapsed
			e.logger.Info("throttling before next extraction call",
				zap.Duration("wait", wait))
			e.sleep(wait)
		}
	}
	e.lastCall = e.now()
}

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*\n(.*?)\n```")
	fencedAny  = regexp.MustCompile("(?s)```\\s*\n(.*?)\n```")
)

// parseResponse accepts raw JSON or JSON fenced in a markdown code block.
func parseResponse(content string) (*model.RawLead, error) {
	text := strings.TrimSpace(content)

	if strings.Contains(text, "```json") {
		if m := fencedJSON.FindStringSubmatch(text); m != nil {
			text = m[1]
		}
	} else if strings.Contains(text, "```") {
		if m := fencedAny.FindStringSubmatch(text); m != nil {
			text = m[1]
		}
	}

	var raw model.RawLead
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		excerpt := text
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}
		return nil, fmt.Errorf("%w: %v (response: %s)", ErrMalformedResponse, err, excerpt)
	}
	return &raw, nil
}

// IsRateLimit reports whether the error is the service's rate-limit signal.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "rate limit")
}

// IsTokenLimit reports whether the error means the prompt exceeded the
// model's context window even after trimming.
func IsTokenLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "prompt is too long") ||
		strings.Contains(msg, "maximum context length") ||
		strings.Contains(msg, "context_length_exceeded")
}
