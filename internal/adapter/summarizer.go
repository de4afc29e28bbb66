// Package adapter wraps the OpenAI chat-completions API behind the one call
// this system makes: summarizing a batch of tweets.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

const (
	maxRetries  = 5
	initialWait = 2 * time.Second
)

// Summarizer generates a publishable summary of a tweet batch
type Summarizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewSummarizer creates a Summarizer. baseURL is optional and overrides the
// OpenAI endpoint for proxies.
func NewSummarizer(apiKey, baseURL, model string) *Summarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("summarizer"),
	}
}

// Summarize asks the model for a trends/sentiment/topics summary of the
// combined tweet text, written as a tweet ready to publish. Transient
// failures are retried up to 5 times with exponential backoff starting at 2s;
// after that the failure is permanent.
func (s *Summarizer) Summarize(ctx context.Context, combinedText string) (string, error) {
	if strings.TrimSpace(combinedText) == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	prompt := fmt.Sprintf(
		"Analiza los siguientes tweets y proporciona un resumen de las tendencias, sentimientos y temas principales:\n\n%s\n\n"+
			"Redacta un tweet con esta informacion para compartir con otros usuarios. "+
			"Utiliza emojis, hashtags y menciones para hacerlo mas interesante y atractivo para los lectores.",
		combinedText,
	)

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   4000,
		Temperature: 0.5,
	}

	wait := initialWait
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			s.logger.Warn("Retrying summarization",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			wait *= 2
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", apperrors.NewSummarizationFailed(s.model, maxRetries, lastErr)
}

// CombineTweets joins tweet contents the way the summarization prompt
// expects, skipping empty texts.
func CombineTweets(contents []string) string {
	parts := make([]string, 0, len(contents))
	for _, c := range contents {
		if strings.TrimSpace(c) != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "\n\n")
}
