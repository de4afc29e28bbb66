// Package twitter is the boundary to the X API v2. The pipeline never talks
// to it directly; it only sees the API-pair items it returns.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// Client defines the methods the pipeline needs from the social API
type Client interface {
	// FetchRecentPosts returns up to limit recent tweets of username, each
	// paired with the author's user object.
	FetchRecentPosts(ctx context.Context, username string, limit int) ([]model.APIPairItem, error)
	// PostTweet publishes text as a new tweet
	PostTweet(ctx context.Context, text string) error
}

// HTTPClient is a bearer-token client for the X API v2
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      *zap.Logger
}

// NewHTTPClient creates a client with default rate limiting and retry bounds
func NewHTTPClient(bearerToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://api.twitter.com/2",
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(1), 5),
		maxAttempts: 5,
		baseBackoff: 2 * time.Second,
		logger:      logger.Named("twitter"),
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// FetchRecentPosts resolves the username to a user object, fetches that
// user's recent tweets, and pairs each tweet with the user. AccessDenied is
// returned unwrapped so the caller can abort this username and keep the run
// going.
func (c *HTTPClient) FetchRecentPosts(ctx context.Context, username string, limit int) ([]model.APIPairItem, error) {
	if username == "" {
		return nil, errors.New("empty username")
	}

	user, err := c.getUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	tweets, err := c.getUserTweets(ctx, user.ID.String(), limit)
	if err != nil {
		return nil, err
	}

	items := make([]model.APIPairItem, 0, len(tweets))
	for i := range tweets {
		items = append(items, model.APIPairItem{Tweet: &tweets[i], User: user})
	}
	c.logger.Info("Fetched recent posts",
		zap.String("username", username),
		zap.Int("count", len(items)),
	)
	return items, nil
}

func (c *HTTPClient) getUserByUsername(ctx context.Context, username string) (*model.APIUser, error) {
	u := fmt.Sprintf("%s/users/by/username/%s?user.fields=public_metrics,verified,location", c.baseURL, url.PathEscape(username))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)

	resp, err := c.doWithRetry(ctx, req, username)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		Data *model.APIUser `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("user @%s not found", username)
	}
	return raw.Data, nil
}

func (c *HTTPClient) getUserTweets(ctx context.Context, userID string, limit int) ([]model.APITweet, error) {
	u := fmt.Sprintf("%s/users/%s/tweets?max_results=%d&tweet.fields=created_at,public_metrics,lang,referenced_tweets",
		c.baseURL, url.PathEscape(userID), clamp(limit, 5, 100))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	c.auth(req)

	resp, err := c.doWithRetry(ctx, req, userID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		Data []model.APITweet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode tweets response: %w", err)
	}
	return raw.Data, nil
}

// PostTweet publishes text via the v2 tweet creation endpoint
func (c *HTTPClient) PostTweet(ctx context.Context, text string) error {
	body, _ := json.Marshal(map[string]string{"text": text})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.doWithRetry(ctx, req, "post")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Info("Tweet published")
	return nil
}

// doWithRetry runs the request under the rate limiter with a bounded retry
// loop: 429 waits out Retry-After (falling back to the computed backoff),
// 5xx and transport errors back off exponentially, 403 maps to AccessDenied
// immediately. Context cancellation is checked between attempts.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, subject string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err == nil {
			switch {
			case resp.StatusCode == http.StatusForbidden:
				_ = resp.Body.Close()
				return nil, apperrors.NewAccessDenied(subject, nil)
			case resp.StatusCode == http.StatusTooManyRequests:
				wait := retryAfter(resp, backoff)
				_ = resp.Body.Close()
				lastErr = apperrors.NewRateLimited(wait)
				c.logger.Warn("Rate limited, backing off",
					zap.String("subject", subject),
					zap.Duration("wait", wait),
					zap.Int("attempt", attempt),
				)
				if err := sleepCtx(ctx, wait); err != nil {
					return nil, err
				}
				backoff *= 2
				continue
			case resp.StatusCode >= 500:
				_ = resp.Body.Close()
				lastErr = fmt.Errorf("x api status %d", resp.StatusCode)
			case resp.StatusCode >= 400:
				_ = resp.Body.Close()
				return nil, fmt.Errorf("x api status %d", resp.StatusCode)
			default:
				return resp, nil
			}
		} else {
			lastErr = err
		}

		c.logger.Warn("Upstream request failed, retrying",
			zap.String("subject", subject),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}

	if rl, ok := lastErr.(*apperrors.ErrRateLimited); ok {
		return nil, rl
	}
	return nil, apperrors.NewTransientUpstream(c.maxAttempts, lastErr)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
