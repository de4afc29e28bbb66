// Package analysis runs the read-side aggregate queries over the relational
// store. Each query is independent and side-effect free; one failing query is
// reported and the others still run.
package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/store/relational"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// TopUserCount is how many users the followers ranking returns
const TopUserCount = 5

// Analyzer runs aggregate queries against the relational store
type Analyzer struct {
	store  *relational.Store
	logger *zap.Logger
}

// New creates an Analyzer over the given store
func New(store *relational.Store) *Analyzer {
	return &Analyzer{store: store, logger: logger.Named("analysis")}
}

// SentimentSummary is the average-sentiment query result. HasData is false
// when zero tweets are stored; Average is meaningless in that case.
type SentimentSummary struct {
	HasData    bool    `json:"has_data"`
	Average    float64 `json:"average"`
	TweetCount int     `json:"tweet_count"`
}

// Report aggregates the three query results. A query that failed leaves its
// field zero-valued and its error in Errors.
type Report struct {
	Sentiment SentimentSummary       `json:"sentiment"`
	TopUsers  []relational.TopUser   `json:"top_users"`
	Trend     []relational.DateCount `json:"trend"`
	Errors    []string               `json:"errors,omitempty"`
}

// AverageSentiment reports the mean sentiment across all stored tweets,
// flagging the zero-tweet case explicitly instead of dividing by zero.
func (a *Analyzer) AverageSentiment(ctx context.Context) (SentimentSummary, error) {
	avg, n, err := a.store.AverageSentiment(ctx)
	if err != nil {
		return SentimentSummary{}, err
	}
	if n == 0 {
		return SentimentSummary{HasData: false}, nil
	}
	return SentimentSummary{HasData: true, Average: avg, TweetCount: n}, nil
}

// TopUsers returns the top-5 users by follower count
func (a *Analyzer) TopUsers(ctx context.Context) ([]relational.TopUser, error) {
	return a.store.TopUsersByFollowers(ctx, TopUserCount)
}

// Trend returns tweet counts bucketed by calendar date, ascending
func (a *Analyzer) Trend(ctx context.Context) ([]relational.DateCount, error) {
	return a.store.TweetCountsByDate(ctx)
}

// Run executes all three queries. Failures are collected per query and never
// abort the others.
func (a *Analyzer) Run(ctx context.Context) Report {
	var report Report

	sentiment, err := a.AverageSentiment(ctx)
	if err != nil {
		a.logger.Error("sentiment query failed", zap.Error(err))
		report.Errors = append(report.Errors, "sentiment: "+err.Error())
	} else {
		report.Sentiment = sentiment
		if sentiment.HasData {
			a.logger.Info("Average sentiment",
				zap.Float64("average", sentiment.Average),
				zap.Int("tweets", sentiment.TweetCount),
			)
		} else {
			a.logger.Info("No tweets stored, sentiment average unavailable")
		}
	}

	top, err := a.TopUsers(ctx)
	if err != nil {
		a.logger.Error("top users query failed", zap.Error(err))
		report.Errors = append(report.Errors, "top_users: "+err.Error())
	} else {
		report.TopUsers = top
		for _, u := range top {
			a.logger.Info("Influential user",
				zap.String("nombre_usuario", u.Username),
				zap.Int("seguidores", u.Followers),
			)
		}
	}

	trend, err := a.Trend(ctx)
	if err != nil {
		a.logger.Error("trend query failed", zap.Error(err))
		report.Errors = append(report.Errors, "trend: "+err.Error())
	} else {
		report.Trend = trend
		for _, dc := range trend {
			a.logger.Info("Tweets per day",
				zap.String("date", dc.Date),
				zap.Int("count", dc.Count),
			)
		}
	}

	return report
}
