// Package pipeline orchestrates one ingestion batch: canonicalize each raw
// item, enrich the tweet text, then write both stores. The two stores are
// independent resources, so their writes run concurrently; each enforces its
// own internal referential order.
//
// Consistency contract: the relational write is one transaction and rolls
// back wholesale on failure; the graph write commits per operation and may
// retain a prefix of the batch on failure. The Report carries both outcomes
// separately so operators see the divergence instead of guessing.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/enrich"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/graph"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/ingest"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/metrics"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/store/relational"
	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// RelationalStore is the slice of the relational store the pipeline writes to
type RelationalStore interface {
	UpsertBatch(ctx context.Context, users []model.UserRecord, tweets []model.TweetRecord) (relational.BatchResult, error)
}

// GraphStore is the slice of the graph repository the pipeline writes to
type GraphStore interface {
	UpsertBatch(ctx context.Context, records []graph.Record) (graph.BatchResult, error)
}

// Pipeline runs ingestion batches against both stores
type Pipeline struct {
	relational RelationalStore
	graph      GraphStore
	logger     *zap.Logger
}

// New creates a Pipeline over the two stores
func New(rel RelationalStore, gr GraphStore) *Pipeline {
	return &Pipeline{
		relational: rel,
		graph:      gr,
		logger:     logger.Named("pipeline"),
	}
}

// Report accounts for everything that happened to one batch
type Report struct {
	BatchID         string                 `json:"batch_id"`
	Received        int                    `json:"received"`
	Canonical       int                    `json:"canonical"`
	SkippedNoAuthor int                    `json:"skipped_no_author"`
	Malformed       int                    `json:"malformed"`
	Relational      relational.BatchResult `json:"relational"`
	Graph           graph.BatchResult      `json:"graph"`
	RelationalErr   string                 `json:"relational_error,omitempty"`
	GraphErr        string                 `json:"graph_error,omitempty"`
}

// Ingest processes one batch. Per-record problems (malformed input, missing
// author) are counted and skipped; the batch continues. A store-level failure
// is fatal and returned after the other store finishes.
func (p *Pipeline) Ingest(ctx context.Context, items []model.RawItem) (*Report, error) {
	start := time.Now()
	report := &Report{
		BatchID:  uuid.NewString(),
		Received: len(items),
	}
	log := p.logger.With(zap.String("batch_id", report.BatchID))

	var users []model.UserRecord
	var tweets []model.TweetRecord
	var records []graph.Record

	for i, item := range items {
		user, tweet, err := ingest.Canonicalize(item)
		switch {
		case err == nil:
		case err == apperrors.ErrSkippedNoAuthor:
			report.SkippedNoAuthor++
			metrics.RecordsSkipped.WithLabelValues("no_author").Inc()
			log.Warn("item has no author information, skipping", zap.Int("index", i))
			continue
		case apperrors.IsMalformedInput(err):
			report.Malformed++
			metrics.RecordsSkipped.WithLabelValues("malformed").Inc()
			log.Warn("malformed record, skipping", zap.Int("index", i), zap.Error(err))
			continue
		default:
			return report, err
		}

		enrichment := enrich.Enrich(tweet.Content, tweet.ReferencedTweetIDs)
		tweet.Sentiment = enrichment.Sentiment

		users = append(users, *user)
		tweets = append(tweets, *tweet)
		records = append(records, graph.Record{
			User:       *user,
			Tweet:      *tweet,
			Mentions:   enrichment.Mentions,
			Hashtags:   enrichment.Hashtags,
			References: enrichment.ReferencedTweetIDs,
		})
		report.Canonical++
	}

	// The stores share no mutable state; write them concurrently. A failure
	// in one does not cancel the other: each store must reach its own
	// consistent stopping point.
	var g errgroup.Group
	var relErr, graphErr error

	g.Go(func() error {
		res, err := p.relational.UpsertBatch(ctx, users, tweets)
		if err != nil {
			relErr = err
			metrics.UpsertErrors.WithLabelValues("sqlite").Inc()
			report.RelationalErr = err.Error()
			return nil
		}
		report.Relational = res
		return nil
	})
	g.Go(func() error {
		res, err := p.graph.UpsertBatch(ctx, records)
		report.Graph = res
		if err != nil {
			graphErr = err
			metrics.UpsertErrors.WithLabelValues("neo4j").Inc()
			report.GraphErr = err.Error()
			return nil
		}
		return nil
	})
	_ = g.Wait()

	metrics.BatchesIngested.Inc()
	metrics.RecordsIngested.Add(float64(report.Canonical))
	metrics.ObserveIngestDuration(start)

	log.Info("Batch ingested",
		zap.Int("received", report.Received),
		zap.Int("canonical", report.Canonical),
		zap.Int("skipped_no_author", report.SkippedNoAuthor),
		zap.Int("malformed", report.Malformed),
		zap.Int("relational_tweets", report.Relational.TweetsWritten),
		zap.Int("graph_tweets", report.Graph.TweetsMerged),
	)

	if relErr != nil {
		return report, relErr
	}
	if graphErr != nil {
		return report, graphErr
	}
	return report, nil
}
