// Package graph persists canonical records and their derived entities in
// Neo4j. Unlike the relational store there is no batch transaction: every
// node/edge operation is its own unit of work, so a failure partway through a
// batch leaves the graph partially updated for that batch. The pipeline
// report carries the graph outcome separately so callers see how far a batch
// got.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	policy config.UpsertPolicy
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, policy config.UpsertPolicy) *Repository {
	return &Repository{
		driver: driver,
		policy: policy,
		logger: logger.Named("graph"),
	}
}

// Connect builds a driver from config and verifies connectivity
func Connect(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("neo4j", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewStoreUnavailable("neo4j", err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// EnsureConstraints creates the uniqueness constraints for the three node
// labels. Usuario is keyed by usuario_id: usernames can change, ids cannot,
// so the username is stored as a plain mutable property.
func (r *Repository) EnsureConstraints(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT IF NOT EXISTS FOR (u:Usuario) REQUIRE u.usuario_id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (t:Tweet) REQUIRE t.tweet_id IS UNIQUE`,
		`CREATE CONSTRAINT IF NOT EXISTS FOR (h:Hashtag) REQUIRE h.texto IS UNIQUE`,
	}
	for _, stmt := range constraints {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	r.logger.Info("Graph constraints ensured")
	return nil
}

// FetchUsuario returns the stored properties of one Usuario node, or nil when
// the node does not exist.
func (r *Repository) FetchUsuario(ctx context.Context, userID string) (*model.UserRecord, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:Usuario {usuario_id: $usuario_id})
		RETURN u.usuario_id AS usuario_id,
		       u.nombre_usuario AS nombre_usuario,
		       u.seguidores AS seguidores,
		       u.ubicacion AS ubicacion,
		       u.verificado AS verificado
	`, map[string]any{"usuario_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}
	record := result.Record()
	return &model.UserRecord{
		UserID:        getStringFromRecord(record, "usuario_id"),
		Username:      getStringFromRecord(record, "nombre_usuario"),
		FollowerCount: getIntFromRecord(record, "seguidores"),
		Location:      getStringFromRecord(record, "ubicacion"),
		Verified:      getBoolFromRecord(record, "verificado"),
	}, nil
}

// FetchTweet returns the stored properties of one Tweet node, or nil when the
// node does not exist.
func (r *Repository) FetchTweet(ctx context.Context, tweetID string) (*model.TweetRecord, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (t:Tweet {tweet_id: $tweet_id})
		RETURN t.tweet_id AS tweet_id,
		       t.contenido AS contenido,
		       t.fecha_hora AS fecha_hora,
		       t.retweets AS retweets,
		       t.likes AS likes,
		       t.sentimiento AS sentimiento
	`, map[string]any{"tweet_id": tweetID})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}
	record := result.Record()
	return &model.TweetRecord{
		TweetID:      getStringFromRecord(record, "tweet_id"),
		Content:      getStringFromRecord(record, "contenido"),
		Timestamp:    getStringFromRecord(record, "fecha_hora"),
		RetweetCount: getIntFromRecord(record, "retweets"),
		LikeCount:    getIntFromRecord(record, "likes"),
		Sentiment:    getFloat64FromRecord(record, "sentimiento"),
	}, nil
}

// CountNodes returns how many nodes carry the given label and property value.
// Used by tests to pin down idempotence.
func (r *Repository) CountNodes(ctx context.Context, label, property, value string) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(`MATCH (n:%s {%s: $value}) RETURN count(n) AS n`, label, property)
	result, err := session.Run(ctx, query, map[string]any{"value": value})
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch record: %w", err)
	}
	return getIntFromRecord(record, "n"), nil
}
