package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
)

// Record couples one canonical user/tweet pair with its derived entities,
// ready for graph insertion.
type Record struct {
	User       model.UserRecord
	Tweet      model.TweetRecord
	Mentions   []string
	Hashtags   []string
	References []string
}

// BatchResult reports what one UpsertBatch call did
type BatchResult struct {
	UsersMerged  int
	TweetsMerged int
	MentionEdges int
	HashtagEdges int
	RetweetEdges int
	// DeferredRefs counts RETWEETEA edges whose referenced tweet is not yet
	// known. The edge is not created; re-ingesting after the referenced tweet
	// arrives will create it.
	DeferredRefs int
}

// UpsertBatch merges every record into the graph. Per record the order is:
// Usuario node, Tweet node, PUBLICA edge, MENTIONA edges, TRATA_DE edges with
// Hashtag merge, RETWEETEA edges. Each operation commits on its own; an error
// aborts the batch where it stands and the partial writes remain.
func (r *Repository) UpsertBatch(ctx context.Context, records []Record) (BatchResult, error) {
	var res BatchResult
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, rec := range records {
		if err := r.mergeUsuario(ctx, session, rec.User); err != nil {
			return res, err
		}
		res.UsersMerged++

		if err := r.mergeTweet(ctx, session, rec.Tweet); err != nil {
			return res, err
		}
		res.TweetsMerged++

		if err := r.linkPublica(ctx, session, rec.User.UserID, rec.Tweet.TweetID); err != nil {
			return res, err
		}

		for _, mention := range rec.Mentions {
			if err := r.linkMentiona(ctx, session, rec.User.UserID, mention); err != nil {
				return res, err
			}
			res.MentionEdges++
		}

		for _, hashtag := range rec.Hashtags {
			if err := r.linkTrataDe(ctx, session, rec.Tweet.TweetID, hashtag); err != nil {
				return res, err
			}
			res.HashtagEdges++
		}

		for _, refID := range rec.References {
			created, err := r.linkRetweetea(ctx, session, rec.Tweet.TweetID, refID)
			if err != nil {
				return res, err
			}
			if created {
				res.RetweetEdges++
			} else {
				res.DeferredRefs++
				r.logger.Debug("referenced tweet not present, edge deferred",
					zap.String("tweet_id", rec.Tweet.TweetID),
					zap.String("ref_tweet_id", refID),
				)
			}
		}
	}
	return res, nil
}

func (r *Repository) mergeUsuario(ctx context.Context, session neo4j.SessionWithContext, u model.UserRecord) error {
	query := `
		MERGE (u:Usuario {usuario_id: $usuario_id})
		SET u.nombre_usuario = $nombre_usuario,
		    u.seguidores = $seguidores,
		    u.ubicacion = $ubicacion,
		    u.verificado = $verificado
	`
	if r.policy == config.FirstWriteWins {
		query = `
		MERGE (u:Usuario {usuario_id: $usuario_id})
		ON CREATE SET u.nombre_usuario = $nombre_usuario,
		    u.seguidores = $seguidores,
		    u.ubicacion = $ubicacion,
		    u.verificado = $verificado
	`
	}
	_, err := session.Run(ctx, query, map[string]any{
		"usuario_id":     u.UserID,
		"nombre_usuario": u.Username,
		"seguidores":     u.FollowerCount,
		"ubicacion":      u.Location,
		"verificado":     u.Verified,
	})
	if err != nil {
		return fmt.Errorf("failed to merge usuario %s: %w", u.UserID, err)
	}
	return nil
}

func (r *Repository) mergeTweet(ctx context.Context, session neo4j.SessionWithContext, t model.TweetRecord) error {
	query := `
		MERGE (t:Tweet {tweet_id: $tweet_id})
		SET t.contenido = $contenido,
		    t.fecha_hora = $fecha_hora,
		    t.retweets = $retweets,
		    t.likes = $likes,
		    t.sentimiento = $sentimiento
	`
	if r.policy == config.FirstWriteWins {
		query = `
		MERGE (t:Tweet {tweet_id: $tweet_id})
		ON CREATE SET t.contenido = $contenido,
		    t.fecha_hora = $fecha_hora,
		    t.retweets = $retweets,
		    t.likes = $likes,
		    t.sentimiento = $sentimiento
	`
	}
	_, err := session.Run(ctx, query, map[string]any{
		"tweet_id":    t.TweetID,
		"contenido":   t.Content,
		"fecha_hora":  t.Timestamp,
		"retweets":    t.RetweetCount,
		"likes":       t.LikeCount,
		"sentimiento": t.Sentiment,
	})
	if err != nil {
		return fmt.Errorf("failed to merge tweet %s: %w", t.TweetID, err)
	}
	return nil
}

func (r *Repository) linkPublica(ctx context.Context, session neo4j.SessionWithContext, userID, tweetID string) error {
	_, err := session.Run(ctx, `
		MATCH (u:Usuario {usuario_id: $usuario_id}), (t:Tweet {tweet_id: $tweet_id})
		MERGE (u)-[:PUBLICA]->(t)
	`, map[string]any{"usuario_id": userID, "tweet_id": tweetID})
	if err != nil {
		return fmt.Errorf("failed to link PUBLICA %s->%s: %w", userID, tweetID, err)
	}
	return nil
}

// linkMentiona creates a MENTIONA edge from the author to the mentioned user.
// Mention targets arrive as bare usernames: a target whose username is already
// stored gets the edge on its real node, and only a genuinely unseen target is
// merged as a stub Usuario under a surrogate "mention:" id carrying the
// username as a property. Identity stays usuario_id in both cases.
func (r *Repository) linkMentiona(ctx context.Context, session neo4j.SessionWithContext, userID, mention string) error {
	result, err := session.Run(ctx, `
		MATCH (u:Usuario {usuario_id: $usuario_id})
		MATCH (m:Usuario {nombre_usuario: $mention})
		MERGE (u)-[:MENTIONA]->(m)
		RETURN 1
	`, map[string]any{
		"usuario_id": userID,
		"mention":    mention,
	})
	if err != nil {
		return fmt.Errorf("failed to link MENTIONA %s->@%s: %w", userID, mention, err)
	}
	linked := result.Next(ctx)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to link MENTIONA %s->@%s: %w", userID, mention, err)
	}
	if linked {
		return nil
	}

	_, err = session.Run(ctx, `
		MATCH (u:Usuario {usuario_id: $usuario_id})
		MERGE (m:Usuario {usuario_id: $mention_id})
		ON CREATE SET m.nombre_usuario = $mention
		MERGE (u)-[:MENTIONA]->(m)
	`, map[string]any{
		"usuario_id": userID,
		"mention_id": "mention:" + mention,
		"mention":    mention,
	})
	if err != nil {
		return fmt.Errorf("failed to link MENTIONA %s->@%s: %w", userID, mention, err)
	}
	return nil
}

func (r *Repository) linkTrataDe(ctx context.Context, session neo4j.SessionWithContext, tweetID, hashtag string) error {
	_, err := session.Run(ctx, `
		MATCH (t:Tweet {tweet_id: $tweet_id})
		MERGE (h:Hashtag {texto: $hashtag})
		MERGE (t)-[:TRATA_DE]->(h)
	`, map[string]any{"tweet_id": tweetID, "hashtag": hashtag})
	if err != nil {
		return fmt.Errorf("failed to link TRATA_DE %s->#%s: %w", tweetID, hashtag, err)
	}
	return nil
}

// linkRetweetea creates a RETWEETEA edge only when the referenced tweet node
// already exists; otherwise it reports false and the edge is deferred to a
// later ingestion. No placeholder Tweet node is created for an unseen
// reference.
func (r *Repository) linkRetweetea(ctx context.Context, session neo4j.SessionWithContext, tweetID, refID string) (bool, error) {
	result, err := session.Run(ctx, `
		MATCH (t:Tweet {tweet_id: $tweet_id}), (rt:Tweet {tweet_id: $ref_tweet_id})
		MERGE (t)-[:RETWEETEA]->(rt)
		RETURN 1
	`, map[string]any{"tweet_id": tweetID, "ref_tweet_id": refID})
	if err != nil {
		return false, fmt.Errorf("failed to link RETWEETEA %s->%s: %w", tweetID, refID, err)
	}
	created := result.Next(ctx)
	if err := result.Err(); err != nil {
		return false, fmt.Errorf("failed to link RETWEETEA %s->%s: %w", tweetID, refID, err)
	}
	return created, nil
}
