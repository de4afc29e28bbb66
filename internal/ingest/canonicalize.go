// Package ingest converts raw input items of either shape into canonical
// user/tweet record pairs. Shape detection happens once, here; nothing
// downstream looks at raw input again.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
)

// DecodeBatch parses a JSON array whose elements are either API-pair items
// (discriminated by a "tweet" key paired with a "user" key) or flat persisted
// records, and tags each one.
func DecodeBatch(data []byte) ([]model.RawItem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("batch is not a JSON array: %w", err)
	}

	items := make([]model.RawItem, 0, len(raws))
	for i, raw := range raws {
		var probe struct {
			Tweet json.RawMessage `json:"tweet"`
			User  json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("item %d is not a JSON object: %w", i, err)
		}

		if probe.Tweet != nil {
			var pair model.APIPairItem
			if err := json.Unmarshal(raw, &pair); err != nil {
				return nil, fmt.Errorf("item %d: invalid API pair: %w", i, err)
			}
			items = append(items, model.RawItem{API: &pair})
			continue
		}

		var flat model.FlatRecord
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("item %d: invalid flat record: %w", i, err)
		}
		items = append(items, model.RawItem{Flat: &flat})
	}
	return items, nil
}

// Canonicalize produces the canonical record pair for one input item.
//
// An API-pair item without a user sub-object returns ErrSkippedNoAuthor: the
// tweet cannot be attributed, the caller counts the skip and moves on. A
// record missing its required identifier returns ErrMalformedInput. Missing
// metric maps default to zero, and numeric identifiers are already normalized
// to strings by decoding.
func Canonicalize(item model.RawItem) (*model.UserRecord, *model.TweetRecord, error) {
	switch {
	case item.API != nil:
		return canonicalizePair(item.API)
	case item.Flat != nil:
		return canonicalizeFlat(item.Flat)
	default:
		return nil, nil, apperrors.NewMalformedInput("input item", nil)
	}
}

func canonicalizePair(pair *model.APIPairItem) (*model.UserRecord, *model.TweetRecord, error) {
	if pair.Tweet == nil || pair.Tweet.ID == "" {
		return nil, nil, apperrors.NewMalformedInput("tweet.id", nil)
	}
	if pair.User == nil {
		return nil, nil, apperrors.ErrSkippedNoAuthor
	}
	if pair.User.ID == "" {
		return nil, nil, apperrors.NewMalformedInput("user.id", nil)
	}

	user := &model.UserRecord{
		UserID:   pair.User.ID.String(),
		Username: pair.User.Username,
		Location: pair.User.Location,
		Verified: pair.User.Verified,
	}
	if pair.User.PublicMetrics != nil {
		user.FollowerCount = clampCount(pair.User.PublicMetrics.FollowersCount)
	}

	tweet := &model.TweetRecord{
		TweetID:   pair.Tweet.ID.String(),
		AuthorID:  pair.User.ID.String(),
		Content:   pair.Tweet.Text,
		Timestamp: pair.Tweet.CreatedAt,
		Lang:      pair.Tweet.Lang,
	}
	if pair.Tweet.PublicMetrics != nil {
		tweet.RetweetCount = clampCount(pair.Tweet.PublicMetrics.RetweetCount)
		tweet.LikeCount = clampCount(pair.Tweet.PublicMetrics.LikeCount)
	}
	for _, ref := range pair.Tweet.ReferencedTweets {
		if ref.ID != "" {
			tweet.ReferencedTweetIDs = append(tweet.ReferencedTweetIDs, ref.ID.String())
		}
	}
	return user, tweet, nil
}

func canonicalizeFlat(flat *model.FlatRecord) (*model.UserRecord, *model.TweetRecord, error) {
	if flat.TweetID == "" {
		return nil, nil, apperrors.NewMalformedInput("tweet_id", nil)
	}
	if flat.UsuarioID == "" {
		return nil, nil, apperrors.NewMalformedInput("usuario_id", nil)
	}

	user := &model.UserRecord{
		UserID:        flat.UsuarioID.String(),
		Username:      flat.NombreUsuario,
		FollowerCount: clampCount(flat.Seguidores),
		Location:      flat.Ubicacion,
		Verified:      flat.Verificado,
	}

	// Flat records never carry referenced tweets, and any persisted
	// sentiment is stale: it gets recomputed downstream.
	tweet := &model.TweetRecord{
		TweetID:      flat.TweetID.String(),
		AuthorID:     flat.UsuarioID.String(),
		Content:      flat.Contenido,
		Timestamp:    flat.FechaHora,
		RetweetCount: clampCount(flat.Retweets),
		LikeCount:    clampCount(flat.Likes),
		Lang:         flat.Lang,
	}
	return user, tweet, nil
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
