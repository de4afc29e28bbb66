package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserRecord is the canonical representation of a user, independent of the
// input source shape. Identity is UserID; the username is a mutable attribute
// and never used as an identity key.
type UserRecord struct {
	UserID        string `json:"usuario_id"`
	Username      string `json:"nombre_usuario"`
	FollowerCount int    `json:"seguidores"`
	Location      string `json:"ubicacion"`
	Verified      bool   `json:"verificado"`
}

// TweetRecord is the canonical representation of a tweet. Sentiment is
// derived from Content at ingestion time; a value carried by persisted input
// is discarded and recomputed.
type TweetRecord struct {
	TweetID            string   `json:"tweet_id"`
	AuthorID           string   `json:"usuario_id"`
	Content            string   `json:"contenido"`
	Timestamp          string   `json:"fecha_hora"` // ISO-8601, may be empty
	RetweetCount       int      `json:"retweets"`
	LikeCount          int      `json:"likes"`
	Sentiment          float64  `json:"-"`
	Lang               string   `json:"lang"`
	ReferencedTweetIDs []string `json:"-"`
}

// FlexID decodes a JSON identifier that may arrive as a string or a number,
// normalizing to string so keys match across stores.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// TweetMetrics is the nested public_metrics object of an API tweet
type TweetMetrics struct {
	RetweetCount int `json:"retweet_count"`
	LikeCount    int `json:"like_count"`
}

// UserMetrics is the nested public_metrics object of an API user
type UserMetrics struct {
	FollowersCount int `json:"followers_count"`
}

// ReferencedTweet is a back-reference carried by an API tweet
type ReferencedTweet struct {
	ID FlexID `json:"id"`
}

// APITweet is the tweet sub-object of an API-pair item
type APITweet struct {
	ID               FlexID            `json:"id"`
	Text             string            `json:"text"`
	CreatedAt        string            `json:"created_at"`
	PublicMetrics    *TweetMetrics     `json:"public_metrics"`
	Lang             string            `json:"lang"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets"`
}

// APIUser is the user sub-object of an API-pair item
type APIUser struct {
	ID            FlexID       `json:"id"`
	Username      string       `json:"username"`
	Location      string       `json:"location"`
	Verified      bool         `json:"verified"`
	PublicMetrics *UserMetrics `json:"public_metrics"`
}

// APIPairItem is the live-API input shape: a tweet object paired with its
// author's user object. User may be nil when the API returned no author.
type APIPairItem struct {
	Tweet *APITweet `json:"tweet"`
	User  *APIUser  `json:"user"`
}

// FlatRecord is the persisted input shape: one plain key/value record from a
// JSON document written by a previous run.
type FlatRecord struct {
	TweetID       FlexID  `json:"tweet_id"`
	UsuarioID     FlexID  `json:"usuario_id"`
	NombreUsuario string  `json:"nombre_usuario"`
	Contenido     string  `json:"contenido"`
	FechaHora     string  `json:"fecha_hora"`
	Retweets      int     `json:"retweets"`
	Likes         int     `json:"likes"`
	Seguidores    int     `json:"seguidores"`
	Ubicacion     string  `json:"ubicacion"`
	Verificado    bool    `json:"verificado"`
	Lang          string  `json:"lang"`
	Sentimiento   float64 `json:"sentimiento,omitempty"` // stale if present; always recomputed
}

// RawItem is a tagged variant over the two input shapes. Exactly one field is
// non-nil. Shape detection happens once at the boundary; downstream code
// never re-inspects shape.
type RawItem struct {
	API  *APIPairItem
	Flat *FlatRecord
}
