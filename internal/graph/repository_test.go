package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	return neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, os.Getenv("NEO4J_PASSWORD"), ""))
}

func cleanupTweet(ctx context.Context, driver neo4j.DriverWithContext, tweetID string) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, "MATCH (t:Tweet {tweet_id: $id}) DETACH DELETE t", map[string]any{"id": tweetID})
}

func cleanupUsuario(ctx context.Context, driver neo4j.DriverWithContext, userID string) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, "MATCH (u:Usuario {usuario_id: $id}) DETACH DELETE u", map[string]any{"id": userID})
}

func TestRepository_UpsertBatch_LastWriteWins(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, config.LastWriteWins)
	if err := repo.EnsureConstraints(ctx); err != nil {
		t.Fatalf("EnsureConstraints failed: %v", err)
	}

	suffix := time.Now().Format("20060102150405")
	userID := "test-user-" + suffix
	tweetID := "test-tweet-" + suffix
	defer cleanupTweet(ctx, driver, tweetID)
	defer cleanupUsuario(ctx, driver, userID)

	rec := Record{
		User:  model.UserRecord{UserID: userID, Username: "alice", FollowerCount: 100},
		Tweet: model.TweetRecord{TweetID: tweetID, AuthorID: userID, Content: "v1", Sentiment: 0.1},
	}
	if _, err := repo.UpsertBatch(ctx, []Record{rec}); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	// Second ingestion with different values must overwrite, not duplicate
	rec.Tweet.Content = "v2"
	rec.Tweet.Sentiment = -0.4
	rec.User.FollowerCount = 250
	if _, err := repo.UpsertBatch(ctx, []Record{rec}); err != nil {
		t.Fatalf("UpsertBatch (second) failed: %v", err)
	}

	n, err := repo.CountNodes(ctx, "Tweet", "tweet_id", tweetID)
	if err != nil {
		t.Fatalf("CountNodes failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected exactly 1 Tweet node, got %d", n)
	}

	tweet, err := repo.FetchTweet(ctx, tweetID)
	if err != nil {
		t.Fatalf("FetchTweet failed: %v", err)
	}
	if tweet == nil || tweet.Content != "v2" {
		t.Errorf("Expected overwritten content 'v2', got %+v", tweet)
	}

	user, err := repo.FetchUsuario(ctx, userID)
	if err != nil {
		t.Fatalf("FetchUsuario failed: %v", err)
	}
	if user == nil || user.FollowerCount != 250 {
		t.Errorf("Expected overwritten follower count 250, got %+v", user)
	}
}

func TestRepository_UpsertBatch_FirstWriteWins(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, config.FirstWriteWins)
	suffix := time.Now().Format("20060102150405")
	userID := "test-user-fww-" + suffix
	tweetID := "test-tweet-fww-" + suffix
	defer cleanupTweet(ctx, driver, tweetID)
	defer cleanupUsuario(ctx, driver, userID)

	rec := Record{
		User:  model.UserRecord{UserID: userID, Username: "bob", FollowerCount: 10},
		Tweet: model.TweetRecord{TweetID: tweetID, AuthorID: userID, Content: "original"},
	}
	if _, err := repo.UpsertBatch(ctx, []Record{rec}); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	rec.Tweet.Content = "rewritten"
	if _, err := repo.UpsertBatch(ctx, []Record{rec}); err != nil {
		t.Fatalf("UpsertBatch (second) failed: %v", err)
	}

	tweet, err := repo.FetchTweet(ctx, tweetID)
	if err != nil {
		t.Fatalf("FetchTweet failed: %v", err)
	}
	if tweet == nil || tweet.Content != "original" {
		t.Errorf("Expected first ingestion's content to survive, got %+v", tweet)
	}
}

func cleanupHashtag(ctx context.Context, driver neo4j.DriverWithContext, texto string) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, "MATCH (h:Hashtag {texto: $texto}) DETACH DELETE h", map[string]any{"texto": texto})
}

func countIncomingMentions(ctx context.Context, driver neo4j.DriverWithContext, usuarioID string) (int, error) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	result, err := session.Run(ctx, `
		MATCH (:Usuario)-[r:MENTIONA]->(:Usuario {usuario_id: $id})
		RETURN count(r) AS n
	`, map[string]any{"id": usuarioID})
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	return getIntFromRecord(record, "n"), nil
}

func TestRepository_UpsertBatch_MentionAndHashtagEdges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, config.LastWriteWins)
	suffix := time.Now().Format("20060102150405")
	aliceID := "test-user-alice-" + suffix
	aliceName := "alice-" + suffix
	bobID := "test-user-bob-" + suffix
	aliceTweetID := "test-tweet-alice-" + suffix
	bobTweetID := "test-tweet-bob-" + suffix
	unseenName := "ghost-" + suffix
	hashtag := "Tag" + suffix
	defer cleanupTweet(ctx, driver, aliceTweetID)
	defer cleanupTweet(ctx, driver, bobTweetID)
	defer cleanupUsuario(ctx, driver, aliceID)
	defer cleanupUsuario(ctx, driver, bobID)
	defer cleanupUsuario(ctx, driver, "mention:"+unseenName)
	defer cleanupHashtag(ctx, driver, hashtag)

	records := []Record{
		{
			User:  model.UserRecord{UserID: aliceID, Username: aliceName},
			Tweet: model.TweetRecord{TweetID: aliceTweetID, AuthorID: aliceID, Content: "hola"},
		},
		{
			User:     model.UserRecord{UserID: bobID, Username: "bob-" + suffix},
			Tweet:    model.TweetRecord{TweetID: bobTweetID, AuthorID: bobID, Content: "hey @" + aliceName},
			Mentions: []string{aliceName, unseenName},
			Hashtags: []string{hashtag},
		},
	}
	res, err := repo.UpsertBatch(ctx, records)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if res.MentionEdges != 2 {
		t.Errorf("Expected 2 MENTIONA edges, got %d", res.MentionEdges)
	}
	if res.HashtagEdges != 1 {
		t.Errorf("Expected 1 TRATA_DE edge, got %d", res.HashtagEdges)
	}

	// The known username must be linked on its real node, with no stub
	n, err := countIncomingMentions(ctx, driver, aliceID)
	if err != nil {
		t.Fatalf("countIncomingMentions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 MENTIONA edge into the real node, got %d", n)
	}
	stubs, err := repo.CountNodes(ctx, "Usuario", "usuario_id", "mention:"+aliceName)
	if err != nil {
		t.Fatalf("CountNodes failed: %v", err)
	}
	if stubs != 0 {
		t.Errorf("Expected no stub for a known username, got %d", stubs)
	}

	// The unseen username gets a surrogate stub carrying the name
	stubs, err = repo.CountNodes(ctx, "Usuario", "usuario_id", "mention:"+unseenName)
	if err != nil {
		t.Fatalf("CountNodes failed: %v", err)
	}
	if stubs != 1 {
		t.Errorf("Expected 1 stub for an unseen username, got %d", stubs)
	}
	n, err = countIncomingMentions(ctx, driver, "mention:"+unseenName)
	if err != nil {
		t.Fatalf("countIncomingMentions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 MENTIONA edge into the stub, got %d", n)
	}

	tags, err := repo.CountNodes(ctx, "Hashtag", "texto", hashtag)
	if err != nil {
		t.Fatalf("CountNodes failed: %v", err)
	}
	if tags != 1 {
		t.Errorf("Expected 1 Hashtag node, got %d", tags)
	}
}

func TestRepository_UpsertBatch_DeferredRetweetEdge(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver, config.LastWriteWins)
	suffix := time.Now().Format("20060102150405")
	userID := "test-user-ref-" + suffix
	tweetID := "test-tweet-ref-" + suffix
	defer cleanupTweet(ctx, driver, tweetID)
	defer cleanupUsuario(ctx, driver, userID)

	rec := Record{
		User:       model.UserRecord{UserID: userID, Username: "carla"},
		Tweet:      model.TweetRecord{TweetID: tweetID, AuthorID: userID, Content: "RT something"},
		References: []string{"never-seen-" + suffix},
	}
	res, err := repo.UpsertBatch(ctx, []Record{rec})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if res.RetweetEdges != 0 {
		t.Errorf("Expected no RETWEETEA edge for unknown target, got %d", res.RetweetEdges)
	}
	if res.DeferredRefs != 1 {
		t.Errorf("Expected 1 deferred reference, got %d", res.DeferredRefs)
	}
}
