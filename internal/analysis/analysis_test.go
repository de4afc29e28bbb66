package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/store/relational"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
)

func seedStore(t *testing.T) *relational.Store {
	t.Helper()
	s, err := relational.Open(filepath.Join(t.TempDir(), "analysis.db"), config.LastWriteWins)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAverageSentiment_NoData(t *testing.T) {
	a := New(seedStore(t))

	summary, err := a.AverageSentiment(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.HasData)
	assert.Zero(t, summary.TweetCount)
}

func TestRun_FullReport(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	users := []model.UserRecord{
		{UserID: "1", Username: "alice", FollowerCount: 300},
		{UserID: "2", Username: "bob", FollowerCount: 700},
		{UserID: "3", Username: "carla", FollowerCount: 100},
	}
	tweets := []model.TweetRecord{
		{TweetID: "t1", AuthorID: "1", Content: "a", Timestamp: "2024-05-01T10:00:00Z", Sentiment: 0.6},
		{TweetID: "t2", AuthorID: "2", Content: "b", Timestamp: "2024-05-01T12:00:00Z", Sentiment: -0.2},
		{TweetID: "t3", AuthorID: "2", Content: "c", Timestamp: "2024-05-03T09:00:00Z", Sentiment: 0.2},
	}
	_, err := store.UpsertBatch(ctx, users, tweets)
	require.NoError(t, err)

	report := New(store).Run(ctx)
	assert.Empty(t, report.Errors)

	assert.True(t, report.Sentiment.HasData)
	assert.Equal(t, 3, report.Sentiment.TweetCount)
	assert.InDelta(t, 0.2, report.Sentiment.Average, 1e-9)

	// top-5 over 3 users returns exactly 3, descending
	require.Len(t, report.TopUsers, 3)
	assert.Equal(t, "bob", report.TopUsers[0].Username)
	assert.Equal(t, "alice", report.TopUsers[1].Username)
	assert.Equal(t, "carla", report.TopUsers[2].Username)

	require.Len(t, report.Trend, 2)
	assert.Equal(t, "2024-05-01", report.Trend[0].Date)
	assert.Equal(t, 2, report.Trend[0].Count)
	assert.Equal(t, "2024-05-03", report.Trend[1].Date)
	assert.Equal(t, 1, report.Trend[1].Count)
}
