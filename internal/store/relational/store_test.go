package relational

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
)

func openTestStore(t *testing.T, policy config.UpsertPolicy) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), policy)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func user(id, name string, followers int) model.UserRecord {
	return model.UserRecord{UserID: id, Username: name, FollowerCount: followers}
}

func tweet(id, author, content, ts string) model.TweetRecord {
	return model.TweetRecord{TweetID: id, AuthorID: author, Content: content, Timestamp: ts}
}

func TestUpsertBatch_Basic(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	res, err := s.UpsertBatch(ctx,
		[]model.UserRecord{user("1", "alice", 100)},
		[]model.TweetRecord{tweet("t1", "1", "hola", "2024-05-01T10:00:00Z")},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UsersWritten)
	assert.Equal(t, 1, res.TweetsWritten)
	assert.Equal(t, 0, res.TweetsSkipped)
}

func TestUpsertBatch_FirstWriteWins(t *testing.T) {
	s := openTestStore(t, config.FirstWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice", 100)}, nil)
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice-renamed", 999)}, nil)
	require.NoError(t, err)

	top, err := s.TopUsersByFollowers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	// first ingestion's values survive re-ingestion
	assert.Equal(t, "alice", top[0].Username)
	assert.Equal(t, 100, top[0].Followers)
}

func TestUpsertBatch_LastWriteWins(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice", 100)}, nil)
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice-renamed", 999)}, nil)
	require.NoError(t, err)

	top, err := s.TopUsersByFollowers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice-renamed", top[0].Username)
	assert.Equal(t, 999, top[0].Followers)
}

func TestUpsertBatch_TweetIdempotent(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx,
		[]model.UserRecord{user("1", "alice", 100)},
		[]model.TweetRecord{tweet("t1", "1", "v1", "2024-05-01T10:00:00Z")},
	)
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx,
		[]model.UserRecord{user("1", "alice", 100)},
		[]model.TweetRecord{tweet("t1", "1", "v2", "2024-05-01T10:00:00Z")},
	)
	require.NoError(t, err)

	_, n, err := s.AverageSentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "re-ingesting the same tweet_id must not duplicate the row")
}

func TestUpsertBatch_OrphanTweetSkipped(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	res, err := s.UpsertBatch(ctx,
		[]model.UserRecord{user("1", "alice", 100)},
		[]model.TweetRecord{
			tweet("t1", "1", "fine", ""),
			tweet("t2", "ghost", "orphan", ""),
		},
	)
	require.NoError(t, err, "an orphan tweet must not fail the batch")
	assert.Equal(t, 1, res.TweetsWritten)
	assert.Equal(t, 1, res.TweetsSkipped)

	_, n, err := s.AverageSentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the orphan tweet must not be stored")
}

func TestUpsertBatch_AuthorFromEarlierBatch(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice", 100)}, nil)
	require.NoError(t, err)

	res, err := s.UpsertBatch(ctx, nil, []model.TweetRecord{tweet("t1", "1", "late tweet", "")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TweetsWritten)
	assert.Equal(t, 0, res.TweetsSkipped)
}

func TestAverageSentiment_Empty(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)

	avg, n, err := s.AverageSentiment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Zero(t, avg)
}

func TestAverageSentiment(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	tw1 := tweet("t1", "1", "a", "")
	tw1.Sentiment = 0.5
	tw2 := tweet("t2", "1", "b", "")
	tw2.Sentiment = -0.1
	_, err := s.UpsertBatch(ctx, []model.UserRecord{user("1", "alice", 1)}, []model.TweetRecord{tw1, tw2})
	require.NoError(t, err)

	avg, n, err := s.AverageSentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.2, avg, 1e-9)
}

func TestTopUsersByFollowers_FewerThanN(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []model.UserRecord{
		user("1", "alice", 100),
		user("2", "bob", 300),
		user("3", "carla", 200),
	}, nil)
	require.NoError(t, err)

	top, err := s.TopUsersByFollowers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].Username)
	assert.Equal(t, "carla", top[1].Username)
	assert.Equal(t, "alice", top[2].Username)
}

func TestTopUsersByFollowers_StableTies(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, []model.UserRecord{
		user("1", "first", 50),
		user("2", "second", 50),
	}, nil)
	require.NoError(t, err)

	top, err := s.TopUsersByFollowers(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "first", top[0].Username)
	assert.Equal(t, "second", top[1].Username)
}

func TestTweetCountsByDate(t *testing.T) {
	s := openTestStore(t, config.LastWriteWins)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx,
		[]model.UserRecord{user("1", "alice", 1)},
		[]model.TweetRecord{
			tweet("t1", "1", "a", "2024-05-02T08:00:00Z"),
			tweet("t2", "1", "b", "2024-05-01T09:00:00Z"),
			tweet("t3", "1", "c", "2024-05-02T18:30:00Z"),
			tweet("t4", "1", "d", ""), // no timestamp, excluded from the trend
		},
	)
	require.NoError(t, err)

	counts, err := s.TweetCountsByDate(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, DateCount{Date: "2024-05-01", Count: 1}, counts[0])
	assert.Equal(t, DateCount{Date: "2024-05-02", Count: 2}, counts[1])
}
