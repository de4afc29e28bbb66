package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	a := New(t.TempDir())

	users := []model.UserRecord{
		{UserID: "u1", Username: "alice", FollowerCount: 120, Location: "CDMX", Verified: true},
	}
	tweets := []model.TweetRecord{
		{TweetID: "t1", AuthorID: "u1", Content: "hola #go", Timestamp: "2024-05-01T10:00:00Z", RetweetCount: 3, LikeCount: 9, Lang: "es"},
		{TweetID: "t2", AuthorID: "u1", Content: "segundo tweet", Timestamp: "2024-05-02T11:00:00Z"},
	}

	require.NoError(t, a.Save("batch.json", users, tweets))

	items, err := a.Load("batch.json")
	require.NoError(t, err)
	require.Len(t, items, 2)

	for _, item := range items {
		require.NotNil(t, item.Flat)
		assert.Nil(t, item.API)
	}
	assert.Equal(t, "t1", items[0].Flat.TweetID.String())
	assert.Equal(t, "u1", items[0].Flat.UsuarioID.String())
	assert.Equal(t, "alice", items[0].Flat.NombreUsuario)
	assert.Equal(t, 120, items[0].Flat.Seguidores)
	assert.True(t, items[0].Flat.Verificado)
	assert.Equal(t, "segundo tweet", items[1].Flat.Contenido)
}

func TestSaveAppendsToExistingDocument(t *testing.T) {
	a := New(t.TempDir())

	users := []model.UserRecord{{UserID: "u1", Username: "alice"}}
	require.NoError(t, a.Save("batch.json", users,
		[]model.TweetRecord{{TweetID: "t1", AuthorID: "u1", Content: "first"}}))
	require.NoError(t, a.Save("batch.json", users,
		[]model.TweetRecord{{TweetID: "t2", AuthorID: "u1", Content: "second"}}))

	items, err := a.Load("batch.json")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "t1", items[0].Flat.TweetID.String())
	assert.Equal(t, "t2", items[1].Flat.TweetID.String())
}

func TestSaveReplacesCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch.json"), []byte("not json"), 0o644))

	a := New(dir)
	require.NoError(t, a.Save("batch.json",
		[]model.UserRecord{{UserID: "u1"}},
		[]model.TweetRecord{{TweetID: "t1", AuthorID: "u1"}}))

	items, err := a.Load("batch.json")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestLoadMissingFile(t *testing.T) {
	a := New(t.TempDir())
	_, err := a.Load("nope.json")
	assert.Error(t, err)
}
