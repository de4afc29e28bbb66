// Package archive persists fetched batches as flat-record JSON documents so
// later runs can re-ingest them without touching the API.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// Archive reads and writes flat-record documents under a data directory
type Archive struct {
	dir    string
	logger *zap.Logger
}

// New creates an Archive rooted at dir
func New(dir string) *Archive {
	return &Archive{dir: dir, logger: logger.Named("archive")}
}

// Save appends records (already in canonical form) to the named document,
// converting them to the flat persisted format. An existing document is
// extended; anything unreadable is replaced with a fresh list.
func (a *Archive) Save(filename string, users []model.UserRecord, tweets []model.TweetRecord) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(a.dir, filename)

	var existing []model.FlatRecord
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &existing); err != nil {
			a.logger.Warn("Existing archive is not a valid list, starting fresh",
				zap.String("path", path))
			existing = nil
		}
	}

	byUser := make(map[string]model.UserRecord, len(users))
	for _, u := range users {
		byUser[u.UserID] = u
	}
	for _, t := range tweets {
		u := byUser[t.AuthorID]
		existing = append(existing, model.FlatRecord{
			TweetID:       model.FlexID(t.TweetID),
			UsuarioID:     model.FlexID(t.AuthorID),
			NombreUsuario: u.Username,
			Contenido:     t.Content,
			FechaHora:     t.Timestamp,
			Retweets:      t.RetweetCount,
			Likes:         t.LikeCount,
			Seguidores:    u.FollowerCount,
			Ubicacion:     u.Location,
			Verificado:    u.Verified,
			Lang:          t.Lang,
		})
	}

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	a.logger.Info("Batch archived",
		zap.String("path", path),
		zap.Int("records", len(tweets)),
	)
	return nil
}

// Load reads a flat-record document and returns its items tagged for the
// canonicalizer.
func (a *Archive) Load(filename string) ([]model.RawItem, error) {
	path := filepath.Join(a.dir, filename)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	var flats []model.FlatRecord
	if err := json.Unmarshal(raw, &flats); err != nil {
		return nil, fmt.Errorf("archive %s is not a flat-record list: %w", path, err)
	}
	items := make([]model.RawItem, 0, len(flats))
	for i := range flats {
		items = append(items, model.RawItem{Flat: &flats[i]})
	}
	return items, nil
}
