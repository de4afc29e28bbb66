// Package relational persists canonical records in SQLite. All writes for one
// batch run inside a single transaction: any unrecoverable error rolls the
// whole batch back. Per-record referential-integrity failures are skipped
// inside the transaction and reported, they do not abort it.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
	apperrors "github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/errors"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// Store wraps the SQLite database holding the tabular view
type Store struct {
	db     *sql.DB
	policy config.UpsertPolicy
	logger *zap.Logger
}

// BatchResult reports what one UpsertBatch call did
type BatchResult struct {
	UsersWritten  int
	TweetsWritten int
	// TweetsSkipped counts tweets dropped for referential-integrity reasons
	TweetsSkipped int
}

// Open opens (creating if needed) the SQLite database at path and runs the
// in-code migration.
func Open(path string, policy config.UpsertPolicy) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewStoreUnavailable("sqlite", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("sqlite", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStoreUnavailable("sqlite", err)
	}
	s := &Store{db: db, policy: policy, logger: logger.Named("relational")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStoreUnavailable("sqlite", err)
	}
	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS usuarios (
	  usuario_id TEXT PRIMARY KEY,
	  nombre_usuario TEXT,
	  seguidores INTEGER NOT NULL DEFAULT 0,
	  ubicacion TEXT,
	  verificado BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS tweets (
	  tweet_id TEXT PRIMARY KEY,
	  usuario_id TEXT NOT NULL,
	  contenido TEXT,
	  fecha_hora TEXT,
	  retweets INTEGER NOT NULL DEFAULT 0,
	  likes INTEGER NOT NULL DEFAULT 0,
	  sentimiento REAL NOT NULL DEFAULT 0,
	  FOREIGN KEY (usuario_id) REFERENCES usuarios(usuario_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tweets_usuario ON tweets(usuario_id);
	CREATE INDEX IF NOT EXISTS idx_tweets_fecha ON tweets(fecha_hora);
	`)
	return err
}

const userInsertIgnore = `
	INSERT INTO usuarios (usuario_id, nombre_usuario, seguidores, ubicacion, verificado)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(usuario_id) DO NOTHING`

const userInsertOverwrite = `
	INSERT INTO usuarios (usuario_id, nombre_usuario, seguidores, ubicacion, verificado)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(usuario_id) DO UPDATE SET
	  nombre_usuario = excluded.nombre_usuario,
	  seguidores = excluded.seguidores,
	  ubicacion = excluded.ubicacion,
	  verificado = excluded.verificado`

const tweetInsertIgnore = `
	INSERT INTO tweets (tweet_id, usuario_id, contenido, fecha_hora, retweets, likes, sentimiento)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tweet_id) DO NOTHING`

const tweetInsertOverwrite = `
	INSERT INTO tweets (tweet_id, usuario_id, contenido, fecha_hora, retweets, likes, sentimiento)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tweet_id) DO UPDATE SET
	  usuario_id = excluded.usuario_id,
	  contenido = excluded.contenido,
	  fecha_hora = excluded.fecha_hora,
	  retweets = excluded.retweets,
	  likes = excluded.likes,
	  sentimiento = excluded.sentimiento`

// UpsertBatch writes users then tweets in one transaction. Conflict handling
// follows the configured policy: first-write-wins ignores rows already
// present, last-write-wins overwrites their scalar columns. A tweet whose
// author exists in neither the batch nor the table is skipped and counted,
// preserving the referential order without failing the batch.
func (s *Store) UpsertBatch(ctx context.Context, users []model.UserRecord, tweets []model.TweetRecord) (BatchResult, error) {
	var res BatchResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, apperrors.NewStoreUnavailable("sqlite", err)
	}
	defer func() { _ = tx.Rollback() }()

	userSQL, tweetSQL := userInsertIgnore, tweetInsertIgnore
	if s.policy == config.LastWriteWins {
		userSQL, tweetSQL = userInsertOverwrite, tweetInsertOverwrite
	}

	known := make(map[string]bool, len(users))
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, userSQL,
			u.UserID, nullable(u.Username), u.FollowerCount, nullable(u.Location), u.Verified); err != nil {
			return BatchResult{}, fmt.Errorf("upsert user %s: %w", u.UserID, err)
		}
		known[u.UserID] = true
		res.UsersWritten++
	}

	for _, t := range tweets {
		if !known[t.AuthorID] {
			exists, err := s.userExists(ctx, tx, t.AuthorID)
			if err != nil {
				return BatchResult{}, err
			}
			if !exists {
				res.TweetsSkipped++
				s.logger.Warn("skipping tweet",
					zap.Error(apperrors.NewReferentialIntegrity(t.TweetID, t.AuthorID)))
				continue
			}
			known[t.AuthorID] = true
		}
		if _, err := tx.ExecContext(ctx, tweetSQL,
			t.TweetID, t.AuthorID, t.Content, nullable(t.Timestamp), t.RetweetCount, t.LikeCount, t.Sentiment); err != nil {
			return BatchResult{}, fmt.Errorf("upsert tweet %s: %w", t.TweetID, err)
		}
		res.TweetsWritten++
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, apperrors.NewStoreUnavailable("sqlite", err)
	}
	return res, nil
}

func (s *Store) userExists(ctx context.Context, tx *sql.Tx, userID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM usuarios WHERE usuario_id = ?`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}
	return true, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
