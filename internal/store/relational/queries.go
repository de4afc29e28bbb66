package relational

import (
	"context"
	"database/sql"
)

// DateCount is the tweet count for one calendar date
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TopUser is one row of the followers ranking
type TopUser struct {
	Username  string `json:"nombre_usuario"`
	Followers int    `json:"seguidores"`
}

// AverageSentiment returns the mean sentiment over all stored tweets and the
// number of tweets it covers. Zero tweets yields (0, 0, nil); the caller
// decides how to report the empty case.
func (s *Store) AverageSentiment(ctx context.Context) (float64, int, error) {
	var avg sql.NullFloat64
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT AVG(sentimiento), COUNT(*) FROM tweets`).Scan(&avg, &n)
	if err != nil {
		return 0, 0, err
	}
	return avg.Float64, n, nil
}

// TopUsersByFollowers returns up to n users ordered by follower count
// descending. Ties keep insertion order: rowid is the stable tie-breaker.
func (s *Store) TopUsersByFollowers(ctx context.Context, n int) ([]TopUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(nombre_usuario, usuario_id), seguidores
		FROM usuarios
		ORDER BY seguidores DESC, rowid ASC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopUser
	for rows.Next() {
		var u TopUser
		if err := rows.Scan(&u.Username, &u.Followers); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// TweetCountsByDate buckets tweets by the date portion of their timestamp,
// ascending. Tweets without a timestamp are left out of the trend.
func (s *Store) TweetCountsByDate(ctx context.Context) ([]DateCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(fecha_hora, 1, 10) AS date, COUNT(*) AS count
		FROM tweets
		WHERE fecha_hora IS NOT NULL
		GROUP BY date
		ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
