// Package store persists analyses, processed triggers, the trusted-list cache,
// poll cursors and reply actions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// DB wraps the bot's SQLite database.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: sqlite has a single writer and :memory: is per-connection
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// SetClock replaces the clock used for age-relative queries.
func (d *DB) SetClock(now func() time.Time) { d.now = now }

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS user_analyses (
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL,
	  username TEXT NOT NULL,
	  risk_score REAL NOT NULL,
	  trust_level TEXT NOT NULL,
	  report TEXT NOT NULL,
	  payload TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_user ON user_analyses(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_username ON user_analyses(username, created_at);
	CREATE TABLE IF NOT EXISTS processed_tweets (
	  tweet_id TEXT PRIMARY KEY,
	  user_id TEXT,
	  processed_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS trusted_accounts_cache (
	  username TEXT PRIMARY KEY,
	  cached_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  name TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts, type);
	`)
	return err
}

// Analysis is one stored account analysis.
type Analysis struct {
	ID         string
	UserID     string
	Username   string
	RiskScore  float64
	TrustLevel string
	Report     string
	// JSON of the full analysis
	Payload   string
	CreatedAt time.Time
}

func (d *DB) SaveAnalysis(ctx context.Context, a Analysis) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO user_analyses(id, user_id, username, risk_score, trust_level, report, payload, created_at) VALUES(?,?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.Username, a.RiskScore, a.TrustLevel, a.Report, a.Payload, a.CreatedAt.Unix())
	return err
}

// LatestAnalysis returns the newest analysis of userID younger than maxAge.
func (d *DB) LatestAnalysis(ctx context.Context, userID string, maxAge time.Duration) (Analysis, error) {
	since := d.now().Add(-maxAge).Unix()
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, user_id, username, risk_score, trust_level, report, COALESCE(payload, ''), created_at
		 FROM user_analyses WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT 1`, userID, since)
	var a Analysis
	var ts int64
	err := row.Scan(&a.ID, &a.UserID, &a.Username, &a.RiskScore, &a.TrustLevel, &a.Report, &a.Payload, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	a.CreatedAt = time.Unix(ts, 0).UTC()
	return a, nil
}

// MarkProcessed records a trigger tweet. It reports false if it was already recorded.
func (d *DB) MarkProcessed(ctx context.Context, tweetID, userID string, at time.Time) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_tweets(tweet_id, user_id, processed_at) VALUES(?,?,?)`, tweetID, userID, at.Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (d *DB) IsProcessed(ctx context.Context, tweetID string) (bool, error) {
	var one int
	err := d.sql.QueryRowContext(ctx, `SELECT 1 FROM processed_tweets WHERE tweet_id=?`, tweetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveTrustedAccounts replaces the cached trusted list.
func (d *DB) SaveTrustedAccounts(ctx context.Context, usernames []string) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM trusted_accounts_cache`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO trusted_accounts_cache(username, cached_at) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	now := d.now().Unix()
	for _, u := range usernames {
		if _, err := stmt.ExecContext(ctx, u, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) LoadTrustedAccounts(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT username FROM trusted_accounts_cache ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) SaveCursor(ctx context.Context, name, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(name, value) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET value=excluded.value`, name, value)
	return err
}

// LoadCursor returns "" when the cursor was never saved.
func (d *DB) LoadCursor(ctx context.Context, name string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE name=?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (d *DB) PutAction(ctx context.Context, ts time.Time, typ string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type) VALUES(?,?)`, ts.Unix(), typ)
	return err
}

// CountActionsWithin counts actions of typ in [start, end).
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<? AND type=?`, start.Unix(), end.Unix(), typ).Scan(&n)
	return n, err
}

type Stats struct {
	Analyses        int
	UniqueUsers     int
	AvgRiskScore    float64
	ProcessedTweets int
	TrustedAccounts int
	ByTrustLevel    map[string]int
}

func (d *DB) Stats(ctx context.Context) (Stats, error) {
	s := Stats{ByTrustLevel: map[string]int{}}
	err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COALESCE(AVG(risk_score), 0) FROM user_analyses`).
		Scan(&s.Analyses, &s.UniqueUsers, &s.AvgRiskScore)
	if err != nil {
		return s, err
	}
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_tweets`).Scan(&s.ProcessedTweets); err != nil {
		return s, err
	}
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM trusted_accounts_cache`).Scan(&s.TrustedAccounts); err != nil {
		return s, err
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT trust_level, COUNT(*) FROM user_analyses GROUP BY trust_level`)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var lvl string
		var n int
		if err := rows.Scan(&lvl, &n); err != nil {
			return s, err
		}
		s.ByTrustLevel[lvl] = n
	}
	return s, rows.Err()
}

// Cleanup deletes analyses, processed triggers and actions older than before.
// It returns the number of rows removed.
func (d *DB) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	cut := before.Unix()
	var total int64
	for _, q := range []string{
		`DELETE FROM user_analyses WHERE created_at<?`,
		`DELETE FROM processed_tweets WHERE processed_at<?`,
		`DELETE FROM actions WHERE ts<?`,
	} {
		res, err := d.sql.ExecContext(ctx, q, cut)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
