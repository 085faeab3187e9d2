package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/models"
)

// ErrSnapshotNotFound is returned when no stored snapshot exists for a room.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Recorder keeps win history in Postgres and room snapshots in Redis.
// Either backend may be nil; the matching calls then do nothing.
type Recorder struct {
	db          *sqlx.DB
	rdb         *redis.Client
	snapshotTTL time.Duration
}

// NewRecorder wires the optional stores.
func NewRecorder(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *Recorder {
	ttl := time.Hour
	if cfg != nil && cfg.SnapshotTTLMinutes > 0 {
		ttl = time.Duration(cfg.SnapshotTTLMinutes) * time.Minute
	}
	return &Recorder{db: db, rdb: rdb, snapshotTTL: ttl}
}

func snapshotKey(code string) string {
	return "room:" + code + ":state"
}

// RecordWin stores a finished round.
func (r *Recorder) RecordWin(ctx context.Context, res models.GameResult) error {
	if r == nil || r.db == nil {
		return nil
	}
	if res.WonAt.IsZero() {
		res.WonAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO game_results (room_code, ball_id, player_name, color, mode, ticks, elapsed_ms, maze_seed, won_at)
		 VALUES (:room_code, :ball_id, :player_name, :color, :mode, :ticks, :elapsed_ms, :maze_seed, :won_at)`,
		res,
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	log.Printf("[DB] Recorded win for %s (%s) in room %s", res.BallID, res.Color, res.RoomCode)
	return nil
}

// Leaderboard ranks players by win count, best (lowest) elapsed time breaking ties.
func (r *Recorder) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if r == nil || r.db == nil {
		return []models.LeaderboardEntry{}, nil
	}
	entries := []models.LeaderboardEntry{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT COALESCE(NULLIF(player_name, ''), color) AS player,
		        COUNT(*) AS wins,
		        MIN(elapsed_ms) AS best_elapsed_ms,
		        MAX(won_at) AS last_won_at
		   FROM game_results
		  GROUP BY 1
		  ORDER BY wins DESC, best_elapsed_ms ASC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return entries, nil
}

// RecentResults returns the latest wins, newest first.
func (r *Recorder) RecentResults(ctx context.Context, limit int) ([]models.GameResult, error) {
	if r == nil || r.db == nil {
		return []models.GameResult{}, nil
	}
	results := []models.GameResult{}
	err := r.db.SelectContext(ctx, &results,
		`SELECT id, room_code, ball_id, player_name, color, mode, ticks, elapsed_ms, maze_seed, won_at
		   FROM game_results
		  ORDER BY won_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	return results, nil
}

// SaveSnapshot stores the room snapshot with the configured TTL.
func (r *Recorder) SaveSnapshot(ctx context.Context, code string, snap Snapshot) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.rdb.SetEx(ctx, snapshotKey(code), data, r.snapshotTTL).Err()
}

// LoadSnapshot reads a stored snapshot.
func (r *Recorder) LoadSnapshot(ctx context.Context, code string) (*Snapshot, error) {
	if r == nil || r.rdb == nil {
		return nil, ErrSnapshotNotFound
	}
	data, err := r.rdb.Get(ctx, snapshotKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot drops the stored snapshot of a closed room.
func (r *Recorder) DeleteSnapshot(ctx context.Context, code string) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, snapshotKey(code)).Err()
}
