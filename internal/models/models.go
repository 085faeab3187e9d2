package models

import "time"

// GameResult is one won round.
type GameResult struct {
	ID         int       `db:"id" json:"id"`
	RoomCode   string    `db:"room_code" json:"room_code"`
	BallID     string    `db:"ball_id" json:"ball_id"`
	PlayerName string    `db:"player_name" json:"player_name"`
	Color      string    `db:"color" json:"color"`
	Mode       string    `db:"mode" json:"mode"`
	Ticks      int       `db:"ticks" json:"ticks"`
	ElapsedMs  int64     `db:"elapsed_ms" json:"elapsed_ms"`
	MazeSeed   int64     `db:"maze_seed" json:"maze_seed"`
	WonAt      time.Time `db:"won_at" json:"won_at"`
}

// LeaderboardEntry aggregates wins per player.
type LeaderboardEntry struct {
	Player        string    `db:"player" json:"player"`
	Wins          int       `db:"wins" json:"wins"`
	BestElapsedMs int64     `db:"best_elapsed_ms" json:"best_elapsed_ms"`
	LastWonAt     time.Time `db:"last_won_at" json:"last_won_at"`
}
