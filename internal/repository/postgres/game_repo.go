package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

type GameRepo struct {
	db *sqlx.DB
}

func NewGameRepo(db *sqlx.DB) *GameRepo {
	return &GameRepo{db: db}
}

// RecordResult stores a settled game and credits both players. A game id
// that is already stored leaves the leaderboard untouched.
func (r *GameRepo) RecordResult(ctx context.Context, res domain.MatchResult) error {
	board, err := json.Marshal(res.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board state: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var winner sql.NullString
	if res.Winner != "" {
		winner = sql.NullString{String: res.Winner, Valid: true}
	}

	inserted, err := tx.ExecContext(ctx, `
	INSERT INTO games (id, player1_username, player2_username, winner_username, is_draw, reason, total_moves, board_state, start_time, end_time, duration)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO NOTHING;
	`,
		res.GameID, res.Player1, res.Player2, winner, res.Draw, res.Reason, res.Moves, string(board),
		res.StartedAt.UnixMilli(), res.EndedAt.UnixMilli(), res.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert game record: %w", err)
	}

	n, err := inserted.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if n == 0 {
		return nil
	}

	for _, player := range []string{res.Player1, res.Player2} {
		won := !res.Draw && res.Winner == player
		if err := updateLeaderboardTx(ctx, tx, player, won, res.Draw); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func updateLeaderboardTx(ctx context.Context, tx *sqlx.Tx, username string, won, draw bool) error {
	wins, losses, draws := 0, 0, 0
	switch {
	case draw:
		draws = 1
	case won:
		wins = 1
	default:
		losses = 1
	}

	_, err := tx.ExecContext(ctx, `
	INSERT INTO leaderboard (username, wins, losses, draws, total_games)
	VALUES ($1, $2, $3, $4, 1)
	ON CONFLICT (username) DO UPDATE SET
		wins = leaderboard.wins + EXCLUDED.wins,
		losses = leaderboard.losses + EXCLUDED.losses,
		draws = leaderboard.draws + EXCLUDED.draws,
		total_games = leaderboard.total_games + 1,
		updated_at = CURRENT_TIMESTAMP;
	`, username, wins, losses, draws)
	if err != nil {
		return fmt.Errorf("failed to update leaderboard for %s: %w", username, err)
	}
	return nil
}

// ClampLeaderboardLimit maps a requested page size into 1..MaxLeaderboardLimit.
func ClampLeaderboardLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}

func (r *GameRepo) QueryLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	err := r.db.SelectContext(ctx, &entries, `
	SELECT username, wins, losses, draws, total_games
	FROM leaderboard
	ORDER BY wins DESC, total_games ASC, username ASC
	LIMIT $1;
	`, ClampLeaderboardLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	return entries, nil
}

func (r *GameRepo) GameStats(ctx context.Context) (domain.GameStats, error) {
	stats := domain.GameStats{
		GamesPerDay: []domain.DailyCount{},
		TopWinners:  []domain.TopWinner{},
	}

	if err := r.db.GetContext(ctx, &stats.AvgDurationMs,
		`SELECT COALESCE(AVG(duration), 0)::float8 FROM games;`); err != nil {
		return stats, fmt.Errorf("failed to query average duration: %w", err)
	}

	if err := r.db.SelectContext(ctx, &stats.GamesPerDay, `
	SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS date, COUNT(*) AS count
	FROM games
	GROUP BY DATE(created_at)
	ORDER BY DATE(created_at) DESC
	LIMIT 7;
	`); err != nil {
		return stats, fmt.Errorf("failed to query games per day: %w", err)
	}

	if err := r.db.SelectContext(ctx, &stats.TopWinners, `
	SELECT username, wins
	FROM leaderboard
	ORDER BY wins DESC, username ASC
	LIMIT 5;
	`); err != nil {
		return stats, fmt.Errorf("failed to query top winners: %w", err)
	}
	return stats, nil
}
