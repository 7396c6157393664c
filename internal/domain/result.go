package domain

import "time"

// MatchResult is what gets persisted once a game settles.
type MatchResult struct {
	GameID    string
	Player1   string
	Player2   string
	Winner    string // empty on a draw
	Draw      bool
	Reason    string
	Moves     int
	Board     Board
	StartedAt time.Time
	EndedAt   time.Time
}

func (r MatchResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

type LeaderboardEntry struct {
	Username   string `json:"username" db:"username"`
	Wins       int    `json:"wins" db:"wins"`
	Losses     int    `json:"losses" db:"losses"`
	Draws      int    `json:"draws" db:"draws"`
	TotalGames int    `json:"totalGames" db:"total_games"`
}
