package domain

// GameStats summarises finished games for the stats endpoint.
type GameStats struct {
	AvgDurationMs float64      `json:"avgDuration"`
	GamesPerDay   []DailyCount `json:"gamesPerDay"`
	TopWinners    []TopWinner  `json:"topWinners"`
}

type DailyCount struct {
	Date  string `json:"date" db:"date"`
	Count int    `json:"count" db:"count"`
}

type TopWinner struct {
	Username string `json:"username" db:"username"`
	Wins     int    `json:"wins" db:"wins"`
}

// AnalyticsSummary is built from the consumed lifecycle events.
type AnalyticsSummary struct {
	Overall      EventTotals    `json:"overall"`
	EventTypes   []EventCount   `json:"eventTypes"`
	DailyMetrics []DailyMetrics `json:"dailyMetrics"`
}

type EventTotals struct {
	TotalEvents   int `json:"totalEvents" db:"total_events"`
	TotalGames    int `json:"totalGames" db:"total_games"`
	UniquePlayers int `json:"uniquePlayers" db:"unique_players"`
}

type EventCount struct {
	EventType string `json:"eventType" db:"event_type"`
	Count     int    `json:"count" db:"count"`
}

type DailyMetrics struct {
	Date          string `json:"date" db:"date"`
	TotalGames    int    `json:"totalGames" db:"total_games"`
	TotalDuration int64  `json:"totalDuration" db:"total_duration"`
	AvgDuration   int    `json:"avgDuration" db:"avg_duration"`
}
