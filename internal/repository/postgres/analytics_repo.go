package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

type AnalyticsRepo struct {
	db *sqlx.DB
}

func NewAnalyticsRepo(db *sqlx.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// SaveEvent appends one consumed lifecycle event. payload is its wire form.
func (r *AnalyticsRepo) SaveEvent(ctx context.Context, ev domain.Event, payload []byte) error {
	var username sql.NullString
	if name := eventUsername(ev); name != "" {
		username = sql.NullString{String: name, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO analytics_events (event_type, game_id, username, data, timestamp)
	VALUES ($1, $2, $3, $4, $5);
	`, string(ev.Type()), ev.Game(), username, string(payload), ev.At().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save analytics event: %w", err)
	}
	return nil
}

// UpdateDailyMetrics folds one finished game into today's row.
func (r *AnalyticsRepo) UpdateDailyMetrics(ctx context.Context, duration time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO daily_metrics (date, total_games, total_duration, avg_duration)
	VALUES (CURRENT_DATE, 1, $1, $1)
	ON CONFLICT (date) DO UPDATE SET
		total_games = daily_metrics.total_games + 1,
		total_duration = daily_metrics.total_duration + EXCLUDED.total_duration,
		avg_duration = (daily_metrics.total_duration + EXCLUDED.total_duration) / (daily_metrics.total_games + 1),
		updated_at = CURRENT_TIMESTAMP;
	`, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to update daily metrics: %w", err)
	}
	return nil
}

func (r *AnalyticsRepo) Summary(ctx context.Context) (domain.AnalyticsSummary, error) {
	summary := domain.AnalyticsSummary{
		EventTypes:   []domain.EventCount{},
		DailyMetrics: []domain.DailyMetrics{},
	}

	if err := r.db.GetContext(ctx, &summary.Overall, `
	SELECT COUNT(*) AS total_events,
	       COUNT(DISTINCT game_id) AS total_games,
	       COUNT(DISTINCT username) AS unique_players
	FROM analytics_events;
	`); err != nil {
		return summary, fmt.Errorf("failed to query event totals: %w", err)
	}

	if err := r.db.SelectContext(ctx, &summary.EventTypes, `
	SELECT event_type, COUNT(*) AS count
	FROM analytics_events
	GROUP BY event_type
	ORDER BY count DESC, event_type ASC;
	`); err != nil {
		return summary, fmt.Errorf("failed to query event types: %w", err)
	}

	if err := r.db.SelectContext(ctx, &summary.DailyMetrics, `
	SELECT TO_CHAR(date, 'YYYY-MM-DD') AS date, total_games, total_duration, avg_duration
	FROM daily_metrics
	ORDER BY daily_metrics.date DESC
	LIMIT 7;
	`); err != nil {
		return summary, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	return summary, nil
}

func eventUsername(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.PlayerJoined:
		return e.Username
	case domain.MoveMade:
		return e.Username
	case domain.GameEnded:
		return e.Username
	}
	return ""
}
