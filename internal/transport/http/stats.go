package http

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

const leaderboardCacheTTL = 10 * time.Second

type LeaderboardStore interface {
	QueryLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	GameStats(ctx context.Context) (domain.GameStats, error)
}

type AnalyticsStore interface {
	Summary(ctx context.Context) (domain.AnalyticsSummary, error)
}

// Cache holds short-lived JSON copies of read-heavy responses.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// StatsHandler serves the read-only query surface. Any dependency may be
// nil; the matching routes then answer 503.
type StatsHandler struct {
	games     LeaderboardStore
	analytics AnalyticsStore
	cache     Cache
	logger    *log.Logger
}

func NewStatsHandler(games LeaderboardStore, analytics AnalyticsStore, cache Cache, logger *log.Logger) *StatsHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StatsHandler{games: games, analytics: analytics, cache: cache, logger: logger}
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	if h.games == nil {
		unavailable(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}

	ctx := c.Request.Context()
	key := strconv.Itoa(limit)

	if h.cache != nil {
		var cached []domain.LeaderboardEntry
		if hit, err := h.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			c.JSON(http.StatusOK, cached)
			return
		} else if err != nil {
			h.logger.Warn("leaderboard cache read failed", "err", err)
		}
	}

	entries, err := h.games.QueryLeaderboard(ctx, limit)
	if err != nil {
		h.logger.Error("failed to fetch leaderboard", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, entries, leaderboardCacheTTL); err != nil {
			h.logger.Warn("leaderboard cache write failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *StatsHandler) Stats(c *gin.Context) {
	if h.games == nil {
		unavailable(c)
		return
	}
	stats, err := h.games.GameStats(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch game stats", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) Analytics(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c)
		return
	}
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch analytics", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
