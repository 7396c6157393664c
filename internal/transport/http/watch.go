package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
)

// LiveSource lists sessions in play and reports queue depth.
type LiveSource interface {
	Live() []game.Snapshot
	Active() int
}

type WatchHandler struct {
	sessions LiveSource
	waiting  func() int
	conns    func() int
}

func NewWatchHandler(sessions LiveSource, waiting, conns func() int) *WatchHandler {
	return &WatchHandler{sessions: sessions, waiting: waiting, conns: conns}
}

type liveGameResponse struct {
	GameID      string      `json:"gameId"`
	Player1     string      `json:"player1"`
	Player2     string      `json:"player2"`
	VsBot       bool        `json:"vsBot"`
	CurrentTurn domain.Slot `json:"currentTurn"`
	MoveCount   int         `json:"moveCount"`
	StartedAt   string      `json:"startedAt"`
}

// GetLiveGames returns every game currently in play.
func (h *WatchHandler) GetLiveGames(c *gin.Context) {
	live := h.sessions.Live()

	response := make([]liveGameResponse, 0, len(live))
	for _, g := range live {
		response = append(response, liveGameResponse{
			GameID:      g.ID,
			Player1:     g.Player1,
			Player2:     g.Player2,
			VsBot:       g.BotSlot != domain.SlotNone,
			CurrentTurn: g.Turn,
			MoveCount:   g.Moves,
			StartedAt:   g.StartedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *WatchHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"activeGames": h.sessions.Active(),
		"waiting":     h.waiting(),
		"connections": h.conns(),
	})
}
