package websocket

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
	"github.com/iamasit07/four-in-a-row/internal/service/matchmaking"
	"github.com/iamasit07/four-in-a-row/pkg/auth"
	"github.com/iamasit07/four-in-a-row/pkg/uid"
)

// Handler upgrades HTTP requests and routes client commands.
type Handler struct {
	hub        *Hub
	registry   *game.Registry
	matchmaker *matchmaking.Matchmaker
	tokens     *auth.ReconnectTokens
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

// NewHandler accepts any origin when allowedOrigins is empty.
func NewHandler(hub *Hub, registry *game.Registry, mm *matchmaking.Matchmaker, tokens *auth.ReconnectTokens, allowedOrigins []string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		hub:        hub,
		registry:   registry,
		matchmaker: mm,
		tokens:     tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithPrefix("ws"),
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "err", err)
		return
	}
	h.handleConnection(conn)
}

func (h *Handler) handleConnection(conn *websocket.Conn) {
	id := game.ConnID(uid.NewConnID())
	h.hub.Add(id, conn)
	h.logger.Debug("connection opened", "conn", id)

	defer func() {
		h.registry.NotifyDisconnect(id)
		h.hub.Remove(id)
		h.logger.Debug("connection closed", "conn", id)
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("client disconnected unexpectedly", "conn", id, "err", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.Send(id, domain.ErrorMessage(domain.CodeBadRequest, "invalid message format"))
			continue
		}
		h.processMessage(id, msg)
	}
}

func (h *Handler) processMessage(id game.ConnID, msg domain.ClientMessage) {
	switch msg.Type {
	case domain.MsgJoinGame:
		h.handleJoin(id, msg)
	case domain.MsgMakeMove:
		h.handleMove(id, msg)
	case domain.MsgReconnect:
		h.handleReconnect(id, msg)
	default:
		h.hub.Send(id, domain.ErrorMessage(domain.CodeBadRequest, "unknown message type: "+msg.Type))
	}
}

func (h *Handler) handleJoin(id game.ConnID, msg domain.ClientMessage) {
	session, slot, err := h.matchmaker.Join(id, msg.Username)
	if err != nil {
		h.hub.Send(id, domain.ErrorMessage(domain.CodeBadRequest, err.Error()))
		return
	}

	snap := session.Snapshot()
	name := snap.Player1
	if slot == domain.Slot2 {
		name = snap.Player2
	}

	token, err := h.tokens.Issue(snap.ID, slot, name)
	if err != nil {
		h.logger.Error("failed to issue reconnect token", "game", snap.ID, "err", err)
	}

	h.hub.Send(id, domain.ServerMessage{
		Type:           domain.MsgGameJoined,
		GameID:         snap.ID,
		Username:       name,
		YourPlayer:     slot,
		ReconnectToken: token,
		Status:         snap.Status,
	})
}

func (h *Handler) handleMove(id game.ConnID, msg domain.ClientMessage) {
	session, _, err := h.registry.Lookup(id)
	if err != nil || (msg.GameID != "" && msg.GameID != session.ID()) {
		h.hub.Send(id, domain.ErrorMessage(domain.CodeRejoinRequired, "game not found"))
		return
	}

	if _, err := session.MakeMove(id, msg.Column); err != nil {
		h.hub.Send(id, domain.ErrorMessage(domain.CodeInvalidMove, err.Error()))
	}
}

func (h *Handler) handleReconnect(id game.ConnID, msg domain.ClientMessage) {
	claims, err := h.tokens.Parse(msg.Token)
	if err != nil || (msg.GameID != "" && msg.GameID != claims.GameID) {
		h.hub.Send(id, domain.ErrorMessage(domain.CodeBadRequest, domain.ErrInvalidReconnect.Error()))
		return
	}

	snap, err := h.registry.Reconnect(claims.GameID, claims.Slot, id)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotPlaying):
		h.hub.Send(id, domain.ErrorMessage(domain.CodeRejoinRequired, err.Error()))
		return
	case err != nil:
		h.hub.Send(id, domain.ErrorMessage(domain.CodeBadRequest, err.Error()))
		return
	}

	token, err := h.tokens.Issue(snap.ID, claims.Slot, claims.Username)
	if err != nil {
		h.logger.Error("failed to refresh reconnect token", "game", snap.ID, "err", err)
	}

	board := snap.Board
	h.hub.Send(id, domain.ServerMessage{
		Type:           domain.MsgReconnected,
		GameID:         snap.ID,
		Username:       claims.Username,
		Player1:        snap.Player1,
		Player2:        snap.Player2,
		YourPlayer:     claims.Slot,
		ReconnectToken: token,
		Status:         snap.Status,
		CurrentTurn:    snap.Turn,
		Board:          &board,
	})
}
