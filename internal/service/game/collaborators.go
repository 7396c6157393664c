package game

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

// ConnID is an opaque handle for one transport connection.
type ConnID string

// BotConnID is the actor identity the bot uses when it moves.
const BotConnID ConnID = "bot"

// Broadcaster delivers messages to the players of a game.
type Broadcaster interface {
	// Broadcast sends msg to every connection seated in gameID.
	Broadcast(gameID string, msg domain.ServerMessage)
	// Send delivers msg to a single connection.
	Send(conn ConnID, msg domain.ServerMessage)
	// JoinRoom attaches conn to the room for gameID.
	JoinRoom(gameID string, conn ConnID)
}

// EventSink receives lifecycle events for analytics.
type EventSink interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// ResultRecorder persists settled games. Implementations must tolerate
// the same result being recorded more than once.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res domain.MatchResult) error
}

// Settings are the tunable durations of a session.
type Settings struct {
	MatchmakingTimeout time.Duration
	DisconnectGrace    time.Duration
	BotThinkDelay      time.Duration
	BotName            string

	// CollaboratorTimeout bounds each publish and persist call.
	CollaboratorTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MatchmakingTimeout:  10 * time.Second,
		DisconnectGrace:     30 * time.Second,
		BotThinkDelay:       800 * time.Millisecond,
		BotName:             domain.DefaultBotName,
		CollaboratorTimeout: 5 * time.Second,
	}
}

// Dependencies are shared by every session in a registry.
// Nil fields are replaced with inert defaults.
type Dependencies struct {
	Clock       quartz.Clock
	Logger      *log.Logger
	Broadcaster Broadcaster
	Events      EventSink
	Results     ResultRecorder
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	if d.Logger == nil {
		d.Logger = log.New(io.Discard)
	}
	if d.Broadcaster == nil {
		d.Broadcaster = nopBroadcaster{}
	}
	if d.Events == nil {
		d.Events = nopSink{}
	}
	if d.Results == nil {
		d.Results = nopRecorder{}
	}
	return d
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, domain.ServerMessage) {}
func (nopBroadcaster) Send(ConnID, domain.ServerMessage)      {}
func (nopBroadcaster) JoinRoom(string, ConnID)                {}

type nopSink struct{}

func (nopSink) Publish(context.Context, domain.Event) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordResult(context.Context, domain.MatchResult) error { return nil }

// LogSink writes lifecycle events to a logger when no event bus is reachable.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Publish(_ context.Context, ev domain.Event) error {
	s.Logger.Info("lifecycle event", "type", ev.Type(), "game", ev.Game())
	return nil
}

// LogRecorder stands in for the result store when no database is configured.
type LogRecorder struct {
	Logger *log.Logger
}

func (r LogRecorder) RecordResult(_ context.Context, res domain.MatchResult) error {
	r.Logger.Info("game result", "game", res.GameID, "winner", res.Winner, "draw", res.Draw, "reason", res.Reason)
	return nil
}
