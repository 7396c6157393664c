package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags a lifecycle event on the bus.
type EventType string

const (
	EventPlayerJoined EventType = "PLAYER_JOINED"
	EventGameStarted  EventType = "GAME_STARTED"
	EventMoveMade     EventType = "MOVE_MADE"
	EventGameEnded    EventType = "GAME_ENDED"
)

// Event is the closed set of lifecycle notifications a session emits.
type Event interface {
	Type() EventType
	Game() string
	At() time.Time
	event()
}

type PlayerJoined struct {
	GameID    string
	Timestamp time.Time
	Username  string
}

type GameStarted struct {
	GameID    string
	Timestamp time.Time
	Player1   string
	Player2   string
}

type MoveMade struct {
	GameID    string
	Timestamp time.Time
	Username  string
	Player    Slot
	Column    int
	Row       int
}

type GameEnded struct {
	GameID    string
	Timestamp time.Time
	Winner    Slot
	Username  string
	Draw      bool
	Reason    string
	Duration  time.Duration
}

func (PlayerJoined) Type() EventType { return EventPlayerJoined }
func (GameStarted) Type() EventType  { return EventGameStarted }
func (MoveMade) Type() EventType     { return EventMoveMade }
func (GameEnded) Type() EventType    { return EventGameEnded }

func (e PlayerJoined) Game() string { return e.GameID }
func (e GameStarted) Game() string  { return e.GameID }
func (e MoveMade) Game() string     { return e.GameID }
func (e GameEnded) Game() string    { return e.GameID }

func (e PlayerJoined) At() time.Time { return e.Timestamp }
func (e GameStarted) At() time.Time  { return e.Timestamp }
func (e MoveMade) At() time.Time     { return e.Timestamp }
func (e GameEnded) At() time.Time    { return e.Timestamp }

func (PlayerJoined) event() {}
func (GameStarted) event()  {}
func (MoveMade) event()     {}
func (GameEnded) event()    {}

// wireEvent is the JSON shape shared by every event kind.
type wireEvent struct {
	Type      EventType    `json:"type"`
	GameID    string       `json:"gameId"`
	Timestamp int64        `json:"timestamp"`
	Username  string       `json:"username,omitempty"`
	Players   *wirePlayers `json:"players,omitempty"`
	Player    Slot         `json:"player,omitempty"`
	Column    *int         `json:"column,omitempty"`
	Row       *int         `json:"row,omitempty"`
	Winner    Slot         `json:"winner,omitempty"`
	Draw      bool         `json:"draw,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Duration  *int64       `json:"duration,omitempty"`
}

type wirePlayers struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// EncodeEvent renders an event as {type, gameId, timestamp, ...}.
// Timestamps and durations are in milliseconds.
func EncodeEvent(e Event) ([]byte, error) {
	w := wireEvent{
		Type:      e.Type(),
		GameID:    e.Game(),
		Timestamp: e.At().UnixMilli(),
	}

	switch ev := e.(type) {
	case PlayerJoined:
		w.Username = ev.Username
	case GameStarted:
		w.Players = &wirePlayers{Player1: ev.Player1, Player2: ev.Player2}
	case MoveMade:
		w.Username = ev.Username
		w.Player = ev.Player
		w.Column = &ev.Column
		w.Row = &ev.Row
	case GameEnded:
		ms := ev.Duration.Milliseconds()
		w.Username = ev.Username
		w.Winner = ev.Winner
		w.Draw = ev.Draw
		w.Reason = ev.Reason
		w.Duration = &ms
	}

	return json.Marshal(w)
}

// DecodeEvent parses a payload produced by EncodeEvent.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	ts := time.UnixMilli(w.Timestamp)
	switch w.Type {
	case EventPlayerJoined:
		return PlayerJoined{GameID: w.GameID, Timestamp: ts, Username: w.Username}, nil
	case EventGameStarted:
		ev := GameStarted{GameID: w.GameID, Timestamp: ts}
		if w.Players != nil {
			ev.Player1 = w.Players.Player1
			ev.Player2 = w.Players.Player2
		}
		return ev, nil
	case EventMoveMade:
		ev := MoveMade{GameID: w.GameID, Timestamp: ts, Username: w.Username, Player: w.Player}
		if w.Column != nil {
			ev.Column = *w.Column
		}
		if w.Row != nil {
			ev.Row = *w.Row
		}
		return ev, nil
	case EventGameEnded:
		ev := GameEnded{GameID: w.GameID, Timestamp: ts, Username: w.Username, Winner: w.Winner, Draw: w.Draw, Reason: w.Reason}
		if w.Duration != nil {
			ev.Duration = time.Duration(*w.Duration) * time.Millisecond
		}
		return ev, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Type)
}
