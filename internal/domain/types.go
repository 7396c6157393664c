package domain

// Slot identifies a seat in a game. It doubles as the cell value on the board.
type Slot int

const (
	SlotNone Slot = 0
	Slot1    Slot = 1
	Slot2    Slot = 2
)

// Opponent returns the other seat. SlotNone has no opponent.
func (s Slot) Opponent() Slot {
	switch s {
	case Slot1:
		return Slot2
	case Slot2:
		return Slot1
	}
	return SlotNone
}

func (s Slot) Valid() bool {
	return s == Slot1 || s == Slot2
}

const (
	Rows    = 6
	Columns = 7
	ToWin   = 4

	// CenterColumn is the bot's fallback preference.
	CenterColumn = Columns / 2
)

// Status is the lifecycle of a session. It only moves forward.
type Status string

const (
	StatusAwaitingOpponent Status = "awaiting_opponent"
	StatusPlaying          Status = "playing"
	StatusFinished         Status = "finished"
)

// Reasons attached to a finished game.
const (
	ReasonConnectFour          = "connect_four"
	ReasonDraw                 = "draw"
	ReasonOpponentDisconnected = "opponent_disconnected"
)

// DefaultBotName is the username shown for the automated opponent.
const DefaultBotName = "BOT"

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidColumn    Error = "invalid column"
	ErrBoardFull        Error = "board is full"
	ErrNotYourTurn      Error = "not your turn"
	ErrNotPlaying       Error = "game is not in progress"
	ErrUnknownActor     Error = "player is not part of this game"
	ErrSessionNotFound  Error = "game not found"
	ErrSessionFull      Error = "game is full"
	ErrAlreadyJoined    Error = "already seated in a game"
	ErrInvalidReconnect Error = "invalid reconnect token"
	ErrUsernameRequired Error = "username is required"
	ErrUsernameTooLong  Error = "username is too long"
	ErrUnknownEvent     Error = "unknown event type"
)
