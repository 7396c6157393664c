package domain

// Inbound message types.
const (
	MsgJoinGame  = "join_game"
	MsgMakeMove  = "make_move"
	MsgReconnect = "reconnect"
)

// Outbound message types.
const (
	MsgGameJoined         = "game_joined"
	MsgGameStarted        = "game_started"
	MsgMoveMade           = "move_made"
	MsgGameOver           = "game_over"
	MsgPlayerDisconnected = "player_disconnected"
	MsgPlayerReconnected  = "player_reconnected"
	MsgReconnected        = "reconnected"
	MsgError              = "error"
)

// Error codes carried by MsgError.
const (
	CodeRejoinRequired = "rejoin_required"
	CodeInvalidMove    = "invalid_move"
	CodeBadRequest     = "bad_request"
)

type ClientMessage struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	GameID   string `json:"gameId,omitempty"`
	Column   int    `json:"column"`
	Token    string `json:"token,omitempty"`
}

// ServerMessage is the single envelope for everything pushed to clients.
// Column and Row are pointers because zero is a real value for both.
type ServerMessage struct {
	Type           string     `json:"type"`
	Message        string     `json:"message,omitempty"`
	Code           string     `json:"code,omitempty"`
	GameID         string     `json:"gameId,omitempty"`
	Username       string     `json:"username,omitempty"`
	Player1        string     `json:"player1,omitempty"`
	Player2        string     `json:"player2,omitempty"`
	YourPlayer     Slot       `json:"yourPlayer,omitempty"`
	ReconnectToken string     `json:"reconnectToken,omitempty"`
	Status         Status     `json:"status,omitempty"`
	CurrentTurn    Slot       `json:"currentTurn,omitempty"`
	Column         *int       `json:"column,omitempty"`
	Row            *int       `json:"row,omitempty"`
	Player         Slot       `json:"player,omitempty"`
	Board          *Board     `json:"board,omitempty"`
	Winner         Slot       `json:"winner,omitempty"`
	WinningCells   []Position `json:"winningCells,omitempty"`
	Draw           bool       `json:"draw,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

func ErrorMessage(code, message string) ServerMessage {
	return ServerMessage{Type: MsgError, Code: code, Message: message}
}
