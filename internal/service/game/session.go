package game

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/bot"
)

type seat struct {
	conn      ConnID
	name      string
	connected bool
	bot       *bot.Player
}

// Session is one match from first join to settlement. Every exported
// method takes the session lock, so callers may use it from any goroutine.
type Session struct {
	id       string
	settings Settings
	clock    quartz.Clock
	logger   *log.Logger
	out      Broadcaster
	events   EventSink
	results  ResultRecorder

	// onSeatsClosed runs without the lock held when the bot takes slot 2.
	onSeatsClosed func(gameID string)

	mu        sync.Mutex
	board     domain.Board
	seats     [3]*seat // indexed by slot, 0 unused
	turn      domain.Slot
	status    domain.Status
	winner    domain.Slot
	draw      bool
	reason    string
	settled   bool
	moves     int
	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time
	timers    *timerSet
}

// Move describes an accepted move.
type Move struct {
	Column       int
	Row          int
	Player       domain.Slot
	Winner       domain.Slot
	WinningCells []domain.Position
	Draw         bool
}

// Snapshot is a copy of a session's observable state.
type Snapshot struct {
	ID        string
	Board     domain.Board
	Player1   string
	Player2   string
	BotSlot   domain.Slot
	Turn      domain.Slot
	Status    domain.Status
	Winner    domain.Slot
	Draw      bool
	Reason    string
	Moves     int
	Connected [3]bool
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

func newSession(id string, settings Settings, deps Dependencies) *Session {
	return &Session{
		id:        id,
		settings:  settings,
		clock:     deps.Clock,
		logger:    deps.Logger.WithPrefix("session").With("game", id),
		out:       deps.Broadcaster,
		events:    deps.Events,
		results:   deps.Results,
		status:    domain.StatusAwaitingOpponent,
		createdAt: deps.Clock.Now(),
		timers:    newTimerSet(deps.Clock),
	}
}

func (s *Session) ID() string {
	return s.id
}

// AddPlayer seats conn in the first free slot. Slot 1 starts the
// matchmaking timer; slot 2 starts the game.
func (s *Session) AddPlayer(conn ConnID, name string) (domain.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusFinished {
		return domain.SlotNone, domain.ErrNotPlaying
	}
	if s.slotOfLocked(conn) != domain.SlotNone {
		return domain.SlotNone, domain.ErrAlreadyJoined
	}

	switch {
	case s.seats[domain.Slot1] == nil:
		s.seatLocked(domain.Slot1, &seat{conn: conn, name: name, connected: true})
		s.timers.schedule(timerMatchmaking, s.settings.MatchmakingTimeout, s.onMatchmakingTimeout)
		s.logger.Info("player waiting for opponent", "player", name)
		return domain.Slot1, nil

	case s.seats[domain.Slot2] == nil:
		s.seatLocked(domain.Slot2, &seat{conn: conn, name: name, connected: true})
		s.startLocked()
		return domain.Slot2, nil
	}

	return domain.SlotNone, domain.ErrSessionFull
}

func (s *Session) seatLocked(slot domain.Slot, st *seat) {
	s.seats[slot] = st
	if st.bot != nil {
		return
	}
	s.out.JoinRoom(s.id, st.conn)
	s.publish(domain.PlayerJoined{GameID: s.id, Timestamp: s.clock.Now(), Username: st.name})
}

// startLocked moves a full session into play.
func (s *Session) startLocked() {
	s.timers.cancel(timerMatchmaking)

	s.status = domain.StatusPlaying
	s.turn = domain.Slot1
	s.startedAt = s.clock.Now()

	p1, p2 := s.seats[domain.Slot1].name, s.seats[domain.Slot2].name
	s.logger.Info("game started", "player1", p1, "player2", p2)

	s.publish(domain.GameStarted{GameID: s.id, Timestamp: s.startedAt, Player1: p1, Player2: p2})
	s.out.Broadcast(s.id, domain.ServerMessage{
		Type:        domain.MsgGameStarted,
		GameID:      s.id,
		Player1:     p1,
		Player2:     p2,
		Status:      s.status,
		CurrentTurn: s.turn,
		Board:       s.boardLocked(),
	})

	if !s.seats[domain.Slot1].connected && !s.timers.pending(graceTimerKey(domain.Slot1)) {
		s.scheduleGraceLocked(domain.Slot1)
	}
}

func (s *Session) onMatchmakingTimeout(id uint64) {
	s.mu.Lock()
	if !s.timers.claim(timerMatchmaking, id) ||
		s.status != domain.StatusAwaitingOpponent ||
		s.seats[domain.Slot1] == nil || s.seats[domain.Slot2] != nil {
		s.mu.Unlock()
		return
	}

	s.logger.Info("no opponent arrived, seating bot", "bot", s.settings.BotName)
	s.seatLocked(domain.Slot2, &seat{
		conn:      BotConnID,
		name:      s.settings.BotName,
		connected: true,
		bot:       bot.New(domain.Slot2),
	})
	s.startLocked()
	hook := s.onSeatsClosed
	s.mu.Unlock()

	if hook != nil {
		hook(s.id)
	}
}

// MakeMove applies a move for actor. Rejected moves leave the session
// untouched and broadcast nothing.
func (s *Session) MakeMove(actor ConnID, column int) (Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyMoveLocked(actor, column)
}

// applyMoveLocked is the only path that changes the board, for humans and the bot alike.
func (s *Session) applyMoveLocked(actor ConnID, column int) (Move, error) {
	if s.status != domain.StatusPlaying {
		return Move{}, domain.ErrNotPlaying
	}

	slot := s.slotOfLocked(actor)
	if slot == domain.SlotNone {
		return Move{}, domain.ErrUnknownActor
	}
	if slot != s.turn {
		return Move{}, domain.ErrNotYourTurn
	}

	row, err := s.board.Place(column, slot)
	if err != nil {
		return Move{}, err
	}
	s.moves++

	move := Move{Column: column, Row: row, Player: slot}
	s.publish(domain.MoveMade{
		GameID:    s.id,
		Timestamp: s.clock.Now(),
		Username:  s.seats[slot].name,
		Player:    slot,
		Column:    column,
		Row:       row,
	})

	if cells := s.board.CheckLine(row, column, slot); cells != nil {
		move.Winner = slot
		move.WinningCells = cells
		s.settleLocked(slot, false, domain.ReasonConnectFour)
		s.out.Broadcast(s.id, domain.ServerMessage{
			Type:         domain.MsgGameOver,
			GameID:       s.id,
			Column:       &move.Column,
			Row:          &move.Row,
			Player:       slot,
			Winner:       slot,
			WinningCells: cells,
			Reason:       domain.ReasonConnectFour,
			Board:        s.boardLocked(),
		})
		return move, nil
	}

	if s.board.IsFull() {
		move.Draw = true
		s.settleLocked(domain.SlotNone, true, domain.ReasonDraw)
		s.out.Broadcast(s.id, domain.ServerMessage{
			Type:   domain.MsgGameOver,
			GameID: s.id,
			Column: &move.Column,
			Row:    &move.Row,
			Player: slot,
			Draw:   true,
			Reason: domain.ReasonDraw,
			Board:  s.boardLocked(),
		})
		return move, nil
	}

	s.turn = slot.Opponent()
	s.out.Broadcast(s.id, domain.ServerMessage{
		Type:        domain.MsgMoveMade,
		GameID:      s.id,
		Column:      &move.Column,
		Row:         &move.Row,
		Player:      slot,
		CurrentTurn: s.turn,
		Board:       s.boardLocked(),
	})

	if next := s.seats[s.turn]; next != nil && next.bot != nil {
		s.timers.schedule(timerBotMove, s.settings.BotThinkDelay, s.onBotTurn)
	}

	return move, nil
}

func (s *Session) onBotTurn(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timers.claim(timerBotMove, id) || s.status != domain.StatusPlaying {
		return
	}
	current := s.seats[s.turn]
	if current == nil || current.bot == nil {
		return
	}

	column, err := current.bot.ChooseColumn(s.board)
	if err != nil {
		s.logger.Error("bot could not choose a column", "err", err)
		return
	}
	if _, err := s.applyMoveLocked(current.conn, column); err != nil {
		s.logger.Error("bot move rejected", "column", column, "err", err)
	}
}

// EndGame settles the session and announces the outcome. It reports
// whether this call did the settling; later calls are no-ops.
func (s *Session) EndGame(winner domain.Slot, draw bool, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPlaying {
		return false
	}
	if !s.settleLocked(winner, draw, reason) {
		return false
	}
	s.out.Broadcast(s.id, domain.ServerMessage{
		Type:   domain.MsgGameOver,
		GameID: s.id,
		Winner: winner,
		Draw:   draw,
		Reason: reason,
		Board:  s.boardLocked(),
	})
	return true
}

// settleLocked records the terminal outcome exactly once.
func (s *Session) settleLocked(winner domain.Slot, draw bool, reason string) bool {
	if s.settled {
		return false
	}
	s.settled = true
	s.status = domain.StatusFinished
	s.winner = winner
	s.draw = draw
	s.reason = reason
	s.endedAt = s.clock.Now()
	s.timers.cancelAll()

	res := s.resultLocked()
	s.logger.Info("game settled", "winner", res.Winner, "draw", draw, "reason", reason, "moves", s.moves)

	s.publish(domain.GameEnded{
		GameID:    s.id,
		Timestamp: s.endedAt,
		Winner:    winner,
		Username:  res.Winner,
		Draw:      draw,
		Reason:    reason,
		Duration:  res.Duration(),
	})
	s.recordAsync(res)
	return true
}

// HandleDisconnect marks conn's slot as gone and starts its grace timer.
// It applies while waiting for an opponent too; the timer only settles the
// game once it is in play.
func (s *Session) HandleDisconnect(conn ConnID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slotOfLocked(conn)
	if slot == domain.SlotNone || s.status == domain.StatusFinished {
		return false
	}
	st := s.seats[slot]
	if st.bot != nil || !st.connected {
		return false
	}
	st.connected = false

	s.logger.Info("player disconnected, grace period started", "player", st.name, "grace", s.settings.DisconnectGrace)
	s.scheduleGraceLocked(slot)
	s.out.Broadcast(s.id, domain.ServerMessage{
		Type:    domain.MsgPlayerDisconnected,
		GameID:  s.id,
		Player:  slot,
		Message: st.name + " disconnected",
	})
	return true
}

func (s *Session) scheduleGraceLocked(slot domain.Slot) {
	s.timers.schedule(graceTimerKey(slot), s.settings.DisconnectGrace, func(id uint64) {
		s.onGraceExpired(slot, id)
	})
}

func (s *Session) onGraceExpired(slot domain.Slot, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timers.claim(graceTimerKey(slot), id) || s.status == domain.StatusFinished {
		return
	}
	if s.seats[slot].connected {
		return
	}
	if s.status != domain.StatusPlaying {
		// no opponent yet; startLocked opens a new window
		return
	}

	winner := slot.Opponent()
	if s.settleLocked(winner, false, domain.ReasonOpponentDisconnected) {
		s.out.Broadcast(s.id, domain.ServerMessage{
			Type:   domain.MsgGameOver,
			GameID: s.id,
			Winner: winner,
			Reason: domain.ReasonOpponentDisconnected,
			Board:  s.boardLocked(),
		})
	}
}

// HandleReconnect rebinds slot to conn if the game is still running.
// It returns the connection that previously held the slot.
func (s *Session) HandleReconnect(slot domain.Slot, conn ConnID) (Snapshot, ConnID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPlaying {
		return Snapshot{}, "", domain.ErrNotPlaying
	}
	if !slot.Valid() {
		return Snapshot{}, "", domain.ErrInvalidReconnect
	}
	st := s.seats[slot]
	if st == nil || st.bot != nil {
		return Snapshot{}, "", domain.ErrInvalidReconnect
	}

	s.timers.cancel(graceTimerKey(slot))
	previous := st.conn
	st.conn = conn
	st.connected = true
	s.logger.Info("player reconnected", "player", st.name, "slot", slot)

	s.out.JoinRoom(s.id, conn)
	s.out.Broadcast(s.id, domain.ServerMessage{
		Type:   domain.MsgPlayerReconnected,
		GameID: s.id,
		Player: slot,
	})
	return s.snapshotLocked(), previous, nil
}

// Close stops every timer without settling. Used on shutdown and eviction.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.cancelAll()
}

func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// SlotOf returns the slot conn occupies, or SlotNone.
func (s *Session) SlotOf(conn ConnID) domain.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotOfLocked(conn)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// finishedBefore reports whether the session settled at or before cutoff.
func (s *Session) finishedBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == domain.StatusFinished && !s.endedAt.After(cutoff)
}

func (s *Session) slotOfLocked(conn ConnID) domain.Slot {
	for _, slot := range []domain.Slot{domain.Slot1, domain.Slot2} {
		if st := s.seats[slot]; st != nil && st.conn == conn {
			return slot
		}
	}
	return domain.SlotNone
}

func (s *Session) boardLocked() *domain.Board {
	b := s.board
	return &b
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Board:     s.board,
		Turn:      s.turn,
		Status:    s.status,
		Winner:    s.winner,
		Draw:      s.draw,
		Reason:    s.reason,
		Moves:     s.moves,
		CreatedAt: s.createdAt,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
	for _, slot := range []domain.Slot{domain.Slot1, domain.Slot2} {
		st := s.seats[slot]
		if st == nil {
			continue
		}
		if slot == domain.Slot1 {
			snap.Player1 = st.name
		} else {
			snap.Player2 = st.name
		}
		if st.bot != nil {
			snap.BotSlot = slot
		}
		snap.Connected[slot] = st.connected
	}
	return snap
}

func (s *Session) resultLocked() domain.MatchResult {
	res := domain.MatchResult{
		GameID:    s.id,
		Player1:   s.seats[domain.Slot1].name,
		Player2:   s.seats[domain.Slot2].name,
		Draw:      s.draw,
		Reason:    s.reason,
		Moves:     s.moves,
		Board:     s.board,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
	if s.winner.Valid() {
		res.Winner = s.seats[s.winner].name
	}
	return res
}

// publish hands ev to the event sink without blocking the session.
func (s *Session) publish(ev domain.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.CollaboratorTimeout)
		defer cancel()

		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Error("failed to publish event", "type", ev.Type(), "err", err)
		}
	}()
}

// recordAsync persists the result in the background. Failures are logged only.
func (s *Session) recordAsync(res domain.MatchResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.CollaboratorTimeout)
		defer cancel()

		if err := s.results.RecordResult(ctx, res); err != nil {
			s.logger.Error("failed to record result", "err", err)
			return
		}
		s.logger.Debug("result recorded")
	}()
}
