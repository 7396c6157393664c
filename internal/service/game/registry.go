package game

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/pkg/uid"
)

type membership struct {
	gameID string
	slot   domain.Slot
}

// Registry owns every live session and the table mapping connections to
// the seat they hold.
type Registry struct {
	settings Settings
	deps     Dependencies
	logger   *log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session   // gameID -> session
	members  map[ConnID]membership // conn -> seat
}

func NewRegistry(settings Settings, deps Dependencies) *Registry {
	defaults := DefaultSettings()
	if settings.MatchmakingTimeout <= 0 {
		settings.MatchmakingTimeout = defaults.MatchmakingTimeout
	}
	if settings.DisconnectGrace <= 0 {
		settings.DisconnectGrace = defaults.DisconnectGrace
	}
	if settings.BotThinkDelay <= 0 {
		settings.BotThinkDelay = defaults.BotThinkDelay
	}
	if settings.BotName == "" {
		settings.BotName = defaults.BotName
	}
	if settings.CollaboratorTimeout <= 0 {
		settings.CollaboratorTimeout = defaults.CollaboratorTimeout
	}

	deps = deps.withDefaults()
	return &Registry{
		settings: settings,
		deps:     deps,
		logger:   deps.Logger.WithPrefix("registry"),
		sessions: make(map[string]*Session),
		members:  make(map[ConnID]membership),
	}
}

func (r *Registry) Settings() Settings {
	return r.settings
}

// Create registers a new empty session. onSeatsClosed may be nil.
func (r *Registry) Create(onSeatsClosed func(gameID string)) *Session {
	s := newSession(uid.NewGameID(), r.settings, r.deps)
	s.onSeatsClosed = onSeatsClosed

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.logger.Debug("session created", "game", s.id)
	return s
}

func (r *Registry) Get(gameID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[gameID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Lookup resolves the session and slot a connection is seated in.
func (r *Registry) Lookup(conn ConnID) (*Session, domain.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[conn]
	if !ok {
		return nil, domain.SlotNone, domain.ErrSessionNotFound
	}
	s, ok := r.sessions[m.gameID]
	if !ok {
		return nil, domain.SlotNone, domain.ErrSessionNotFound
	}
	return s, m.slot, nil
}

func (r *Registry) Bind(conn ConnID, gameID string, slot domain.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[conn] = membership{gameID: gameID, slot: slot}
}

func (r *Registry) Unbind(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, conn)
}

// Remove drops a session and every membership pointing at it.
func (r *Registry) Remove(gameID string) {
	r.mu.Lock()
	s, ok := r.sessions[gameID]
	if ok {
		delete(r.sessions, gameID)
		for conn, m := range r.members {
			if m.gameID == gameID {
				delete(r.members, conn)
			}
		}
	}
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Count returns the number of sessions held, finished ones included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Active returns the number of sessions that have not finished.
func (r *Registry) Active() int {
	n := 0
	for _, s := range r.snapshot() {
		if s.Status() != domain.StatusFinished {
			n++
		}
	}
	return n
}

func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	return list
}

// NotifyDisconnect forwards a closed connection to the session it was seated in.
func (r *Registry) NotifyDisconnect(conn ConnID) {
	s, _, err := r.Lookup(conn)
	if err != nil {
		return
	}
	s.HandleDisconnect(conn)
	r.Unbind(conn)
}

// Reconnect moves slot of gameID onto a new connection.
func (r *Registry) Reconnect(gameID string, slot domain.Slot, conn ConnID) (Snapshot, error) {
	s, err := r.Get(gameID)
	if err != nil {
		return Snapshot{}, err
	}

	snap, previous, err := s.HandleReconnect(slot, conn)
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	if previous != "" && previous != conn {
		delete(r.members, previous)
	}
	r.members[conn] = membership{gameID: gameID, slot: slot}
	r.mu.Unlock()

	return snap, nil
}

// SweepFinished evicts sessions that settled at least retention ago.
func (r *Registry) SweepFinished(retention time.Duration) int {
	cutoff := r.deps.Clock.Now().Add(-retention)

	removed := 0
	for _, s := range r.snapshot() {
		if s.finishedBefore(cutoff) {
			r.Remove(s.ID())
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("evicted finished sessions", "count", removed)
	}
	return removed
}

// Shutdown stops every pending timer. Sessions are left unsettled.
func (r *Registry) Shutdown() {
	for _, s := range r.snapshot() {
		s.Close()
	}
}

// Live returns snapshots of every session currently in play.
func (r *Registry) Live() []Snapshot {
	var live []Snapshot
	for _, s := range r.snapshot() {
		if snap := s.Snapshot(); snap.Status == domain.StatusPlaying {
			live = append(live, snap)
		}
	}
	return live
}
