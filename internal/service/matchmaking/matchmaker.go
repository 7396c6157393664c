package matchmaking

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/iamasit07/four-in-a-row/internal/domain"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
)

const MaxUsernameLength = 20

// Matchmaker pairs joiners with the oldest session still waiting for an
// opponent, or opens a new one.
type Matchmaker struct {
	registry *game.Registry
	logger   *log.Logger

	// joinMu serializes Join. qmu only guards queue and is never held
	// while a session lock is taken.
	joinMu sync.Mutex
	qmu    sync.Mutex
	queue  []string
}

func New(registry *game.Registry, logger *log.Logger) *Matchmaker {
	if logger == nil {
		logger = log.Default()
	}
	return &Matchmaker{
		registry: registry,
		logger:   logger.WithPrefix("matchmaking"),
	}
}

// NormalizeUsername trims name and checks it against the length limits.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrUsernameRequired
	}
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", domain.ErrUsernameTooLong
	}
	return name, nil
}

// Join seats conn in a waiting session, or creates one and queues it.
func (m *Matchmaker) Join(conn game.ConnID, name string) (*game.Session, domain.Slot, error) {
	name, err := NormalizeUsername(name)
	if err != nil {
		return nil, domain.SlotNone, err
	}

	m.joinMu.Lock()
	defer m.joinMu.Unlock()

	if s, _, err := m.registry.Lookup(conn); err == nil && s.Status() != domain.StatusFinished {
		return nil, domain.SlotNone, domain.ErrAlreadyJoined
	}

	for {
		id, ok := m.pop()
		if !ok {
			break
		}
		s, err := m.registry.Get(id)
		if err != nil {
			continue
		}
		slot, err := s.AddPlayer(conn, name)
		if err != nil {
			m.logger.Debug("skipping stale queue entry", "game", id, "err", err)
			continue
		}
		m.registry.Bind(conn, id, slot)
		m.logger.Info("paired with waiting session", "game", id, "player", name)
		return s, slot, nil
	}

	s := m.registry.Create(m.dequeue)
	m.push(s.ID())
	slot, err := s.AddPlayer(conn, name)
	if err != nil {
		m.dequeue(s.ID())
		m.registry.Remove(s.ID())
		return nil, domain.SlotNone, err
	}
	m.registry.Bind(conn, s.ID(), slot)
	return s, slot, nil
}

// Waiting reports how many sessions are queued for an opponent.
func (m *Matchmaker) Waiting() int {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	return len(m.queue)
}

func (m *Matchmaker) push(gameID string) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	m.queue = append(m.queue, gameID)
}

func (m *Matchmaker) pop() (string, bool) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	if len(m.queue) == 0 {
		return "", false
	}
	id := m.queue[0]
	m.queue = m.queue[1:]
	return id, true
}

// dequeue is handed to the registry as the seats-closed hook.
func (m *Matchmaker) dequeue(gameID string) {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	for i, id := range m.queue {
		if id == gameID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}
