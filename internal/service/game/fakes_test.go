package game

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	sent  []domain.ServerMessage
	rooms map[string][]ConnID
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{rooms: make(map[string][]ConnID)}
}

func (b *recordingBroadcaster) Broadcast(_ string, msg domain.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

func (b *recordingBroadcaster) Send(_ ConnID, msg domain.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, msg)
}

func (b *recordingBroadcaster) JoinRoom(gameID string, conn ConnID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[gameID] = append(b.rooms[gameID], conn)
}

func (b *recordingBroadcaster) messages() []domain.ServerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ServerMessage(nil), b.sent...)
}

func (b *recordingBroadcaster) ofType(kind string) []domain.ServerMessage {
	var out []domain.ServerMessage
	for _, m := range b.messages() {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

func (b *recordingBroadcaster) last() domain.ServerMessage {
	msgs := b.messages()
	if len(msgs) == 0 {
		return domain.ServerMessage{}
	}
	return msgs[len(msgs)-1]
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Publish(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) count(kind domain.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Type() == kind {
			n++
		}
	}
	return n
}

func (s *recordingSink) find(kind domain.EventType) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Type() == kind {
			return ev
		}
	}
	return nil
}

type recordingRecorder struct {
	mu      sync.Mutex
	results []domain.MatchResult
	err     error
}

func (r *recordingRecorder) RecordResult(_ context.Context, res domain.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return r.err
}

func (r *recordingRecorder) recorded() []domain.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.MatchResult(nil), r.results...)
}

var errCollaboratorDown = errors.New("collaborator unavailable")

type failingSink struct{}

func (failingSink) Publish(context.Context, domain.Event) error { return errCollaboratorDown }

type harness struct {
	clock    *quartz.Mock
	out      *recordingBroadcaster
	events   *recordingSink
	results  *recordingRecorder
	registry *Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   quartz.NewMock(t),
		out:     newRecordingBroadcaster(),
		events:  &recordingSink{},
		results: &recordingRecorder{},
	}
	h.registry = NewRegistry(DefaultSettings(), Dependencies{
		Clock:       h.clock,
		Logger:      log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
		Broadcaster: h.out,
		Events:      h.events,
		Results:     h.results,
	})
	return h
}

// startHumanGame seats two humans and returns the playing session.
func (h *harness) startHumanGame(t *testing.T) *Session {
	t.Helper()
	s := h.registry.Create(nil)
	if _, err := s.AddPlayer("alice-conn", "alice"); err != nil {
		t.Fatalf("seat alice: %v", err)
	}
	if _, err := s.AddPlayer("bob-conn", "bob"); err != nil {
		t.Fatalf("seat bob: %v", err)
	}
	return s
}

// playAlternating feeds columns to alice and bob in turn, starting with alice.
func playAlternating(t *testing.T, s *Session, columns ...int) Move {
	t.Helper()
	actors := []ConnID{"alice-conn", "bob-conn"}
	var move Move
	for i, col := range columns {
		var err error
		move, err = s.MakeMove(actors[i%2], col)
		if err != nil {
			t.Fatalf("move %d (column %d): %v", i, col, err)
		}
	}
	return move
}
