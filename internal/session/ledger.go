// Package session keeps per-session question/answer transcripts in memory.
package session

import (
	"fmt"
	"sync"

	"docqa/internal/domain"
)

type transcript struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// Ledger holds transcripts keyed by session id. Sessions are created lazily
// and only ever grow. Each session has its own lock so appends to different
// sessions never contend.
type Ledger struct {
	mu       sync.RWMutex
	sessions map[string]*transcript
}

func NewLedger() *Ledger {
	return &Ledger{sessions: make(map[string]*transcript)}
}

func (l *Ledger) get(id string) (*transcript, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.sessions[id]
	return t, ok
}

func (l *Ledger) getOrCreate(id string) *transcript {
	if t, ok := l.get(id); ok {
		return t
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.sessions[id]; ok {
		return t
	}
	t := &transcript{}
	l.sessions[id] = t
	return t
}

// Append adds a single turn to the session.
func (l *Ledger) Append(id string, role domain.Role, content string) {
	l.AppendTurns(id, domain.Turn{Role: role, Content: content})
}

// AppendTurns adds turns contiguously: no other append to the same session
// can land between them.
func (l *Ledger) AppendTurns(id string, turns ...domain.Turn) {
	t := l.getOrCreate(id)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turns...)
}

// Get returns a copy of the session's turns in order.
func (l *Ledger) Get(id string) ([]domain.Turn, error) {
	t, ok := l.get(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Turn, len(t.turns))
	copy(out, t.turns)
	return out, nil
}

// Len returns the number of sessions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}
