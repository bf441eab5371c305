package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/domain"
	"github.com/lberthe/scribe/internal/recognizer"
)

type SessionID string

// Session is one connection's live decoding context for one meeting.
// The decoder is exclusively owned by the session and never reused
// after release.
type Session struct {
	ID            SessionID
	MeetingID     domain.MeetingID
	ParticipantID domain.ParticipantID
	CreatedAt     time.Time

	decoder recognizer.Decoder
	release sync.Once
}

func (s *Session) Decoder() recognizer.Decoder { return s.decoder }

// Release flushes and closes the decoder exactly once, guarding
// against the ingestion loop and the cleanup path racing on it.
// ok is false on repeat calls.
func (s *Session) Release() (step recognizer.Step, ok bool) {
	s.release.Do(func() {
		step = s.decoder.Flush()
		s.decoder.Close()
		ok = true
	})
	return step, ok
}

// SessionTable tracks in-flight recognition contexts by session id.
// Ids are write-once keys; there is no update operation.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[SessionID]*Session)}
}

// Create derives the session id from meeting, participant and creation
// time, unique without coordination.
func (t *SessionTable) Create(mid domain.MeetingID, pid domain.ParticipantID, dec recognizer.Decoder) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:            SessionID(fmt.Sprintf("%d_%s_%d", mid, pid.OrAnonymous(), now.UnixMilli())),
		MeetingID:     mid,
		ParticipantID: pid,
		CreatedAt:     now,
		decoder:       dec,
	}
	t.mu.Lock()
	t.sessions[s.ID] = s
	t.mu.Unlock()
	log.Info().Str("module", "core.sessions").Str("sid", string(s.ID)).Int64("meeting", int64(mid)).Msg("session created")
	return s
}

func (t *SessionTable) Get(id SessionID) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// Delete removes the entry and is the single point responsible for
// releasing the decoder. Safe to invoke from more than one trigger.
func (t *SessionTable) Delete(id SessionID) (recognizer.Step, bool) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()
	if !ok {
		return recognizer.Step{}, false
	}
	step, released := s.Release()
	log.Info().Str("module", "core.sessions").Str("sid", string(id)).Msg("session deleted")
	return step, released
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
