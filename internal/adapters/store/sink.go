package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/domain"
)

// LogSink records final fragments in the log. It stands in for the
// transcript database owned by the persistence collaborator.
type LogSink struct{}

func (LogSink) SaveFinal(ctx context.Context, frag domain.Fragment) error {
	log.Info().
		Str("module", "store.sink").
		Int64("meeting", int64(frag.MeetingID)).
		Str("participant", frag.ParticipantID.OrAnonymous()).
		Str("text", frag.Text).
		Float64("confidence", frag.Confidence).
		Msg("final fragment")
	return nil
}

// MemorySink collects fragments for inspection in tests.
type MemorySink struct {
	mu    sync.Mutex
	frags []domain.Fragment
}

func (s *MemorySink) SaveFinal(ctx context.Context, frag domain.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frags = append(s.frags, frag)
	return nil
}

func (s *MemorySink) Fragments() []domain.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Fragment, len(s.frags))
	copy(out, s.frags)
	return out
}
