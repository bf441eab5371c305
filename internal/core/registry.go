package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/domain"
)

// MeetingRegistry maps a meeting to the set of currently attached
// connections. It owns membership only and never touches transport
// resources; broadcasts iterate over a snapshot, not the live set.
type MeetingRegistry struct {
	mu        sync.RWMutex
	byMeeting map[domain.MeetingID]map[ClientConn]struct{}
}

func NewMeetingRegistry() *MeetingRegistry {
	return &MeetingRegistry{byMeeting: make(map[domain.MeetingID]map[ClientConn]struct{})}
}

// Join adds conn to the meeting's set. Idempotent for the same pair.
func (r *MeetingRegistry) Join(mid domain.MeetingID, conn ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byMeeting[mid]
	if set == nil {
		set = make(map[ClientConn]struct{})
		r.byMeeting[mid] = set
	}
	set[conn] = struct{}{}
	log.Info().Str("module", "core.registry").Int64("meeting", int64(mid)).Int("members", len(set)).Msg("connection joined")
}

// Leave removes conn; an emptied meeting entry is deleted so the map
// never accumulates dead meetings.
func (r *MeetingRegistry) Leave(mid domain.MeetingID, conn ClientConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byMeeting[mid]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.byMeeting, mid)
	}
	log.Info().Str("module", "core.registry").Int64("meeting", int64(mid)).Int("members", len(set)).Msg("connection left")
}

// Snapshot returns a point-in-time copy safe to iterate while
// concurrent joins and leaves mutate the live set.
func (r *MeetingRegistry) Snapshot(mid domain.MeetingID) []ClientConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byMeeting[mid]
	out := make([]ClientConn, 0, len(set))
	for conn := range set {
		out = append(out, conn)
	}
	return out
}

func (r *MeetingRegistry) Count(mid domain.MeetingID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMeeting[mid])
}

func (r *MeetingRegistry) Contains(mid domain.MeetingID, conn ClientConn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byMeeting[mid][conn]
	return ok
}
