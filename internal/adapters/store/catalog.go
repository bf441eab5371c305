// Package store implements the engine's external collaborators:
// meeting lookup and transcript persistence. Real deployments swap
// these for the administrative service and the transcript database.
package store

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/domain"
)

// Catalog is an in-memory meeting directory seeded from configuration.
type Catalog struct {
	mu       sync.RWMutex
	meetings map[domain.MeetingID]domain.Meeting
}

func NewCatalog(seed []domain.Meeting) *Catalog {
	c := &Catalog{meetings: make(map[domain.MeetingID]domain.Meeting, len(seed))}
	for _, m := range seed {
		c.meetings[m.ID] = m
	}
	log.Info().Str("module", "store.catalog").Int("meetings", len(seed)).Msg("catalog seeded")
	return c
}

func (c *Catalog) Lookup(id domain.MeetingID) (domain.Meeting, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.meetings[id]
	return m, ok
}

func (c *Catalog) Add(m domain.Meeting) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meetings[m.ID] = m
}

// SetTranscriptionActive flips the flag on behalf of the excluded
// administrative component. Connections already past their handshake
// never re-read it.
func (c *Catalog) SetTranscriptionActive(id domain.MeetingID, active bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.meetings[id]
	if !ok {
		return false
	}
	m.TranscriptionActive = active
	c.meetings[id] = m
	log.Info().Str("module", "store.catalog").Int64("meeting", int64(id)).Bool("active", active).Msg("transcription flag changed")
	return true
}
