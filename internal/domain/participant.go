// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxParticipantIDLen = 64

var ErrParticipantIDTooLong = errors.New("participant id too long")

type ParticipantID string

// AnonymousMarker stands in for participants that join without an
// identity; it keeps session ids derivable without coordination.
const AnonymousMarker = "anonymous"

// NewParticipantID is a tiny helper to avoid ad-hoc ids in adapters.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}

func (p ParticipantID) Validate() error {
	if len(p) > MaxParticipantIDLen {
		return ErrParticipantIDTooLong
	}
	return nil
}

// OrAnonymous returns the id, or the anonymous marker when empty.
func (p ParticipantID) OrAnonymous() string {
	if p == "" {
		return AnonymousMarker
	}
	return string(p)
}
