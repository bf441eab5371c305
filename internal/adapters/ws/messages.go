package ws

import (
	"time"

	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/domain"
)

// initMsg is the one handshake message a client sends first.
type initMsg struct {
	MeetingID     domain.MeetingID     `json:"meeting_id"`
	SampleRate    int                  `json:"sample_rate"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// inactiveStatus tells the client not to send audio: either the
// meeting is unknown or transcription has not been started yet.
type inactiveStatus struct {
	Action             string           `json:"action"`
	Type               string           `json:"type"`
	Message            string           `json:"message"`
	MeetingID          domain.MeetingID `json:"meeting_id"`
	RequiresMicrophone bool             `json:"requires_microphone"`
	Timestamp          time.Time        `json:"timestamp"`
}

func newInactiveStatus(mid domain.MeetingID, message string) inactiveStatus {
	return inactiveStatus{
		Action:    "transcription_inactive",
		Type:      "status",
		Message:   message,
		MeetingID: mid,
		Timestamp: time.Now().UTC(),
	}
}

type readyStatus struct {
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	SessionID core.SessionID `json:"session_id"`
}

type pongMsg struct {
	Type string `json:"type"`
}
