package domain

import "time"

// Word is one aligned word of a final hypothesis.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Fragment is one transcript hypothesis produced by a session.
// A final fragment is a committed utterance; a partial one is a
// transient hypothesis for speech still in progress.
type Fragment struct {
	Type          string        `json:"type"`
	Text          string        `json:"text"`
	Final         bool          `json:"final"`
	Timestamp     time.Time     `json:"timestamp"`
	ParticipantID ParticipantID `json:"user_id"`
	MeetingID     MeetingID     `json:"meeting_id"`
	Words         []Word        `json:"words,omitempty"`
	IsPartial     bool          `json:"is_partial,omitempty"`

	// Confidence is kept for persistence, never sent on the wire.
	Confidence float64 `json:"-"`
}

func NewFinalFragment(mid MeetingID, pid ParticipantID, text string, words []Word, conf float64) Fragment {
	return Fragment{
		Type:          "transcription",
		Text:          text,
		Final:         true,
		Timestamp:     time.Now().UTC(),
		ParticipantID: pid,
		MeetingID:     mid,
		Words:         words,
		Confidence:    conf,
	}
}

func NewPartialFragment(mid MeetingID, pid ParticipantID, text string) Fragment {
	return Fragment{
		Type:          "transcription",
		Text:          text,
		Final:         false,
		Timestamp:     time.Now().UTC(),
		ParticipantID: pid,
		MeetingID:     mid,
		IsPartial:     true,
	}
}
