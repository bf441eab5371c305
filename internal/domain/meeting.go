package domain

type (
	MeetingID int64
)

// Meeting is the external grouping context for a transcription session.
// The engine only ever reads ID and TranscriptionActive; the remaining
// fields are administrative meta-data owned by the meeting service.
type Meeting struct {
	ID                  MeetingID `json:"id" mapstructure:"id"`
	Title               string    `json:"title" mapstructure:"title"`
	Language            string    `json:"language" mapstructure:"language"`
	TranscriptionActive bool      `json:"transcription_active" mapstructure:"transcription_active"`
	AllowTranscriptions bool      `json:"allow_transcriptions" mapstructure:"allow_transcriptions"`
	MaxParticipants     int       `json:"max_participants" mapstructure:"max_participants"`
}
