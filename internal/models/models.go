package models

import "time"

// VoiceMessage is an inbound message that carries a voice note or audio file.
type VoiceMessage struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Kind      Kind      `json:"kind"`
	FileID    string    `json:"file_id"`
	MimeType  string    `json:"mime_type,omitempty"`
	Duration  int       `json:"duration,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stage is a state of one pipeline invocation.
type Stage string

const (
	StageReceived    Stage = "received"
	StageTranscribed Stage = "transcribed"
	StageAnswered    Stage = "answered"
	StageSynthesized Stage = "synthesized"
	StageDelivered   Stage = "delivered"
)

// Result is what a finished invocation produced.
type Result struct {
	Transcript string `json:"transcript"`
	Answer     string `json:"answer"`
	Stage      Stage  `json:"stage"`
}
