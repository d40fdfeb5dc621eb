package models

// Kind classifies an inbound message for dispatch.
type Kind string

const (
	CommandKind     Kind = "command"
	VoiceKind       Kind = "voice"
	AudioKind       Kind = "audio"
	TextKind        Kind = "text"
	UnsupportedKind Kind = "unsupported"
)

// Relayed reports whether messages of this kind go through the voice pipeline.
func (k Kind) Relayed() bool {
	return k == VoiceKind || k == AudioKind
}
