package domain

import "time"

type Channel string

const (
	ChannelEmail     Channel = "EMAIL"
	ChannelSMS       Channel = "SMS"
	ChannelWhatsApp  Channel = "WHATSAPP"
	ChannelPush      Channel = "PUSH"
	ChannelVoiceCall Channel = "VOICE_CALL"
)

// Channels is the fixed channel set, in display order.
var Channels = []Channel{
	ChannelEmail,
	ChannelSMS,
	ChannelWhatsApp,
	ChannelPush,
	ChannelVoiceCall,
}

func (c Channel) IsValid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// Preference is a user's opt-in for one channel.
type Preference struct {
	UserID      string     `json:"userId" db:"user_id"`
	Channel     Channel    `json:"channel" db:"channel"`
	Enabled     bool       `json:"enabled" db:"enabled"`
	Destination *string    `json:"destination" db:"destination"`
	VerifiedAt  *time.Time `json:"verifiedAt" db:"verified_at"`
}

// Eligible reports whether the channel may be used for dispatch.
// Verification is informational and not checked here.
func (p Preference) Eligible() bool {
	return p.Enabled && p.Destination != nil && *p.Destination != ""
}

// Recipient is one resolved (user, channel, destination) tuple.
type Recipient struct {
	UserID      string  `json:"userId"`
	Channel     Channel `json:"channel"`
	Destination string  `json:"destination"`
}
