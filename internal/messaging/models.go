// internal/messaging/models.go

package messaging

import (
	"errors"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidParticipants  = errors.New("a direct conversation needs two distinct users")
)

const ConversationTypeDirect = "direct"

// Conversation represents a chat conversation
type Conversation struct {
	ID            int64      `json:"id" db:"id"`
	Type          string     `json:"type" db:"type"`
	CreatedBy     *int64     `json:"created_by,omitempty" db:"created_by"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	Participants []int64 `json:"participants,omitempty"`
}

// Message is the subset of a chat message the match core reads
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversation_id" db:"conversation_id"`
	SenderID       int64     `json:"sender_id" db:"sender_id"`
	Content        *string   `json:"content,omitempty" db:"content"`
	MessageType    string    `json:"message_type" db:"message_type"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Activity summarizes a direct conversation for idle scans
type Activity struct {
	ConversationID int64
	LastMessageAt  time.Time
	Participants   []int64
}

// Recipient returns the participant who is not senderID
func (a Activity) Recipient(senderID int64) (int64, bool) {
	if len(a.Participants) != 2 {
		return 0, false
	}
	switch senderID {
	case a.Participants[0]:
		return a.Participants[1], true
	case a.Participants[1]:
		return a.Participants[0], true
	}
	return 0, false
}
