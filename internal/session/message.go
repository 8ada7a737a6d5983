// Package session implements the tutoring session controller: the turn
// protocol against the remote tutor gateway, control-token interpretation,
// curriculum progression and progress persistence.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuddy-labs/codebuddy/internal/ai"
	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// ChatMessage is one entry of the append-only session history. Messages are
// immutable once appended. Curriculum, when set, is the snapshot taken at the
// moment of topic advancement so historical progress maps render as they
// were, not as the session is now.
type ChatMessage struct {
	ID         string                 `json:"id"`
	Sender     Sender                 `json:"sender"`
	Text       string                 `json:"text"`
	Curriculum *curriculum.Curriculum `json:"curriculum,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

func newMessage(prefix string, sender Sender, text string) ChatMessage {
	id := uuid.NewString()
	if prefix != "" {
		id = prefix + "-" + id
	}
	return ChatMessage{
		ID:        id,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// toGatewayHistory converts history to gateway messages. The model side of
// the wire knows only "user" and "model" roles.
func toGatewayHistory(history []ChatMessage) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, m := range history {
		role := "model"
		if m.Sender == SenderUser {
			role = "user"
		}
		out = append(out, ai.Message{Role: role, Content: m.Text})
	}
	return out
}

// withoutSystem filters out system banners; the model never sees them as
// conversational turns.
func withoutSystem(history []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Sender != SenderSystem {
			out = append(out, m)
		}
	}
	return out
}
