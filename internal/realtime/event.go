package realtime

import (
	"time"

	"github.com/xaenox/threadhub/internal/models"
)

// EventNewMessage is the single event name used for both top-level sends and
// replies; the two are disambiguated by ParentMessageID.
const EventNewMessage = "new-message"

// ThreadChannel names the push channel for a thread.
func ThreadChannel(threadID string) string {
	return "thread-" + threadID
}

// Event is the payload pushed to every subscriber of a thread's channel when
// a message or reply is persisted.
type Event struct {
	ID              string          `json:"id"`
	Content         string          `json:"content"`
	Category        models.Category `json:"category"`
	CreatedAt       time.Time       `json:"createdAt"`
	Author          models.User     `json:"author"`
	ThreadID        string          `json:"threadId"`
	ParentMessageID string          `json:"parentMessageId,omitempty"`
}

// EventFromMessage builds the push payload for a persisted message.
func EventFromMessage(msg *models.Message) Event {
	return Event{
		ID:              msg.ID,
		Content:         msg.Content,
		Category:        msg.Category,
		CreatedAt:       msg.CreatedAt,
		Author:          msg.Author,
		ThreadID:        msg.ThreadID,
		ParentMessageID: msg.ParentMessageID,
	}
}

// Broadcaster is the server side of the push-delivery collaborator.
// Implementations are best-effort: delivery failures are logged and swallowed
// and must never block the action that triggered them.
type Broadcaster interface {
	Trigger(channel, event string, payload any)
}

// NopBroadcaster is the broadcaster when push delivery is not configured;
// the product functions without realtime updates.
type NopBroadcaster struct{}

func (NopBroadcaster) Trigger(string, string, any) {}
