package realtime

import (
	"github.com/xaenox/threadhub/internal/models"
)

// The merge engine applies inbound push events to locally held view state.
// Each view owns its copy of the state, so no locking is needed; events are
// applied in arrival order per channel. All reducers are idempotent under
// at-least-once delivery: a duplicate event never double-appends or
// double-increments. Held messages are never reordered, only appended.

func messageFromEvent(ev Event) models.Message {
	return models.Message{
		ID:              ev.ID,
		ThreadID:        ev.ThreadID,
		ParentMessageID: ev.ParentMessageID,
		AuthorID:        ev.Author.ID,
		Author:          ev.Author,
		Content:         ev.Content,
		Category:        ev.Category,
		CreatedAt:       ev.CreatedAt,
	}
}

// ThreadView is the state behind an open thread: its top-level messages in
// display order, with live reply counts.
type ThreadView struct {
	ThreadID string
	messages []models.Message
}

func NewThreadView(threadID string, initial []models.Message) *ThreadView {
	v := &ThreadView{ThreadID: threadID}
	v.messages = append(v.messages, initial...)
	return v
}

// Messages returns the held top-level messages in append order.
func (v *ThreadView) Messages() []models.Message {
	return v.messages
}

// Apply merges one push event into the view.
//
// A reply increments the held parent's reply count; if the parent is not
// held (or the event targets another thread) the event is a no-op — no
// fetch-to-reconcile is attempted. A top-level message is appended unless a
// message with the same id is already held, which guards against duplicate
// delivery and the race between the send response and its push echo.
func (v *ThreadView) Apply(ev Event) {
	if ev.ThreadID != v.ThreadID {
		return
	}

	if ev.ParentMessageID != "" {
		for i := range v.messages {
			if v.messages[i].ID == ev.ParentMessageID {
				v.messages[i].ReplyCount++
				return
			}
		}
		return
	}

	for i := range v.messages {
		if v.messages[i].ID == ev.ID {
			return
		}
	}
	v.messages = append(v.messages, messageFromEvent(ev))
}

// ReplyView is the state behind an open reply panel: one parent message's
// replies in display order.
type ReplyView struct {
	ThreadID        string
	ParentMessageID string
	replies         []models.Message
}

func NewReplyView(threadID, parentMessageID string, initial []models.Message) *ReplyView {
	v := &ReplyView{ThreadID: threadID, ParentMessageID: parentMessageID}
	v.replies = append(v.replies, initial...)
	return v
}

func (v *ReplyView) Replies() []models.Message {
	return v.replies
}

// Apply appends a reply addressed to this panel's parent, deduplicated by
// id. Everything else on the channel is ignored.
func (v *ReplyView) Apply(ev Event) {
	if ev.ThreadID != v.ThreadID || ev.ParentMessageID != v.ParentMessageID {
		return
	}
	for i := range v.replies {
		if v.replies[i].ID == ev.ID {
			return
		}
	}
	v.replies = append(v.replies, messageFromEvent(ev))
}

// SidebarView is the state behind the thread listing: latest-message
// previews and per-thread unread counters for the viewing user.
type SidebarView struct {
	CurrentUserID   string
	FocusedThreadID string

	rows []models.ThreadListing
	seen map[string]struct{}
}

func NewSidebarView(currentUserID string, initial []models.ThreadListing) *SidebarView {
	v := &SidebarView{
		CurrentUserID: currentUserID,
		seen:          make(map[string]struct{}),
	}
	v.rows = append(v.rows, initial...)
	return v
}

func (v *SidebarView) Rows() []models.ThreadListing {
	return v.rows
}

// Apply merges one push event into the listing. Replies never change the
// listing (the sidebar holds no top-level messages to count against). A
// top-level message updates its thread's preview and, when the thread is not
// focused and the message is not the viewer's own, bumps the unread counter.
func (v *SidebarView) Apply(ev Event) {
	if ev.ParentMessageID != "" {
		return
	}
	if _, dup := v.seen[ev.ID]; dup {
		return
	}

	for i := range v.rows {
		if v.rows[i].Thread.ID != ev.ThreadID {
			continue
		}
		v.seen[ev.ID] = struct{}{}

		msg := messageFromEvent(ev)
		v.rows[i].LatestMessage = &msg
		if ev.ThreadID != v.FocusedThreadID && ev.Author.ID != v.CurrentUserID {
			v.rows[i].UnreadCount++
		}
		return
	}
}

// Focus marks a thread as the one being viewed and zeroes its unread
// counter. This is a local optimistic update; the persisted last-seen
// watermark moves only when the thread's message list is (re)loaded.
func (v *SidebarView) Focus(threadID string) {
	v.FocusedThreadID = threadID
	for i := range v.rows {
		if v.rows[i].Thread.ID == threadID {
			v.rows[i].UnreadCount = 0
			return
		}
	}
}
