package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/threadhub/internal/models"
)

var (
	ana = models.User{ID: "u1", Email: "ana@example.com", Name: "Ana"}
	bo  = models.User{ID: "u2", Email: "bo@example.com", Name: "Bo"}
)

func topLevelEvent(id, threadID string, author models.User) Event {
	return Event{
		ID:        id,
		Content:   "hello",
		Category:  models.CategoryFYI,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Author:    author,
		ThreadID:  threadID,
	}
}

func replyEvent(id, threadID, parentID string, author models.User) Event {
	ev := topLevelEvent(id, threadID, author)
	ev.ParentMessageID = parentID
	return ev
}

func heldMessage(id string) models.Message {
	return models.Message{ID: id, ThreadID: "t1", AuthorID: ana.ID, Author: ana, Content: "held", Category: models.CategoryFYI}
}

func TestThreadViewAppendsTopLevel(t *testing.T) {
	v := NewThreadView("t1", []models.Message{heldMessage("m1")})

	v.Apply(topLevelEvent("m2", "t1", bo))

	msgs := v.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, bo, msgs[1].Author)
}

func TestThreadViewIdempotentOnDuplicateDelivery(t *testing.T) {
	v := NewThreadView("t1", nil)

	ev := topLevelEvent("m1", "t1", bo)
	v.Apply(ev)
	v.Apply(ev)

	assert.Len(t, v.Messages(), 1, "same event twice must append once")
}

func TestThreadViewDiscardsEchoOfHeldMessage(t *testing.T) {
	// The direct send response may land before the push echo.
	v := NewThreadView("t1", []models.Message{heldMessage("m1")})

	v.Apply(topLevelEvent("m1", "t1", ana))

	require.Len(t, v.Messages(), 1)
	assert.Equal(t, "held", v.Messages()[0].Content)
}

func TestThreadViewReplyIncrementsParentOnly(t *testing.T) {
	v := NewThreadView("t1", []models.Message{heldMessage("m1"), heldMessage("m2")})

	v.Apply(replyEvent("r1", "t1", "m1", bo))

	msgs := v.Messages()
	require.Len(t, msgs, 2, "a reply must not change the top-level count")
	assert.Equal(t, 1, msgs[0].ReplyCount)
	assert.Equal(t, 0, msgs[1].ReplyCount)
}

func TestThreadViewReplyToUnheldParentIsNoop(t *testing.T) {
	v := NewThreadView("t1", []models.Message{heldMessage("m1")})

	v.Apply(replyEvent("r1", "t1", "m9", bo))

	msgs := v.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 0, msgs[0].ReplyCount)
}

func TestThreadViewIgnoresOtherThreads(t *testing.T) {
	v := NewThreadView("t1", nil)

	v.Apply(topLevelEvent("m1", "t2", bo))

	assert.Empty(t, v.Messages())
}

func TestThreadViewNeverReorders(t *testing.T) {
	v := NewThreadView("t1", []models.Message{heldMessage("m1"), heldMessage("m2")})

	// An event with an older timestamp still goes to the end.
	ev := topLevelEvent("m3", "t1", bo)
	ev.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	v.Apply(ev)

	msgs := v.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestReplyViewAppendsMatchingRepliesOnly(t *testing.T) {
	v := NewReplyView("t1", "m1", nil)

	v.Apply(replyEvent("r1", "t1", "m1", bo))
	v.Apply(replyEvent("r1", "t1", "m1", bo)) // duplicate
	v.Apply(replyEvent("r2", "t1", "m2", bo)) // other parent
	v.Apply(topLevelEvent("m3", "t1", bo))    // not a reply

	replies := v.Replies()
	require.Len(t, replies, 1)
	assert.Equal(t, "r1", replies[0].ID)
}

func sidebarRows() []models.ThreadListing {
	return []models.ThreadListing{
		{Thread: models.Thread{ID: "t1", Title: "release"}},
		{Thread: models.Thread{ID: "t2", Title: "oncall"}},
	}
}

func TestSidebarUnreadIncrementsForUnfocusedThread(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())
	v.Focus("t1")

	v.Apply(topLevelEvent("m1", "t2", bo))

	rows := v.Rows()
	assert.Equal(t, 0, rows[0].UnreadCount)
	assert.Equal(t, 1, rows[1].UnreadCount)
	require.NotNil(t, rows[1].LatestMessage)
	assert.Equal(t, "m1", rows[1].LatestMessage.ID)
}

func TestSidebarFocusedThreadStaysRead(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())
	v.Focus("t1")

	v.Apply(topLevelEvent("m1", "t1", bo))

	rows := v.Rows()
	assert.Equal(t, 0, rows[0].UnreadCount)
	assert.Equal(t, "m1", rows[0].LatestMessage.ID, "preview still updates")
}

func TestSidebarOwnMessagesDontCountUnread(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())
	v.Focus("t1")

	v.Apply(topLevelEvent("m1", "t2", ana))

	assert.Equal(t, 0, v.Rows()[1].UnreadCount)
}

func TestSidebarDuplicateEventCountsOnce(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())

	ev := topLevelEvent("m1", "t2", bo)
	v.Apply(ev)
	v.Apply(ev)

	assert.Equal(t, 1, v.Rows()[1].UnreadCount)
}

func TestSidebarRepliesAreNoop(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())

	v.Apply(replyEvent("r1", "t2", "m1", bo))

	rows := v.Rows()
	assert.Equal(t, 0, rows[1].UnreadCount)
	assert.Nil(t, rows[1].LatestMessage)
}

func TestSidebarFocusResetsUnread(t *testing.T) {
	v := NewSidebarView(ana.ID, sidebarRows())

	v.Apply(topLevelEvent("m1", "t2", bo))
	v.Apply(topLevelEvent("m2", "t2", bo))
	require.Equal(t, 2, v.Rows()[1].UnreadCount)

	v.Focus("t2")

	assert.Equal(t, 0, v.Rows()[1].UnreadCount)
}
