package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/threadhub/internal/models"
)

func seedUsers(t *testing.T, s *MemoryStorage) (models.User, models.User) {
	t.Helper()
	ctx := context.Background()
	ana := models.User{ID: "u1", Email: "Ana@Example.com", Name: "Ana"}
	bo := models.User{ID: "u2", Email: "bo@example.com", Name: "Bo"}
	require.NoError(t, s.UpsertUser(ctx, &ana))
	require.NoError(t, s.UpsertUser(ctx, &bo))
	return ana, bo
}

func seedThread(t *testing.T, s *MemoryStorage, creator models.User) models.Thread {
	t.Helper()
	thread := models.Thread{
		ID:          "t1",
		Title:       "release",
		CreatedByID: creator.ID,
		CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateThread(context.Background(), &thread))
	return thread
}

func msgAt(id, threadID, parentID, authorID, content string, cat models.Category, minute int) *models.Message {
	return &models.Message{
		ID:              id,
		ThreadID:        threadID,
		ParentMessageID: parentID,
		AuthorID:        authorID,
		Content:         content,
		Category:        cat,
		CreatedAt:       time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC),
	}
}

func TestFindUserByEmailCaseInsensitive(t *testing.T) {
	s := NewMemoryStorage()
	ana, _ := seedUsers(t, s)

	u, err := s.FindUserByEmail(context.Background(), "ana@example.COM")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, u.ID)

	_, err = s.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateThreadAddsCreatorMembership(t *testing.T) {
	s := NewMemoryStorage()
	ana, bo := seedUsers(t, s)
	thread := seedThread(t, s, ana)

	isMember, err := s.IsMember(context.Background(), thread.ID, ana.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = s.IsMember(context.Background(), thread.ID, bo.ID)
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestTopLevelMessagesWithReplyCounts(t *testing.T) {
	s := NewMemoryStorage()
	ana, bo := seedUsers(t, s)
	thread := seedThread(t, s, ana)
	ctx := context.Background()

	require.NoError(t, s.CreateMessage(ctx, msgAt("m1", thread.ID, "", ana.ID, "plan?", models.CategoryQuestion, 0)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("m2", thread.ID, "", bo.ID, "on track", models.CategoryUpdate, 1)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("r1", thread.ID, "m1", bo.ID, "see doc", models.CategoryQuestion, 2)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("r2", thread.ID, "m1", ana.ID, "thanks", models.CategoryQuestion, 3)))

	messages, err := s.TopLevelMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2, "replies must not appear at top level")
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, 2, messages[0].ReplyCount)
	assert.Equal(t, "m2", messages[1].ID)
	assert.Equal(t, 0, messages[1].ReplyCount)
	assert.Equal(t, "Ana", messages[0].Author.Name)
}

func TestRepliesChronological(t *testing.T) {
	s := NewMemoryStorage()
	ana, bo := seedUsers(t, s)
	thread := seedThread(t, s, ana)
	ctx := context.Background()

	require.NoError(t, s.CreateMessage(ctx, msgAt("m1", thread.ID, "", ana.ID, "plan?", models.CategoryQuestion, 0)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("r2", thread.ID, "m1", ana.ID, "second", models.CategoryQuestion, 3)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("r1", thread.ID, "m1", bo.ID, "first", models.CategoryQuestion, 2)))

	replies, err := s.Replies(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "r1", replies[0].ID)
	assert.Equal(t, "r2", replies[1].ID)
}

func TestRecentMessagesFilterAndLimit(t *testing.T) {
	s := NewMemoryStorage()
	ana, _ := seedUsers(t, s)
	thread := seedThread(t, s, ana)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cat := models.CategoryFYI
		if i%2 == 0 {
			cat = models.CategoryDecision
		}
		id := fmt.Sprintf("m%d", i)
		require.NoError(t, s.CreateMessage(ctx, msgAt(id, thread.ID, "", ana.ID, "c", cat, i)))
	}

	all, err := s.RecentMessages(ctx, thread.ID, "", 3)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m2", all[0].ID, "oldest of the newest three comes first")
	assert.Equal(t, "m4", all[2].ID)

	decisions, err := s.RecentMessages(ctx, thread.ID, string(models.CategoryDecision), 30)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	for _, m := range decisions {
		assert.Equal(t, models.CategoryDecision, m.Category)
	}
}

func TestListThreadsUnreadFromWatermark(t *testing.T) {
	s := NewMemoryStorage()
	ana, bo := seedUsers(t, s)
	thread := seedThread(t, s, ana)
	ctx := context.Background()
	require.NoError(t, s.AddMember(ctx, thread.ID, bo.ID))

	require.NoError(t, s.CreateMessage(ctx, msgAt("m1", thread.ID, "", bo.ID, "hello", models.CategoryFYI, 0)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("m2", thread.ID, "", bo.ID, "again", models.CategoryFYI, 5)))
	require.NoError(t, s.CreateMessage(ctx, msgAt("m3", thread.ID, "", ana.ID, "mine", models.CategoryFYI, 6)))

	listings, err := s.ListThreads(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 2, listings[0].UnreadCount, "own messages never count as unread")
	require.NotNil(t, listings[0].LatestMessage)
	assert.Equal(t, "m3", listings[0].LatestMessage.ID)

	// Seeing the thread up to m2's timestamp leaves nothing unread.
	require.NoError(t, s.TouchLastSeen(ctx, thread.ID, ana.ID, time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)))
	listings, err = s.ListThreads(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, listings[0].UnreadCount)
}

func TestAddMemberIdempotent(t *testing.T) {
	s := NewMemoryStorage()
	ana, bo := seedUsers(t, s)
	thread := seedThread(t, s, ana)
	ctx := context.Background()

	require.NoError(t, s.AddMember(ctx, thread.ID, bo.ID))
	require.NoError(t, s.AddMember(ctx, thread.ID, bo.ID))

	members, err := s.ListMembers(ctx, thread.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, ana.ID, members[0].ID, "creator joined first")
}
