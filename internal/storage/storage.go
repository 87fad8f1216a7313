package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/threadhub/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage is the persistence collaborator owning users, threads, memberships
// and messages. IDs and creation timestamps are assigned by the caller before
// Create calls so both backends behave identically.
type Storage interface {
	// UpsertUser records a user account, keyed by ID. Called on every
	// authenticated request so that users exist before they can be invited.
	UpsertUser(ctx context.Context, user *models.User) error

	// FindUserByEmail performs a case-insensitive email lookup.
	// Returns ErrNotFound when no such user has ever logged in.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateThread persists a thread and its creator's membership.
	CreateThread(ctx context.Context, thread *models.Thread) error

	// ListThreads returns the member's threads, newest-created first, each
	// with its latest message (replies included) and the unread count
	// derived from the member's last-seen watermark.
	ListThreads(ctx context.Context, userID string) ([]models.ThreadListing, error)

	IsMember(ctx context.Context, threadID, userID string) (bool, error)
	AddMember(ctx context.Context, threadID, userID string) error
	ListMembers(ctx context.Context, threadID string) ([]models.User, error)

	// TouchLastSeen advances the member's read watermark. Called when the
	// thread's message list is loaded, not on every keystroke or event.
	TouchLastSeen(ctx context.Context, threadID, userID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.Message) error

	// GetMessage fetches one message scoped by thread.
	GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error)

	// TopLevelMessages returns the thread's top-level messages oldest-first,
	// with authors and reply counts.
	TopLevelMessages(ctx context.Context, threadID string) ([]models.Message, error)

	// Replies returns a parent's replies oldest-first with authors.
	Replies(ctx context.Context, parentMessageID string) ([]models.Message, error)

	// RecentMessages returns the thread's most recent messages (top-level
	// and replies), oldest-first, capped at limit. A non-empty category
	// restricts the result to that category.
	RecentMessages(ctx context.Context, threadID, category string, limit int) ([]models.Message, error)

	Close() error
}
