package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/threadhub/internal/models"
)

// MemoryStorage keeps everything in process memory. Used for development and
// tests; behavior mirrors PostgresStorage.
type MemoryStorage struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	threads     map[string]*models.Thread
	memberships map[string]map[string]*models.Membership // threadID -> userID
	messages    map[string]*models.Message
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:       make(map[string]*models.User),
		threads:     make(map[string]*models.Thread),
		memberships: make(map[string]map[string]*models.Membership),
		messages:    make(map[string]*models.Message),
	}
}

func (s *MemoryStorage) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			user := *u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) CreateThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *thread
	s.threads[t.ID] = &t
	s.memberships[t.ID] = map[string]*models.Membership{
		t.CreatedByID: {
			ThreadID: t.ID,
			UserID:   t.CreatedByID,
			JoinedAt: t.CreatedAt,
		},
	}
	return nil
}

func (s *MemoryStorage) ListThreads(ctx context.Context, userID string) ([]models.ThreadListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var listings []models.ThreadListing
	for threadID, members := range s.memberships {
		membership, ok := members[userID]
		if !ok {
			continue
		}
		thread := s.threads[threadID]

		listing := models.ThreadListing{Thread: *thread}
		var latest *models.Message
		for _, m := range s.messages {
			if m.ThreadID != threadID {
				continue
			}
			if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
				latest = m
			}
			if m.AuthorID != userID && m.CreatedAt.After(membership.LastSeenAt) {
				listing.UnreadCount++
			}
		}
		if latest != nil {
			msg := *latest
			msg.Author = s.authorOf(latest.AuthorID)
			listing.LatestMessage = &msg
		}
		listings = append(listings, listing)
	}

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Thread.CreatedAt.After(listings[j].Thread.CreatedAt)
	})
	return listings, nil
}

func (s *MemoryStorage) IsMember(ctx context.Context, threadID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members, ok := s.memberships[threadID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}

func (s *MemoryStorage) AddMember(ctx context.Context, threadID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.memberships[threadID]
	if !ok {
		members = make(map[string]*models.Membership)
		s.memberships[threadID] = members
	}
	if _, exists := members[userID]; exists {
		return nil
	}
	members[userID] = &models.Membership{
		ThreadID: threadID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStorage) ListMembers(ctx context.Context, threadID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var memberships []*models.Membership
	for _, m := range s.memberships[threadID] {
		memberships = append(memberships, m)
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].JoinedAt.Before(memberships[j].JoinedAt)
	})

	users := make([]models.User, 0, len(memberships))
	for _, m := range memberships {
		users = append(users, s.authorOf(m.UserID))
	}
	return users, nil
}

func (s *MemoryStorage) TouchLastSeen(ctx context.Context, threadID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if members, ok := s.memberships[threadID]; ok {
		if m, ok := members[userID]; ok {
			m.LastSeenAt = at
		}
	}
	return nil
}

func (s *MemoryStorage) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	s.messages[m.ID] = &m
	return nil
}

func (s *MemoryStorage) GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok || m.ThreadID != threadID {
		return nil, ErrNotFound
	}
	msg := *m
	msg.Author = s.authorOf(m.AuthorID)
	return &msg, nil
}

func (s *MemoryStorage) TopLevelMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	replyCounts := make(map[string]int)
	var messages []models.Message
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if m.ParentMessageID != "" {
			replyCounts[m.ParentMessageID]++
			continue
		}
		msg := *m
		msg.Author = s.authorOf(m.AuthorID)
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	for i := range messages {
		messages[i].ReplyCount = replyCounts[messages[i].ID]
	}
	return messages, nil
}

func (s *MemoryStorage) Replies(ctx context.Context, parentMessageID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []models.Message
	for _, m := range s.messages {
		if m.ParentMessageID != parentMessageID {
			continue
		}
		msg := *m
		msg.Author = s.authorOf(m.AuthorID)
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (s *MemoryStorage) RecentMessages(ctx context.Context, threadID, category string, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []models.Message
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if category != "" && string(m.Category) != category {
			continue
		}
		msg := *m
		msg.Author = s.authorOf(m.AuthorID)
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// authorOf resolves a user for embedding; caller must hold the lock.
func (s *MemoryStorage) authorOf(userID string) models.User {
	if u, ok := s.users[userID]; ok {
		return *u
	}
	return models.User{ID: userID}
}
