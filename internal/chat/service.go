// Package chat is the orchestration layer: every operation authenticates
// thread membership, talks to storage, and drives the analysis,
// summarization and push collaborators. Correctness-critical failures
// (persistence, membership) surface as errors; enhancement failures
// (analysis, summaries, push) degrade to defaults and are only logged.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/threadhub/internal/llm"
	"github.com/xaenox/threadhub/internal/models"
	"github.com/xaenox/threadhub/internal/realtime"
	"github.com/xaenox/threadhub/internal/storage"
	"github.com/xaenox/threadhub/internal/summary"
	"go.uber.org/zap"
)

var (
	ErrAccessDenied   = errors.New("access denied")
	ErrEmptyContent   = errors.New("content is required")
	ErrEmptyEmail     = errors.New("email is required")
	ErrParentNotFound = errors.New("parent message not found or is not a top-level message")

	// Invite errors carry the exact wording shown to the user.
	ErrUnknownUser   = errors.New("User must log in once before being added")
	ErrAlreadyMember = errors.New("User is already a member of this chat")
)

type Service struct {
	store       storage.Storage
	analyzer    *llm.Analyzer
	summarizer  *llm.Summarizer
	cache       *summary.Cache
	broadcaster realtime.Broadcaster
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(
	store storage.Storage,
	analyzer *llm.Analyzer,
	summarizer *llm.Summarizer,
	cache *summary.Cache,
	broadcaster realtime.Broadcaster,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:       store,
		analyzer:    analyzer,
		summarizer:  summarizer,
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

func (s *Service) requireMember(ctx context.Context, threadID, userID string) error {
	isMember, err := s.store.IsMember(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) ListThreads(ctx context.Context, userID string) ([]models.ThreadListing, error) {
	return s.store.ListThreads(ctx, userID)
}

func (s *Service) CreateThread(ctx context.Context, user models.User, title string) (*models.Thread, error) {
	thread := &models.Thread{
		ID:          s.newID(),
		Title:       strings.TrimSpace(title),
		CreatedByID: user.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// InviteResult reports which participant emails could be attached to a new
// thread and which have never logged in.
type InviteResult struct {
	Thread        *models.Thread
	AddedEmails   []string
	MissingEmails []string
}

// CreateThreadWithMembers creates a thread and invites each participant
// email. Emails are trimmed, lowercased, deduplicated and the creator's own
// address is dropped. Unknown addresses are reported, not fatal.
func (s *Service) CreateThreadWithMembers(ctx context.Context, user models.User, title string, participantEmails []string) (*InviteResult, error) {
	seen := make(map[string]struct{})
	normalized := make([]string, 0, len(participantEmails))
	for _, e := range participantEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == strings.ToLower(user.Email) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}

	thread, err := s.CreateThread(ctx, user, title)
	if err != nil {
		return nil, err
	}

	result := &InviteResult{Thread: thread}
	for _, email := range normalized {
		target, err := s.store.FindUserByEmail(ctx, email)
		if errors.Is(err, storage.ErrNotFound) {
			result.MissingEmails = append(result.MissingEmails, email)
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := s.store.AddMember(ctx, thread.ID, target.ID); err != nil {
			return nil, err
		}
		result.AddedEmails = append(result.AddedEmails, target.Email)
	}
	return result, nil
}

// ThreadMessages returns the thread's top-level messages and advances the
// member's last-seen watermark. This load is the only place the persisted
// watermark moves; realtime focus changes touch local state only.
func (s *Service) ThreadMessages(ctx context.Context, userID, threadID string) ([]models.Message, error) {
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return nil, err
	}
	if err := s.store.TouchLastSeen(ctx, threadID, userID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.store.TopLevelMessages(ctx, threadID)
}

// topLevelParent fetches and validates a reply target: it must exist, belong
// to the thread, and itself be top-level (replies never nest).
func (s *Service) topLevelParent(ctx context.Context, threadID, parentMessageID string) (*models.Message, error) {
	parent, err := s.store.GetMessage(ctx, threadID, parentMessageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	if parent.ParentMessageID != "" {
		return nil, ErrParentNotFound
	}
	return parent, nil
}

// ReplyThread returns a parent message and its replies, oldest first.
func (s *Service) ReplyThread(ctx context.Context, userID, threadID, parentMessageID string) (*models.Message, []models.Message, error) {
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return nil, nil, err
	}
	parent, err := s.topLevelParent(ctx, threadID, parentMessageID)
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.store.Replies(ctx, parentMessageID)
	if err != nil {
		return nil, nil, err
	}
	return parent, replies, nil
}

// SendMessage persists a top-level message with the supplied category and
// pushes it to the thread's channel. Unrecognized categories fall back to
// FYI rather than failing the send.
func (s *Service) SendMessage(ctx context.Context, user models.User, threadID, content string, category models.Category) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if err := s.requireMember(ctx, threadID, user.ID); err != nil {
		return nil, err
	}
	if !models.ValidCategory(string(category)) {
		category = models.CategoryFYI
	}

	msg := &models.Message{
		ID:        s.newID(),
		ThreadID:  threadID,
		AuthorID:  user.ID,
		Author:    user,
		Content:   content,
		Category:  category,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.push(msg)
	return msg, nil
}

// SendReply persists a reply. The category is inherited from the parent, not
// chosen by the sender.
func (s *Service) SendReply(ctx context.Context, user models.User, threadID, parentMessageID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if err := s.requireMember(ctx, threadID, user.ID); err != nil {
		return nil, err
	}
	parent, err := s.topLevelParent(ctx, threadID, parentMessageID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:              s.newID(),
		ThreadID:        threadID,
		ParentMessageID: parent.ID,
		AuthorID:        user.ID,
		Author:          user,
		Content:         content,
		Category:        parent.Category,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.push(msg)
	return msg, nil
}

// push delivers the new-message event. Best-effort: the hub logs and
// swallows failures, so a send never blocks on realtime.
func (s *Service) push(msg *models.Message) {
	s.broadcaster.Trigger(
		realtime.ThreadChannel(msg.ThreadID),
		realtime.EventNewMessage,
		realtime.EventFromMessage(msg),
	)
}

// AnalyzeDraft runs the draft through the analyzer against the thread's
// recent history. Access is checked; the analysis itself never fails.
func (s *Service) AnalyzeDraft(ctx context.Context, userID, threadID, draft string) (models.AnalysisResult, error) {
	if strings.TrimSpace(draft) == "" {
		return models.AnalysisResult{}, ErrEmptyContent
	}
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return models.AnalysisResult{}, err
	}

	recent, err := s.store.RecentMessages(ctx, threadID, "", s.analyzer.HistorySize())
	if err != nil {
		return models.AnalysisResult{}, err
	}

	history := make([]llm.HistoryMessage, 0, len(recent))
	for _, m := range recent {
		history = append(history, llm.HistoryMessage{
			ID:        m.ID,
			Content:   m.Content,
			Category:  m.Category,
			Timestamp: m.CreatedAt,
		})
	}

	return s.analyzer.Analyze(ctx, draft, history), nil
}

// ThreadSummary returns bullets for the thread, scoped to intentFilter,
// serving from the cache when a fresh entry exists.
func (s *Service) ThreadSummary(ctx context.Context, userID, threadID, intentFilter string) (models.SummaryResult, error) {
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return models.SummaryResult{}, err
	}

	if bullets, ok := s.cache.Get(threadID, intentFilter); ok {
		return models.SummaryResult{Bullets: bullets}, nil
	}

	category := ""
	if intentFilter != models.FilterAll {
		category = intentFilter
	}
	recent, err := s.store.RecentMessages(ctx, threadID, category, llm.SummaryLimit)
	if err != nil {
		return models.SummaryResult{}, err
	}

	input := make([]llm.SummaryMessage, 0, len(recent))
	for _, m := range recent {
		input = append(input, llm.SummaryMessage{
			ID:              m.ID,
			Content:         m.Content,
			Category:        m.Category,
			CreatedAt:       m.CreatedAt,
			AuthorName:      m.Author.Name,
			AuthorEmail:     m.Author.Email,
			ParentMessageID: m.ParentMessageID,
		})
	}

	result := s.summarizer.Summarize(ctx, input, intentFilter)
	s.cache.Put(threadID, intentFilter, result.Bullets)
	return result, nil
}

// RefreshThreadSummary drops the cached entry before regenerating,
// bypassing the TTL.
func (s *Service) RefreshThreadSummary(ctx context.Context, userID, threadID, intentFilter string) (models.SummaryResult, error) {
	s.cache.Invalidate(threadID, intentFilter)
	return s.ThreadSummary(ctx, userID, threadID, intentFilter)
}

// AddMemberByEmail invites a user by email. The target must have logged in
// at least once; lookup is case-insensitive.
func (s *Service) AddMemberByEmail(ctx context.Context, user models.User, threadID, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if err := s.requireMember(ctx, threadID, user.ID); err != nil {
		return nil, err
	}

	target, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	isMember, err := s.store.IsMember(ctx, threadID, target.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	if err := s.store.AddMember(ctx, threadID, target.ID); err != nil {
		return nil, err
	}
	return target, nil
}

// Members lists the thread's members in join order.
func (s *Service) Members(ctx context.Context, userID, threadID string) ([]models.User, error) {
	if err := s.requireMember(ctx, threadID, userID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, threadID)
}
