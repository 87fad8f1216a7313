package models

import "time"

// Category classifies the intent of a message. The set is closed; the
// analyzer never invents new categories and falls back to FYI for anything
// it cannot place.
type Category string

const (
	CategoryQuestion   Category = "Question"
	CategoryUpdate     Category = "Update"
	CategoryConcern    Category = "Concern"
	CategoryDecision   Category = "Decision"
	CategoryFYI        Category = "FYI"
	CategoryScheduling Category = "Scheduling"
)

// FilterAll is the intent filter value that selects every category.
const FilterAll = "All"

// Categories lists all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryQuestion,
		CategoryUpdate,
		CategoryConcern,
		CategoryDecision,
		CategoryFYI,
		CategoryScheduling,
	}
}

// ValidCategory reports whether s is a member of the closed category set.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryQuestion, CategoryUpdate, CategoryConcern,
		CategoryDecision, CategoryFYI, CategoryScheduling:
		return true
	}
	return false
}

// User is a registered account. Users exist before they can be added to
// threads; membership lookups are by case-insensitive email.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is a single chat message. Replies carry the ID of their top-level
// parent and inherit its category at creation; replies never nest further.
// Messages are immutable after creation.
type Message struct {
	ID              string    `json:"id"`
	ThreadID        string    `json:"threadId"`
	ParentMessageID string    `json:"parentMessageId,omitempty"`
	AuthorID        string    `json:"authorId"`
	Author          User      `json:"author"`
	Content         string    `json:"content"`
	Category        Category  `json:"category"`
	CreatedAt       time.Time `json:"createdAt"`
	ReplyCount      int       `json:"replyCount"`
}

// Thread is a conversation with a membership set.
type Thread struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership links a user to a thread. LastSeenAt is the member's read
// watermark; unread counts are derived from it, never stored.
type Membership struct {
	ThreadID   string    `json:"threadId"`
	UserID     string    `json:"userId"`
	JoinedAt   time.Time `json:"joinedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// ThreadListing is one row of a member's thread sidebar: thread metadata,
// the latest message (if any) and the unread count derived from the
// member's last-seen watermark.
type ThreadListing struct {
	Thread        Thread   `json:"thread"`
	LatestMessage *Message `json:"latestMessage,omitempty"`
	UnreadCount   int      `json:"unreadCount"`
}

// AnalysisResult is the analyzer's verdict on a draft. Ephemeral: consumed
// by the send flow and never persisted.
type AnalysisResult struct {
	Category         Category `json:"category"`
	IsRepetitive     bool     `json:"isRepetitive"`
	MatchedMessageID string   `json:"matchedMessageId,omitempty"`
	SuggestedAnswer  string   `json:"suggestedAnswer,omitempty"`
}

// SummaryResult is an ordered bullet list produced by the summarizer.
type SummaryResult struct {
	Bullets []string `json:"bullets"`
}
