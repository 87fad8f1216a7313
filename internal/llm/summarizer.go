package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/threadhub/internal/models"
	"go.uber.org/zap"
)

// SummaryLimit is the number of recent messages supplied to the summarizer.
const SummaryLimit = 30

// Fixed bullets for the terminal, non-retried outcomes. Summarization is
// best-effort; these stand in for errors the caller never sees.
const (
	noMessagesBullet  = "No messages to summarize yet."
	unavailableBullet = "Summaries are unavailable: AI analysis is not configured."
	failedBullet      = "Could not generate a summary right now. Try refreshing in a moment."
)

// SummaryMessage is one message rendered into the summarizer's context.
type SummaryMessage struct {
	ID              string
	Content         string
	Category        models.Category
	CreatedAt       time.Time
	AuthorName      string
	AuthorEmail     string
	ParentMessageID string
}

// Summarizer condenses a filtered slice of thread history into bullets.
type Summarizer struct {
	client Client
	logger *zap.Logger
}

func NewSummarizer(client Client, logger *zap.Logger) *Summarizer {
	return &Summarizer{client: client, logger: logger}
}

type summarizerResponse struct {
	Bullets []string `json:"bullets"`
}

const summarizerSystemPrompt = `You are a summarizer for a team chat application. You receive recent messages from one conversation and produce a concise bullet summary.

Return ONLY valid JSON with this exact structure (no markdown, no explanation):
{"bullets":["<bullet>", ...]}`

// Summarize returns bullets for the supplied messages. The input is expected
// to already be filtered to intentFilter (unless it is "All") and in
// chronological order. Any failure yields a single explanatory bullet; the
// caller never receives an error.
func (s *Summarizer) Summarize(ctx context.Context, messages []SummaryMessage, intentFilter string) models.SummaryResult {
	if len(messages) == 0 {
		return models.SummaryResult{Bullets: []string{noMessagesBullet}}
	}
	if !s.client.Configured() {
		return models.SummaryResult{Bullets: []string{unavailableBullet}}
	}

	if len(messages) > SummaryLimit {
		messages = messages[len(messages)-SummaryLimit:]
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		marker := ""
		if m.ParentMessageID != "" {
			marker = "[reply]"
		}
		author := m.AuthorName
		if author == "" {
			author = m.AuthorEmail
		}
		lines = append(lines, fmt.Sprintf("[%s]%s %s: %s", m.Category, marker, author, m.Content))
	}

	var instructions string
	if intentFilter == models.FilterAll {
		instructions = "Produce 3-6 bullets synthesizing the conversation overall. " +
			"Prioritize decisions made, open questions, next steps, and scheduling. " +
			"Each bullet should be a short, standalone statement."
	} else {
		instructions = fmt.Sprintf("Produce bullets covering ONLY the %s messages; ignore everything else. "+
			"Keep each bullet to roughly 12 words or fewer. ", intentFilter)
		switch models.Category(intentFilter) {
		case models.CategoryDecision:
			instructions += `Phrase each bullet as a decision, e.g. "Team decided ..." or "Agreed to ...".`
		case models.CategoryQuestion:
			instructions += "Phrase each bullet as an open or answered question."
		case models.CategoryScheduling:
			instructions += "Phrase each bullet around the time, date, or availability being coordinated."
		case models.CategoryConcern:
			instructions += "Phrase each bullet as a risk or blocker that was raised."
		case models.CategoryUpdate:
			instructions += "Phrase each bullet as a progress statement."
		case models.CategoryFYI:
			instructions += "Phrase each bullet as a piece of shared information."
		}
	}

	userPrompt := fmt.Sprintf("%s\n\nMessages (oldest first):\n%s", instructions, strings.Join(lines, "\n"))

	content, err := s.client.Complete(ctx, summarizerSystemPrompt, userPrompt, 0.3)
	if err != nil {
		s.logger.Error("Failed to get summary response", zap.Error(err))
		return models.SummaryResult{Bullets: []string{failedBullet}}
	}

	var parsed summarizerResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		s.logger.Error("Failed to parse summary response",
			zap.Error(err),
			zap.String("response", content))
		return models.SummaryResult{Bullets: []string{failedBullet}}
	}

	bullets := make([]string, 0, len(parsed.Bullets))
	for _, b := range parsed.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			bullets = append(bullets, b)
		}
	}
	if len(bullets) == 0 {
		s.logger.Error("Summary response contained no bullets", zap.String("response", content))
		return models.SummaryResult{Bullets: []string{failedBullet}}
	}

	return models.SummaryResult{Bullets: bullets}
}
