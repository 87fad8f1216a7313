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

// HistoryLimit is the default number of recent messages supplied as
// analysis context.
const HistoryLimit = 30

const analyzerSystemPrompt = `You are a message analyzer for a team chat application. Analyze the draft message and recent conversation history.

Your task:
1. Categorize the draft into exactly one category:
   - "Scheduling" - meeting times, availability, reschedule requests (this takes priority over Question for time/date coordination)
   - "Question" - asking for information or clarification
   - "Update" - status updates, progress reports
   - "Concern" - expressing worry, potential issues, blockers
   - "Decision" - announcing or requesting a decision
   - "FYI" - general information sharing

2. Check if the draft is repetitive:
   - If the draft asks something already answered in recent messages, set isRepetitive=true
   - If the draft claims/states something already covered, set isRepetitive=true
   - Include matchedMessageId (the id of the relevant prior message)
   - Include a brief suggestedAnswer referencing what was already said

Return ONLY valid JSON with this exact structure (no markdown, no explanation):
{"category":"<category>","isRepetitive":<boolean>,"matchedMessageId":"<id or null>","suggestedAnswer":"<string or null>"}`

// HistoryMessage is one prior message rendered into the analyzer's context.
type HistoryMessage struct {
	ID        string
	Content   string
	Category  models.Category
	Timestamp time.Time
}

// Analyzer categorizes drafts and flags repetition against recent history.
type Analyzer struct {
	client      Client
	historySize int
	logger      *zap.Logger
}

// NewAnalyzer builds an analyzer with the configured history window;
// historySize <= 0 falls back to HistoryLimit.
func NewAnalyzer(client Client, historySize int, logger *zap.Logger) *Analyzer {
	if historySize <= 0 {
		historySize = HistoryLimit
	}
	return &Analyzer{client: client, historySize: historySize, logger: logger}
}

// HistorySize is the number of recent messages the analyzer expects as
// context; callers should fetch no more than this.
func (a *Analyzer) HistorySize() int { return a.historySize }

// analyzerResponse mirrors the JSON shape the model is asked to produce.
// Every field is revalidated before use; the model is untrusted input.
type analyzerResponse struct {
	Category         string `json:"category"`
	IsRepetitive     bool   `json:"isRepetitive"`
	MatchedMessageID string `json:"matchedMessageId"`
	SuggestedAnswer  string `json:"suggestedAnswer"`
}

// Analyze returns the verdict for a draft. It never fails: credential
// absence, transport errors and malformed replies all collapse into the
// default {FYI, not repetitive} result.
func (a *Analyzer) Analyze(ctx context.Context, draft string, history []HistoryMessage) models.AnalysisResult {
	fallback := models.AnalysisResult{Category: models.CategoryFYI}

	if !a.client.Configured() {
		return fallback
	}

	if len(history) > a.historySize {
		history = history[len(history)-a.historySize:]
	}

	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("[%s] (%s, %s): %s",
			m.ID, m.Category, m.Timestamp.UTC().Format(time.RFC3339), m.Content))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "(no prior messages)"
	}

	userPrompt := fmt.Sprintf("Recent messages (last ~%d):\n%s\n\nDraft message to analyze:\n%s",
		a.historySize, historyText, draft)

	// Temperature 0: categorization should be deterministic.
	content, err := a.client.Complete(ctx, analyzerSystemPrompt, userPrompt, 0)
	if err != nil {
		a.logger.Error("Failed to get analysis response", zap.Error(err))
		return fallback
	}

	var parsed analyzerResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		a.logger.Error("Failed to parse analysis response",
			zap.Error(err),
			zap.String("response", content))
		return fallback
	}

	result := models.AnalysisResult{
		Category:         models.CategoryFYI,
		IsRepetitive:     parsed.IsRepetitive,
		MatchedMessageID: cleanOptional(parsed.MatchedMessageID),
		SuggestedAnswer:  cleanOptional(parsed.SuggestedAnswer),
	}
	if models.ValidCategory(parsed.Category) {
		result.Category = models.Category(parsed.Category)
	}

	return result
}

// cleanOptional normalizes the model's habit of returning the string "null"
// for absent optional fields.
func cleanOptional(s string) string {
	s = strings.TrimSpace(s)
	if s == "null" {
		return ""
	}
	return s
}
