package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/threadhub/internal/models"
	"go.uber.org/zap"
)

func summaryInput() []SummaryMessage {
	return []SummaryMessage{
		{ID: "m1", Content: "Shipping Friday", Category: models.CategoryDecision, AuthorName: "Ana", AuthorEmail: "ana@example.com"},
		{ID: "m2", Content: "Sounds good", Category: models.CategoryDecision, AuthorEmail: "bo@example.com", ParentMessageID: "m1"},
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	client := &fakeClient{configured: true}
	s := NewSummarizer(client, zap.NewNop())

	for _, filter := range []string{models.FilterAll, string(models.CategoryDecision)} {
		result := s.Summarize(context.Background(), nil, filter)
		assert.Equal(t, []string{noMessagesBullet}, result.Bullets)
	}
	assert.Zero(t, client.calls, "empty input must not reach the gateway")
}

func TestSummarizeNotConfigured(t *testing.T) {
	client := &fakeClient{configured: false}
	s := NewSummarizer(client, zap.NewNop())

	result := s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	assert.Equal(t, []string{unavailableBullet}, result.Bullets)
	assert.Zero(t, client.calls)
}

func TestSummarizeTransportFailure(t *testing.T) {
	client := &fakeClient{configured: true, err: errors.New("503")}
	s := NewSummarizer(client, zap.NewNop())

	result := s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	assert.Equal(t, []string{failedBullet}, result.Bullets)
}

func TestSummarizeMalformedResponse(t *testing.T) {
	client := &fakeClient{configured: true, response: "- decided to ship"}
	s := NewSummarizer(client, zap.NewNop())

	result := s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	assert.Equal(t, []string{failedBullet}, result.Bullets)
}

func TestSummarizeEmptyBulletList(t *testing.T) {
	client := &fakeClient{configured: true, response: `{"bullets":["  ", ""]}`}
	s := NewSummarizer(client, zap.NewNop())

	result := s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	assert.Equal(t, []string{failedBullet}, result.Bullets)
}

func TestSummarizeParsesBullets(t *testing.T) {
	client := &fakeClient{
		configured: true,
		response:   `{"bullets":["Team decided to ship Friday","Open question: QA signoff"]}`,
	}
	s := NewSummarizer(client, zap.NewNop())

	result := s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	require.Len(t, result.Bullets, 2)
	assert.Equal(t, "Team decided to ship Friday", result.Bullets[0])
	assert.Equal(t, float32(0.3), client.lastTemp)
}

func TestSummarizeMessageRendering(t *testing.T) {
	client := &fakeClient{configured: true, response: `{"bullets":["ok"]}`}
	s := NewSummarizer(client, zap.NewNop())

	s.Summarize(context.Background(), summaryInput(), models.FilterAll)

	assert.Contains(t, client.lastUser, "[Decision] Ana: Shipping Friday")
	assert.Contains(t, client.lastUser, "[Decision][reply] bo@example.com: Sounds good")
}

func TestSummarizeFilterPrompts(t *testing.T) {
	client := &fakeClient{configured: true, response: `{"bullets":["ok"]}`}
	s := NewSummarizer(client, zap.NewNop())

	s.Summarize(context.Background(), summaryInput(), models.FilterAll)
	assert.Contains(t, client.lastUser, "3-6 bullets")

	s.Summarize(context.Background(), summaryInput(), string(models.CategoryDecision))
	assert.Contains(t, client.lastUser, "ONLY the Decision messages")
	assert.Contains(t, client.lastUser, "Team decided")

	s.Summarize(context.Background(), summaryInput(), string(models.CategoryScheduling))
	assert.Contains(t, client.lastUser, "availability")
}
