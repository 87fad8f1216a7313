package chat

import (
	"github.com/xaenox/threadhub/internal/models"
	"go.uber.org/zap"
)

// ComposerState is the message-form state machine:
// Idle -> Analyzing -> {Warning, Sending} -> Idle.
type ComposerState int

const (
	StateIdle ComposerState = iota
	StateAnalyzing
	StateWarning
	StateSending
)

func (s ComposerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateWarning:
		return "warning"
	case StateSending:
		return "sending"
	}
	return "unknown"
}

// Resolution is the composer's reaction to an analysis result.
type Resolution int

const (
	// ResolutionDiscarded: the result arrived for a superseded request
	// (the draft changed or a newer analysis was issued) and was dropped.
	ResolutionDiscarded Resolution = iota
	// ResolutionWarn: the draft was flagged repetitive; the flow is holding
	// for the user to cancel or confirm.
	ResolutionWarn
	// ResolutionSend: the draft is clear to send with the inferred category.
	ResolutionSend
)

// Composer gates a single draft field behind the duplicate-warning flow.
// It owns no I/O: the caller runs the analysis and the send, and feeds the
// outcomes back in. Each analysis request is tagged with a monotonically
// increasing sequence number; a resolution whose number is not the latest
// issued is discarded, so a stale analysis is never applied to a draft the
// user has since changed.
type Composer struct {
	state    ComposerState
	draft    string
	category models.Category
	warning  *models.AnalysisResult
	seq      uint64
	logger   *zap.Logger
}

func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{
		state:    StateIdle,
		category: models.CategoryFYI,
		logger:   logger,
	}
}

func (c *Composer) State() ComposerState { return c.state }
func (c *Composer) Draft() string        { return c.draft }

// Warning returns the held verdict while in StateWarning, nil otherwise.
func (c *Composer) Warning() *models.AnalysisResult { return c.warning }

// SetDraft records an edit. Editing supersedes any in-flight analysis and
// clears a pending warning; a send in progress is not interruptible.
func (c *Composer) SetDraft(text string) {
	if c.state == StateSending {
		return
	}
	c.draft = text
	c.warning = nil
	c.state = StateIdle
	c.seq++
}

// Submit moves Idle -> Analyzing and returns the sequence number the caller
// must tag the analysis request with. ok is false when the composer is not
// idle or the draft is blank.
func (c *Composer) Submit() (seq uint64, ok bool) {
	if c.state != StateIdle || c.draft == "" {
		return 0, false
	}
	c.state = StateAnalyzing
	c.seq++
	return c.seq, true
}

// ResolveAnalysis applies an analysis outcome for the request tagged seq.
func (c *Composer) ResolveAnalysis(seq uint64, result models.AnalysisResult) Resolution {
	if c.state != StateAnalyzing || seq != c.seq {
		c.logger.Debug("Discarding stale analysis result",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", c.seq))
		return ResolutionDiscarded
	}

	c.category = result.Category
	if result.IsRepetitive {
		held := result
		c.warning = &held
		c.state = StateWarning
		return ResolutionWarn
	}
	c.state = StateSending
	return ResolutionSend
}

// Category is the category inferred for the current draft.
func (c *Composer) Category() models.Category { return c.category }

// Cancel dismisses the warning, keeping the draft for further editing.
func (c *Composer) Cancel() {
	if c.state != StateWarning {
		return
	}
	c.warning = nil
	c.state = StateIdle
}

// ConfirmSend proceeds past the warning without a second analysis call,
// reusing the already-inferred category. ok is false outside StateWarning.
func (c *Composer) ConfirmSend() (category models.Category, ok bool) {
	if c.state != StateWarning {
		return "", false
	}
	c.warning = nil
	c.state = StateSending
	return c.category, true
}

// SendSucceeded completes the flow and clears the draft.
func (c *Composer) SendSucceeded() {
	if c.state != StateSending {
		return
	}
	c.draft = ""
	c.warning = nil
	c.state = StateIdle
}

// SendFailed returns to Idle with the draft preserved for retry. Failures
// are logged by the caller, not surfaced as blocking errors.
func (c *Composer) SendFailed() {
	if c.state != StateSending {
		return
	}
	c.state = StateIdle
}
