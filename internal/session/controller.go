package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/codebuddy-labs/codebuddy/internal/ai"
	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
)

// Gateway is the remote tutor endpoint as the controller sees it: generate
// with history, evaluate a composed prompt. Both calls suspend; everything
// else in the controller is synchronous.
type Gateway interface {
	Generate(ctx context.Context, history []ai.Message, userText string) (string, error)
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// Phase is the controller's position in the turn cycle. It doubles as the
// re-entrancy guard: a new turn is rejected while one is awaiting the
// gateway.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingGateway
)

func (p Phase) String() string {
	if p == PhaseAwaitingGateway {
		return "awaiting-gateway"
	}
	return "idle"
}

var (
	ErrNotMounted    = errors.New("session not mounted")
	ErrTurnInFlight  = errors.New("a turn is already awaiting the gateway")
	ErrNoSession     = errors.New("no session started; select a grade first")
	ErrSessionExists = errors.New("session already started")
	ErrEmptyMessage  = errors.New("message is empty")
)

// TurnResult reports what a turn appended and which one-shot actions the
// presentation layer should offer next.
type TurnResult struct {
	Appended   []ChatMessage
	Actions    []Action
	FocusInput bool
}

// Config holds the controller's collaborators.
type Config struct {
	Gateway     Gateway
	Store       ProgressStore
	Catalog     *curriculum.Catalog
	Events      EventLogger
	TerminalID  string
	StudentName string
}

// Controller drives one student's tutoring session: message exchange,
// control-token interpretation, topic advancement and code evaluation.
// History is append-only and strictly ordered by issuance; at most one
// gateway call is in flight.
type Controller struct {
	mu      sync.Mutex
	gateway Gateway
	store   ProgressStore
	catalog *curriculum.Catalog
	events  EventLogger

	terminalID  string
	studentName string

	mounted  bool
	progress *StudentProgress
	phase    Phase
	actions  []Action
}

// NewController creates a controller for one (terminal, student) pair.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.TerminalID == "" || cfg.StudentName == "" {
		return nil, fmt.Errorf("terminal id and student name are required")
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryProgressStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Controller{
		gateway:     cfg.Gateway,
		store:       store,
		catalog:     cfg.Catalog,
		events:      events,
		terminalID:  cfg.TerminalID,
		studentName: cfg.StudentName,
	}, nil
}

// Mount performs the single progress-store read of the session. It returns
// whether existing progress was found; when false the presentation layer
// shows grade selection and the session waits for SelectGrade.
func (c *Controller) Mount(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mounted {
		return c.progress != nil, fmt.Errorf("session already mounted")
	}

	progress, found, err := c.store.Load(ctx, c.terminalID, c.studentName)
	if err != nil {
		return false, fmt.Errorf("loading progress: %w", err)
	}
	c.mounted = true
	if found {
		c.progress = progress
	}
	slog.Info("session mounted", "student", c.studentName, "resumed", found)
	return found, nil
}

// SelectGrade bootstraps a fresh session: a private deep copy of the chosen
// curriculum, a welcome message carrying the progress-map marker and the
// fresh snapshot, then the one gateway call that deliberately sends empty
// history.
func (c *Controller) SelectGrade(ctx context.Context, grade curriculum.GradeLevel) (*TurnResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	if c.progress != nil {
		c.mu.Unlock()
		return nil, ErrSessionExists
	}
	cur, err := c.catalog.Select(grade)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	firstTopic := fallbackTopicLabel
	if t, ok := cur.CurrentTopic(); ok {
		firstTopic = t.Name
	}

	snapshot := cur.Clone()
	welcome := ChatMessage{
		ID:         "start",
		Sender:     SenderAI,
		Text:       welcomeText(cur.Title, firstTopic),
		Curriculum: &snapshot,
	}
	c.progress = &StudentProgress{
		Grade:      grade,
		Curriculum: cur,
		History:    []ChatMessage{welcome},
		Preferences: Preferences{
			Language:      defaultLanguage,
			HighlightCode: true,
		},
	}
	if err := c.persistLocked(ctx); err != nil {
		c.progress = nil
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	c.logEvent(EventGradeSelected, map[string]any{"grade": string(grade)})

	// The very first call ignores existing history: none is meaningful yet.
	reply, err := c.gateway.Generate(ctx, nil, bootstrapPrompt(grade, firstTopic))
	if err != nil {
		return &TurnResult{Appended: []ChatMessage{welcome}}, fmt.Errorf("starting first lesson: %w", err)
	}

	parsed := ParseReply(reply)
	aiMsg := newMessage("", SenderAI, parsed.DisplayText)

	c.mu.Lock()
	c.progress.History = append(c.progress.History, aiMsg)
	c.actions = actionsFor(parsed)
	actions := c.actionsLocked()
	err = c.persistLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &TurnResult{Appended: []ChatMessage{welcome, aiMsg}, Actions: actions}, nil
}

// Send runs one turn for a typed message: freeform conversation, or the
// evaluation sub-protocol when the message carries a fenced code block with
// the run marker.
func (c *Controller) Send(ctx context.Context, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	userMsg, historyBefore, err := c.openTurn(ctx, newMessage("", SenderUser, text))
	if err != nil {
		return nil, err
	}

	if HasRunnableCode(text) {
		return c.evaluationTurn(ctx, text, userMsg)
	}
	return c.freeformTurn(ctx, historyBefore, text, userMsg)
}

// ClickAction consumes a one-shot contextual action. Actions without a
// prompt only move focus to the input box; the rest append a synthetic user
// message wrapping the label and run like a freeform turn.
func (c *Controller) ClickAction(ctx context.Context, action Action) (*TurnResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if action.Prompt == "" {
		c.mu.Lock()
		c.actions = nil
		c.mu.Unlock()
		return &TurnResult{FocusInput: true}, nil
	}

	userMsg, historyBefore, err := c.openTurn(ctx, newMessage("", SenderUser, "*"+action.Label+"*"))
	if err != nil {
		return nil, err
	}
	return c.freeformTurn(ctx, historyBefore, action.Prompt, userMsg)
}

// openTurn clears pending actions, appends the user's message and snapshots
// the history as it stood before the append.
func (c *Controller) openTurn(ctx context.Context, userMsg ChatMessage) (ChatMessage, []ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.progress == nil {
		return ChatMessage{}, nil, ErrNoSession
	}

	c.actions = nil
	historyBefore := make([]ChatMessage, len(c.progress.History))
	copy(historyBefore, c.progress.History)

	c.progress.History = append(c.progress.History, userMsg)
	if err := c.persistLocked(ctx); err != nil {
		return ChatMessage{}, nil, err
	}
	return userMsg, historyBefore, nil
}

// freeformTurn sends the conversation (minus system banners) plus the
// outgoing text and appends the parsed reply. On gateway failure nothing
// further is appended; the caller re-sends manually.
func (c *Controller) freeformTurn(ctx context.Context, historyBefore []ChatMessage, outgoing string, userMsg ChatMessage) (*TurnResult, error) {
	reply, err := c.gateway.Generate(ctx, toGatewayHistory(withoutSystem(historyBefore)), outgoing)
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	parsed := ParseReply(reply)
	aiMsg := newMessage("", SenderAI, parsed.DisplayText)

	c.mu.Lock()
	c.progress.History = append(c.progress.History, aiMsg)
	c.actions = actionsFor(parsed)
	actions := c.actionsLocked()
	err = c.persistLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.logEvent(EventTurnCompleted, map[string]any{"kind": "freeform"})
	return &TurnResult{Appended: []ChatMessage{userMsg, aiMsg}, Actions: actions}, nil
}

// evaluationTurn runs the code-challenge sub-protocol: evaluate, then on a
// correct verdict advance the curriculum and ask the model to celebrate and
// open the next topic. The curriculum mutates only on an exact correct
// verdict; malformed verdicts are handled as incorrect.
func (c *Controller) evaluationTurn(ctx context.Context, text string, userMsg ChatMessage) (*TurnResult, error) {
	code := ExtractCode(text)

	c.mu.Lock()
	topicName := fallbackTopicLabel
	if t, ok := c.progress.Curriculum.CurrentTopic(); ok {
		topicName = t.Name
	}
	// History as of before this sub-protocol's own appends.
	historyBefore := make([]ChatMessage, len(c.progress.History))
	copy(historyBefore, c.progress.History)
	c.mu.Unlock()

	raw, err := c.gateway.Evaluate(ctx, evaluationPrompt(topicName, code))
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	verdict := ParseVerdict(raw)
	if verdict.Kind != VerdictCorrect {
		if verdict.Kind == VerdictMalformed {
			slog.Warn("malformed evaluation verdict, failing closed", "student", c.studentName)
		}
		// Incorrect feedback is dialogue, not a system announcement.
		aiMsg := newMessage("error", SenderAI, verdict.Feedback)

		c.mu.Lock()
		c.progress.History = append(c.progress.History, aiMsg)
		err = c.persistLocked(ctx)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}

		c.logEvent(EventTurnCompleted, map[string]any{"kind": "evaluation", "verdict": verdict.Kind.String()})
		return &TurnResult{Appended: []ChatMessage{userMsg, aiMsg}}, nil
	}

	sysMsg := newMessage("success", SenderSystem, verdict.Feedback)
	c.mu.Lock()
	c.progress.History = append(c.progress.History, sysMsg)
	newCur := c.progress.Curriculum.Clone()
	err = c.persistLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Advance the same topic identified above; the sub-protocol is one
	// logical turn, so there is no re-lookup race.
	_, next, advanced, hasNext := newCur.CompleteCurrent()
	nextName := finalProjectLabel
	if hasNext {
		nextName = next.Name
	}

	reply, err := c.gateway.Generate(ctx, toGatewayHistory(historyBefore), transitionPrompt(topicName, nextName))
	if err != nil {
		// The curriculum is not committed; a retried evaluation finds the
		// same topic still current.
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	parsed := ParseReply(reply)
	snapshot := newCur.Clone()
	aiMsg := newMessage("transition", SenderAI, parsed.DisplayText)
	aiMsg.Curriculum = &snapshot

	// Curriculum and transition message commit as one state update.
	c.mu.Lock()
	c.progress.Curriculum = newCur
	c.progress.History = append(c.progress.History, aiMsg)
	c.actions = actionsFor(parsed)
	actions := c.actionsLocked()
	err = c.persistLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if advanced {
		c.logEvent(EventTopicCompleted, map[string]any{"topic": topicName})
	}
	if newCur.Finished() {
		c.logEvent(EventCurriculumFinished, map[string]any{"grade": string(c.grade())})
	}
	c.logEvent(EventTurnCompleted, map[string]any{"kind": "evaluation", "verdict": verdict.Kind.String()})

	return &TurnResult{Appended: []ChatMessage{userMsg, sysMsg, aiMsg}, Actions: actions}, nil
}

// SetLanguage updates the display language preference.
func (c *Controller) SetLanguage(ctx context.Context, lang string) error {
	if !validLanguage(lang) {
		return fmt.Errorf("unsupported language: %q", lang)
	}
	return c.updatePreferences(ctx, func(p *Preferences) {
		p.Language = lang
	})
}

// SetRegionalLanguage updates the optional regional language; empty clears it.
func (c *Controller) SetRegionalLanguage(ctx context.Context, lang string) error {
	if lang != "" && !validLanguage(lang) {
		return fmt.Errorf("unsupported language: %q", lang)
	}
	return c.updatePreferences(ctx, func(p *Preferences) {
		p.RegionalLanguage = lang
	})
}

// ToggleHighlightCode flips the syntax-highlighting toggle and returns the
// new value.
func (c *Controller) ToggleHighlightCode(ctx context.Context) (bool, error) {
	var value bool
	err := c.updatePreferences(ctx, func(p *Preferences) {
		p.HighlightCode = !p.HighlightCode
		value = p.HighlightCode
	})
	return value, err
}

func (c *Controller) updatePreferences(ctx context.Context, update func(*Preferences)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return ErrNoSession
	}
	update(&c.progress.Preferences)
	return c.persistLocked(ctx)
}

// Progress returns a deep copy of the current progress, or nil before
// bootstrap.
func (c *Controller) Progress() *StudentProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return nil
	}
	return c.progress.Clone()
}

// History returns a copy of the message history.
func (c *Controller) History() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		return nil
	}
	out := make([]ChatMessage, len(c.progress.History))
	copy(out, c.progress.History)
	return out
}

// Actions returns the pending one-shot contextual actions.
func (c *Controller) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actionsLocked()
}

// Phase returns the turn-cycle phase; submission controls are disabled
// whenever it is not idle.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return ErrNotMounted
	}
	if c.phase != PhaseIdle {
		return ErrTurnInFlight
	}
	c.phase = PhaseAwaitingGateway
	return nil
}

// end resets the phase; deferred so the guard clears on every path.
func (c *Controller) end() {
	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()
}

func (c *Controller) persistLocked(ctx context.Context) error {
	if err := c.store.Save(ctx, c.terminalID, c.studentName, c.progress); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	return nil
}

func (c *Controller) actionsLocked() []Action {
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

func (c *Controller) grade() curriculum.GradeLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Grade
}

func (c *Controller) logEvent(eventType string, data map[string]any) {
	err := c.events.LogEvent(Event{
		TerminalID:  c.terminalID,
		StudentName: c.studentName,
		EventType:   eventType,
		Data:        data,
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}
