package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codebuddy-labs/codebuddy/internal/ai"
	"github.com/codebuddy-labs/codebuddy/internal/auth"
	"github.com/codebuddy-labs/codebuddy/internal/chat"
	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
	"github.com/codebuddy-labs/codebuddy/internal/platform/cache"
	"github.com/codebuddy-labs/codebuddy/internal/platform/config"
	"github.com/codebuddy-labs/codebuddy/internal/platform/database"
	"github.com/codebuddy-labs/codebuddy/internal/session"
)

// progressDirectory is the store surface the admin report needs on top of
// the controller's ProgressStore. Both store implementations provide it.
type progressDirectory interface {
	session.ProgressStore
	All(ctx context.Context, terminalID string) (map[string]*session.StudentProgress, error)
}

// app wires the terminal together: auth gate, curriculum catalog, progress
// stores, the tutor gateway and the browser-facing chat channel.
type app struct {
	cfg     *config.Config
	gate    *auth.Gate
	catalog *curriculum.Catalog

	progress progressDirectory
	events   session.EventLogger
	usage    *ai.UsageTracker

	channel *chat.WebSocketChannel
	chatGW  *chat.Gateway

	db    *database.DB
	cache *cache.Cache

	mu          sync.Mutex
	controllers map[string]*session.Controller
	tutor       *ai.TutorGateway
	tutorKey    string
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:         cfg,
		controllers: make(map[string]*session.Controller),
		usage:       ai.NewUsageTracker(),
	}

	catalog, err := curriculum.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading curriculum catalog: %w", err)
	}
	a.catalog = catalog

	var creds auth.CredentialStore
	if cfg.Cache.URL != "" {
		c, err := cache.Connect(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting cache: %w", err)
		}
		a.cache = c
		creds = auth.NewRedisCredentialStore(c.Client, cfg.Terminal.ID)
	} else {
		slog.Warn("no cache configured, terminal credentials are in-memory only")
		creds = auth.NewMemoryCredentialStore()
	}

	if cfg.Database.URL != "" {
		db, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		a.db = db
		store, err := session.NewPostgresProgressStore(db.Pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
		a.progress = store
		a.events = session.NewPostgresEventLogger(db.Pool)
	} else {
		slog.Warn("no database configured, student progress is in-memory only")
		a.progress = session.NewMemoryProgressStore()
		a.events = session.NewMemoryEventLogger()
	}

	gate, err := auth.NewGate(creds, cfg.Admin.Password)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating auth gate: %w", err)
	}
	if err := gate.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading terminal state: %w", err)
	}
	a.gate = gate

	a.channel = chat.NewWebSocketChannel()
	a.chatGW = chat.NewGateway()
	a.chatGW.Register("websocket", a.channel)
	if err := a.chatGW.StartAll(ctx, a.handleInbound); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases external connections. Safe on a partially built app.
func (a *app) Close() {
	if a.chatGW != nil {
		if err := a.chatGW.StopAll(); err != nil {
			slog.Warn("stopping channels", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}
}

// tutorGateway returns the gateway for the currently stored API key, built
// on first use and rebuilt if an admin re-activates with a new key.
func (a *app) tutorGateway() (*ai.TutorGateway, error) {
	key := a.gate.APIKey()
	if key == "" {
		return nil, errors.New("terminal is not activated")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tutor != nil && a.tutorKey == key {
		return a.tutor, nil
	}

	var popts []ai.GoogleOption
	if a.cfg.AI.BaseURL != "" {
		popts = append(popts, ai.WithGoogleBaseURL(a.cfg.AI.BaseURL))
	}
	provider := ai.NewGoogleProvider(key, popts...)
	a.tutor = ai.NewTutorGateway(provider,
		ai.WithPersona(ai.PersonaPrompt),
		ai.WithModel(a.cfg.AI.Model),
		ai.WithUsageTracker(a.usage),
	)
	a.tutorKey = key
	return a.tutor, nil
}

// lazyGateway defers gateway construction to call time so controllers built
// before activation, or across a key rotation, always use the current key.
type lazyGateway struct {
	app *app
}

func (l lazyGateway) Generate(ctx context.Context, history []ai.Message, userText string) (string, error) {
	gw, err := l.app.tutorGateway()
	if err != nil {
		return "", err
	}
	return gw.Generate(ctx, history, userText)
}

func (l lazyGateway) Evaluate(ctx context.Context, prompt string) (string, error) {
	gw, err := l.app.tutorGateway()
	if err != nil {
		return "", err
	}
	return gw.Evaluate(ctx, prompt)
}

// controllerFor returns the student's controller, mounting a new one on
// first contact. resumed reports whether saved progress was found.
func (a *app) controllerFor(ctx context.Context, studentName string) (*session.Controller, bool, error) {
	a.mu.Lock()
	ctrl, ok := a.controllers[studentName]
	a.mu.Unlock()
	if ok {
		return ctrl, ctrl.Progress() != nil, nil
	}

	ctrl, err := session.NewController(session.Config{
		Gateway:     lazyGateway{app: a},
		Store:       a.progress,
		Catalog:     a.catalog,
		Events:      a.events,
		TerminalID:  a.cfg.Terminal.ID,
		StudentName: studentName,
	})
	if err != nil {
		return nil, false, err
	}
	resumed, err := ctrl.Mount(ctx)
	if err != nil {
		return nil, false, err
	}

	a.mu.Lock()
	if existing, ok := a.controllers[studentName]; ok {
		ctrl = existing
	} else {
		a.controllers[studentName] = ctrl
	}
	a.mu.Unlock()
	return ctrl, resumed, nil
}

// handleInbound routes one frame from a browser terminal.
func (a *app) handleInbound(msg chat.InboundMessage) {
	ctx := context.Background()

	send := func(frameType string, payload any) {
		err := a.chatGW.Send(ctx, chat.OutboundMessage{
			Channel:     msg.Channel,
			StudentName: msg.StudentName,
			Type:        frameType,
			Payload:     payload,
		})
		if err != nil {
			slog.Warn("sending frame failed", "student", msg.StudentName, "type", frameType, "error", err)
		}
	}

	if !a.gate.IsActivated() {
		send(chat.TypeError, "terminal is not activated")
		return
	}

	ctrl, resumed, err := a.controllerFor(ctx, msg.StudentName)
	if err != nil {
		slog.Error("mounting session failed", "student", msg.StudentName, "error", err)
		send(chat.TypeError, "could not open your session")
		return
	}

	switch msg.Kind {
	case chat.KindHello:
		send(chat.TypeState, stateFor(ctrl, resumed))
		return

	case chat.KindSelectGrade:
		grade := curriculum.GradeLevel(msg.Grade)
		if !grade.Valid() {
			send(chat.TypeError, fmt.Sprintf("unknown grade %q", msg.Grade))
			return
		}
		a.runTurn(ctx, msg, send, func() (*session.TurnResult, error) {
			return ctrl.SelectGrade(ctx, grade)
		})

	case chat.KindMessage:
		a.runTurn(ctx, msg, send, func() (*session.TurnResult, error) {
			return ctrl.Send(ctx, msg.Text)
		})

	case chat.KindAction:
		a.runTurn(ctx, msg, send, func() (*session.TurnResult, error) {
			return ctrl.ClickAction(ctx, session.Action{Label: msg.ActionLabel, Prompt: msg.ActionPrompt})
		})

	default:
		send(chat.TypeError, fmt.Sprintf("unknown frame kind %q", msg.Kind))
	}
}

// runTurn executes one controller operation and streams its results back.
func (a *app) runTurn(ctx context.Context, msg chat.InboundMessage, send func(string, any), op func() (*session.TurnResult, error)) {
	if err := a.chatGW.SendTyping(ctx, msg.Channel, msg.StudentName); err != nil {
		slog.Debug("typing indicator failed", "student", msg.StudentName, "error", err)
	}

	res, err := op()
	if err != nil {
		// A partial result still carries messages worth showing (a
		// bootstrap welcome whose first lesson call failed, for one).
		if res != nil && len(res.Appended) > 0 {
			send(chat.TypeMessages, res.Appended)
		}
		slog.Warn("turn failed", "student", msg.StudentName, "error", err)
		send(chat.TypeError, err.Error())
		return
	}

	if len(res.Appended) > 0 {
		send(chat.TypeMessages, res.Appended)
	}
	send(chat.TypeActions, res.Actions)
	if res.FocusInput {
		send(chat.TypeFocus, nil)
	}
}

// stateFor is the hello reply: everything the browser needs to render.
func stateFor(ctrl *session.Controller, resumed bool) map[string]any {
	state := map[string]any{
		"resumed":   resumed,
		"history":   ctrl.History(),
		"actions":   ctrl.Actions(),
		"languages": session.SupportedLanguages(),
	}
	if p := ctrl.Progress(); p != nil {
		state["grade"] = p.Grade
		state["curriculum"] = p.Curriculum
		state["preferences"] = p.Preferences
	}
	return state
}
