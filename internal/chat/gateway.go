// Package chat provides a unified interface for presentation channels
// (WebSocket today, others later) between browser terminals and the tutor.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Inbound message kinds.
const (
	KindHello       = "hello"
	KindMessage     = "message"
	KindSelectGrade = "select_grade"
	KindAction      = "action"
)

// Outbound frame types.
const (
	TypeMessages = "messages"
	TypeActions  = "actions"
	TypeFocus    = "focus_input"
	TypeTyping   = "typing"
	TypeError    = "error"
	TypeState    = "state"
)

// InboundMessage is a frame received from any channel, already attributed to
// a student on this terminal.
type InboundMessage struct {
	Channel      string
	StudentName  string
	Kind         string
	Text         string
	Grade        string
	ActionLabel  string
	ActionPrompt string
}

// OutboundMessage is a frame to send via any channel. Payload must be
// JSON-serializable.
type OutboundMessage struct {
	Channel     string
	StudentName string
	Type        string
	Payload     any
}

// Channel is the interface each presentation transport must implement.
type Channel interface {
	SendMessage(ctx context.Context, studentName string, msg OutboundMessage) error
	SendTyping(ctx context.Context, studentName string) error
	Start(ctx context.Context, handler func(InboundMessage)) error
	Stop() error
}

// Gateway routes frames to/from registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new chat gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("chat channel registered", "channel", name)
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

// Send dispatches a frame to the appropriate channel.
func (g *Gateway) Send(ctx context.Context, msg OutboundMessage) error {
	g.mu.RLock()
	ch, ok := g.channels[msg.Channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	return ch.SendMessage(ctx, msg.StudentName, msg)
}

// SendTyping shows the thinking indicator to the student on the given channel.
func (g *Gateway) SendTyping(ctx context.Context, channel, studentName string) error {
	g.mu.RLock()
	ch, ok := g.channels[channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", channel)
	}

	return ch.SendTyping(ctx, studentName)
}

// StartAll starts all registered channels with the given frame handler.
func (g *Gateway) StartAll(ctx context.Context, handler func(InboundMessage)) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, ch := range g.channels {
		slog.Info("starting channel", "channel", name)
		if err := ch.Start(ctx, handler); err != nil {
			return fmt.Errorf("starting channel %s: %w", name, err)
		}
	}
	return nil
}

// StopAll stops every registered channel; the first error wins.
func (g *Gateway) StopAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var firstErr error
	for name, ch := range g.channels {
		if err := ch.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stopping channel %s: %w", name, err)
		}
	}
	return firstErr
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu           sync.Mutex
	SentMessages []OutboundMessage
	TypingSent   int
	handler      func(InboundMessage)
}

func (m *MockChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, msg)
	return nil
}

func (m *MockChannel) SendTyping(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TypingSent++
	return nil
}

func (m *MockChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return nil
}

func (m *MockChannel) Stop() error {
	return nil
}

// Inject delivers a frame as if it arrived from a student.
func (m *MockChannel) Inject(msg InboundMessage) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// Sent returns a copy of the frames sent so far.
func (m *MockChannel) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.SentMessages))
	copy(out, m.SentMessages)
	return out
}
