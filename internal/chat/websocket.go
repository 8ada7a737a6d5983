package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// wireFrame is the JSON shape on the browser socket, both directions. The
// browser sends type + the fields its kind needs; the server sends type +
// payload.
type wireFrame struct {
	Type    string `json:"type"`
	Student string `json:"student,omitempty"`
	Text    string `json:"text,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Label   string `json:"label,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// WebSocketChannel serves browser terminals over a websocket endpoint. It is
// an http.Handler; mount it on the mux and register it with the Gateway
// under the name "websocket". Each connection identifies its student with a
// hello frame before anything else is routed.
type WebSocketChannel struct {
	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
	stopped bool
}

// NewWebSocketChannel creates the channel with no connections.
func NewWebSocketChannel() *WebSocketChannel {
	return &WebSocketChannel{
		conns: make(map[string]*websocket.Conn),
	}
}

// Start records the inbound handler. Connections are accepted by ServeHTTP;
// there is no listener to spin up here.
func (c *WebSocketChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return errors.New("channel is stopped")
	}
	c.handler = handler
	return nil
}

// Stop closes every open connection and rejects new ones.
func (c *WebSocketChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for name, conn := range c.conns {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(c.conns, name)
	}
	return nil
}

// SendMessage writes one frame to the student's connection.
func (c *WebSocketChannel) SendMessage(ctx context.Context, studentName string, msg OutboundMessage) error {
	c.mu.RLock()
	conn, ok := c.conns[studentName]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("student %q is not connected", studentName)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, wireFrame{Type: msg.Type, Payload: msg.Payload})
}

// SendTyping shows the thinking indicator.
func (c *WebSocketChannel) SendTyping(ctx context.Context, studentName string) error {
	return c.SendMessage(ctx, studentName, OutboundMessage{Type: TypeTyping})
}

// Connected reports whether a student currently has an open socket.
func (c *WebSocketChannel) Connected(studentName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.conns[studentName]
	return ok
}

// ServeHTTP upgrades the request and pumps frames until the peer goes away.
func (c *WebSocketChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	stopped := c.stopped
	handler := c.handler
	c.mu.RUnlock()
	if stopped || handler == nil {
		http.Error(w, "channel unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	ctx := r.Context()

	// The first frame must be hello so frames can be attributed.
	var hello wireFrame
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		conn.Close(websocket.StatusProtocolError, "expected hello frame")
		return
	}
	if hello.Type != KindHello || hello.Student == "" {
		conn.Close(websocket.StatusProtocolError, "hello frame must name the student")
		return
	}
	student := hello.Student

	c.mu.Lock()
	if old, ok := c.conns[student]; ok {
		// A reconnect supersedes the old socket.
		old.Close(websocket.StatusPolicyViolation, "superseded by a new connection")
	}
	c.conns[student] = conn
	c.mu.Unlock()

	slog.Info("student connected", "student", student)
	defer func() {
		c.mu.Lock()
		if c.conns[student] == conn {
			delete(c.conns, student)
		}
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		slog.Info("student disconnected", "student", student)
	}()

	handler(InboundMessage{Channel: "websocket", StudentName: student, Kind: KindHello})

	for {
		var frame wireFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return
		}
		msg, err := inboundFrom(student, frame)
		if err != nil {
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			wsjson.Write(writeCtx, conn, wireFrame{Type: TypeError, Payload: err.Error()})
			cancel()
			continue
		}
		handler(msg)
	}
}

func inboundFrom(student string, frame wireFrame) (InboundMessage, error) {
	msg := InboundMessage{Channel: "websocket", StudentName: student, Kind: frame.Type}
	switch frame.Type {
	case KindMessage:
		if frame.Text == "" {
			return InboundMessage{}, errors.New("message frame needs text")
		}
		msg.Text = frame.Text
	case KindSelectGrade:
		if frame.Grade == "" {
			return InboundMessage{}, errors.New("select_grade frame needs a grade")
		}
		msg.Grade = frame.Grade
	case KindAction:
		if frame.Label == "" {
			return InboundMessage{}, errors.New("action frame needs a label")
		}
		msg.ActionLabel = frame.Label
		msg.ActionPrompt = frame.Prompt
	default:
		return InboundMessage{}, fmt.Errorf("unknown frame type %q", frame.Type)
	}
	return msg, nil
}
