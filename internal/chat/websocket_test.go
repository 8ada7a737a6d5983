package chat_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/codebuddy-labs/codebuddy/internal/chat"
)

type testFrame struct {
	Type    string `json:"type"`
	Student string `json:"student,omitempty"`
	Text    string `json:"text,omitempty"`
	Grade   string `json:"grade,omitempty"`
	Label   string `json:"label,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func dialChannel(t *testing.T, ch *chat.WebSocketChannel, student string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ch)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindHello, Student: student}); err != nil {
		t.Fatalf("writing hello: %v", err)
	}
	return conn
}

func TestWebSocketChannel_InboundFrames(t *testing.T) {
	ch := chat.NewWebSocketChannel()
	inbound := make(chan chat.InboundMessage, 8)
	if err := ch.Start(context.Background(), func(m chat.InboundMessage) { inbound <- m }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn := dialChannel(t, ch, "Asha")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The hello frame itself is surfaced so the server can mount the session.
	hello := <-inbound
	if hello.Kind != chat.KindHello || hello.StudentName != "Asha" {
		t.Fatalf("hello = %+v", hello)
	}

	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindMessage, Text: "what is a loop?"}); err != nil {
		t.Fatalf("writing message: %v", err)
	}
	msg := <-inbound
	if msg.Kind != chat.KindMessage || msg.Text != "what is a loop?" {
		t.Errorf("message frame = %+v", msg)
	}
	if msg.StudentName != "Asha" {
		t.Errorf("StudentName = %q, frames must inherit the hello identity", msg.StudentName)
	}

	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindSelectGrade, Grade: "JUNIOR"}); err != nil {
		t.Fatalf("writing select_grade: %v", err)
	}
	sel := <-inbound
	if sel.Kind != chat.KindSelectGrade || sel.Grade != "JUNIOR" {
		t.Errorf("select_grade frame = %+v", sel)
	}

	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindAction, Label: "Show me an example", Prompt: "Could you show me an example of how to do this?"}); err != nil {
		t.Fatalf("writing action: %v", err)
	}
	act := <-inbound
	if act.ActionLabel != "Show me an example" || act.ActionPrompt == "" {
		t.Errorf("action frame = %+v", act)
	}
}

func TestWebSocketChannel_Outbound(t *testing.T) {
	ch := chat.NewWebSocketChannel()
	inbound := make(chan chat.InboundMessage, 1)
	if err := ch.Start(context.Background(), func(m chat.InboundMessage) { inbound <- m }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn := dialChannel(t, ch, "Asha")
	<-inbound // hello

	if !ch.Connected("Asha") {
		t.Fatal("Connected(Asha) = false after hello")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := ch.SendMessage(ctx, "Asha", chat.OutboundMessage{
		Type:    chat.TypeActions,
		Payload: []map[string]string{{"label": "I'll try this now"}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	var frame testFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	if frame.Type != chat.TypeActions {
		t.Errorf("frame.Type = %q, want %q", frame.Type, chat.TypeActions)
	}
	if frame.Payload == nil {
		t.Error("frame.Payload is empty")
	}
}

func TestWebSocketChannel_SendToUnknownStudent(t *testing.T) {
	ch := chat.NewWebSocketChannel()
	if err := ch.Start(context.Background(), func(chat.InboundMessage) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := ch.SendMessage(context.Background(), "Nobody", chat.OutboundMessage{Type: chat.TypeState})
	if err == nil {
		t.Error("SendMessage() error = nil for a student with no socket")
	}
}

func TestWebSocketChannel_BadFrameGetsError(t *testing.T) {
	ch := chat.NewWebSocketChannel()
	inbound := make(chan chat.InboundMessage, 1)
	if err := ch.Start(context.Background(), func(m chat.InboundMessage) { inbound <- m }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn := dialChannel(t, ch, "Asha")
	<-inbound // hello

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A message frame with no text is rejected without dropping the socket.
	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindMessage}); err != nil {
		t.Fatalf("writing bad frame: %v", err)
	}
	var frame testFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("reading error frame: %v", err)
	}
	if frame.Type != chat.TypeError {
		t.Errorf("frame.Type = %q, want %q", frame.Type, chat.TypeError)
	}

	// The socket is still usable.
	if err := wsjson.Write(ctx, conn, testFrame{Type: chat.KindMessage, Text: "still here"}); err != nil {
		t.Fatalf("writing follow-up: %v", err)
	}
	msg := <-inbound
	if msg.Text != "still here" {
		t.Errorf("follow-up frame = %+v", msg)
	}
}
