package core

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/avelis/Parley/internal/domain"
)

func newTestEngine() *Engine {
	return NewEngine(Options{
		SeedRoomName:   "General Chat",
		SeedRoomSecret: "password123",
		AdminName:      "Admin",
	})
}

func TestEngine_CreateRoom(t *testing.T) {
	tests := []struct {
		name     string
		roomName domain.RoomName
		secret   domain.Secret
		maxUsers int
		wantErr  error
	}{
		{
			name:     "valid room",
			roomName: "Test",
			secret:   "p1",
			maxUsers: 5,
		},
		{
			name:     "unlimited room",
			roomName: "Open",
			secret:   "p2",
			maxUsers: 0,
		},
		{
			name:     "empty name",
			roomName: "   ",
			secret:   "p3",
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "empty secret",
			roomName: "NoSecret",
			secret:   " ",
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "maxUsers above cap",
			roomName: "Big",
			secret:   "p4",
			maxUsers: 101,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "negative maxUsers",
			roomName: "Neg",
			secret:   "p5",
			maxUsers: -1,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "duplicate secret",
			roomName: "Clone",
			secret:   "password123",
			wantErr:  domain.ErrRoomExists,
		},
	}

	e := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CreateRoom(tt.roomName, tt.secret, tt.maxUsers)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("CreateRoom() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateRoom() unexpected error: %v", err)
			}
		})
	}
}

func TestEngine_Join(t *testing.T) {
	e := newTestEngine()
	if err := e.CreateRoom("Test", "p1", 5); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}

	out, err := e.Join("c1", "Alice", "p1")
	if err != nil {
		t.Fatalf("Join() unexpected error: %v", err)
	}
	if out.RoomName != "Test" {
		t.Errorf("Join() room = %q, want %q", out.RoomName, "Test")
	}
	if len(out.History) != 0 {
		t.Errorf("Join() history length = %d, want 0", len(out.History))
	}
	if len(out.Others) != 0 {
		t.Errorf("Join() others = %v, want none", out.Others)
	}

	tests := []struct {
		name     string
		conn     ConnID
		username string
		secret   domain.Secret
		wantErr  error
	}{
		{
			name:     "unknown secret",
			conn:     "c2",
			username: "Bob",
			secret:   "wrong",
			wantErr:  domain.ErrInvalidPassword,
		},
		{
			name:     "username taken exact",
			conn:     "c2",
			username: "Alice",
			secret:   "p1",
			wantErr:  domain.ErrUsernameTaken,
		},
		{
			name:     "username taken case-insensitive",
			conn:     "c2",
			username: "alice",
			secret:   "p1",
			wantErr:  domain.ErrUsernameTaken,
		},
		{
			name:     "empty username",
			conn:     "c2",
			username: "  ",
			secret:   "p1",
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "username too long",
			conn:     "c2",
			username: strings.Repeat("x", domain.MaxUsernameLen+1),
			secret:   "p1",
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "second member ok",
			conn:     "c2",
			username: "Bob",
			secret:   "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Join(tt.conn, tt.username, tt.secret)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("Join() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Join() unexpected error: %v", err)
			}
			if len(out.Others) != 1 || out.Others[0] != "c1" {
				t.Errorf("Join() others = %v, want [c1]", out.Others)
			}
		})
	}
}

func TestEngine_Join_FailedJoinMutatesNothing(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "no-such-room"); err != domain.ErrInvalidPassword {
		t.Fatalf("Join() error = %v, want %v", err, domain.ErrInvalidPassword)
	}
	// The connection gained no association: sending still fails.
	if _, err := e.SendMessage("c1", "hi"); err != domain.ErrNotInRoom {
		t.Errorf("SendMessage() error = %v, want %v", err, domain.ErrNotInRoom)
	}
	if n := e.RoomCount(); n != 1 {
		t.Errorf("RoomCount() = %d, want 1 (seed only)", n)
	}
}

func TestEngine_Join_CapacityAfterLeave(t *testing.T) {
	e := newTestEngine()
	if err := e.CreateRoom("Tiny", "p1", 1); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}

	if _, err := e.Join("c1", "Alice", "p1"); err != nil {
		t.Fatalf("Join(Alice) error: %v", err)
	}
	if _, err := e.Join("c2", "Bob", "p1"); err != domain.ErrRoomFull {
		t.Fatalf("Join(Bob) error = %v, want %v", err, domain.ErrRoomFull)
	}

	left, ok := e.Leave("c1")
	if !ok {
		t.Fatal("Leave() reported no association for c1")
	}
	if left.Username != "Alice" {
		t.Errorf("Leave() username = %q, want Alice", left.Username)
	}

	if _, err := e.Join("c2", "Bob", "p1"); err != nil {
		t.Errorf("Join(Bob) after leave error: %v", err)
	}
}

func TestEngine_Join_SwitchesRoom(t *testing.T) {
	e := newTestEngine()
	if err := e.CreateRoom("Other", "p1", 0); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join(seed) error: %v", err)
	}
	if _, err := e.Join("c2", "Bob", "password123"); err != nil {
		t.Fatalf("Join(seed) error: %v", err)
	}

	out, err := e.Join("c1", "Alice", "p1")
	if err != nil {
		t.Fatalf("Join(switch) error: %v", err)
	}
	if out.Left == nil {
		t.Fatal("Join(switch) expected implicit leave of the previous room")
	}
	if out.Left.Secret != "password123" {
		t.Errorf("implicit leave secret = %q, want password123", out.Left.Secret)
	}
	if len(out.Left.Remaining) != 1 || out.Left.Remaining[0] != "c2" {
		t.Errorf("implicit leave remaining = %v, want [c2]", out.Left.Remaining)
	}
}

func TestEngine_Leave_NoAssociation(t *testing.T) {
	e := newTestEngine()
	if _, ok := e.Leave("ghost"); ok {
		t.Error("Leave() with no association should be a no-op")
	}
}

func TestEngine_SendMessage(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	tests := []struct {
		name     string
		conn     ConnID
		text     string
		wantErr  error
		wantText string
	}{
		{
			name:    "not in room",
			conn:    "c9",
			text:    "hi",
			wantErr: domain.ErrNotInRoom,
		},
		{
			name:    "empty after trim",
			conn:    "c1",
			text:    "   ",
			wantErr: domain.ErrEmptyMessage,
		},
		{
			name:    "too long",
			conn:    "c1",
			text:    strings.Repeat("a", domain.MaxMessageLen+1),
			wantErr: domain.ErrMessageTooLong,
		},
		{
			name:     "trimmed and stored",
			conn:     "c1",
			text:     "  hi  ",
			wantText: "hi",
		},
		{
			name:     "exactly at the limit",
			conn:     "c1",
			text:     strings.Repeat("b", domain.MaxMessageLen),
			wantText: strings.Repeat("b", domain.MaxMessageLen),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.SendMessage(tt.conn, tt.text)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("SendMessage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SendMessage() unexpected error: %v", err)
			}
			if out.Message.Text != tt.wantText {
				t.Errorf("SendMessage() text = %q, want %q", out.Message.Text, tt.wantText)
			}
			if out.Message.ID == "" {
				t.Error("SendMessage() message id should not be empty")
			}
			if out.Message.Sender != "Alice" {
				t.Errorf("SendMessage() sender = %q, want Alice", out.Message.Sender)
			}
			if len(out.Members) != 1 || out.Members[0] != "c1" {
				t.Errorf("SendMessage() members = %v, want [c1] including sender", out.Members)
			}
		})
	}

	history := e.History("password123")
	if len(history) != 2 {
		t.Fatalf("History() length = %d, want 2", len(history))
	}
	if history[0].Text != "hi" {
		t.Errorf("History()[0].Text = %q, want %q", history[0].Text, "hi")
	}
}

func TestEngine_HistoryLimit(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	for i := 0; i < domain.HistoryLimit+1; i++ {
		if _, err := e.SendMessage("c1", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("SendMessage(%d) error: %v", i, err)
		}
	}

	history := e.History("password123")
	if len(history) != domain.HistoryLimit {
		t.Fatalf("History() length = %d, want %d", len(history), domain.HistoryLimit)
	}
	// Sending the 101st evicted exactly the oldest.
	if history[0].Text != "message 1" {
		t.Errorf("History()[0].Text = %q, want %q", history[0].Text, "message 1")
	}
	if last := history[len(history)-1].Text; last != fmt.Sprintf("message %d", domain.HistoryLimit) {
		t.Errorf("History() last = %q, want %q", last, fmt.Sprintf("message %d", domain.HistoryLimit))
	}
}

func TestEngine_MessageIDsUnique(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	seen := make(map[domain.MessageID]bool)
	for i := 0; i < domain.HistoryLimit; i++ {
		out, err := e.SendMessage("c1", "burst")
		if err != nil {
			t.Fatalf("SendMessage() error: %v", err)
		}
		if seen[out.Message.ID] {
			t.Fatalf("duplicate message id %s", out.Message.ID)
		}
		seen[out.Message.ID] = true
	}
}

func TestEngine_DeleteMessage(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := e.Join("c2", "Bob", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := e.Join("c3", "Admin", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	sent, err := e.SendMessage("c1", "delete me")
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}

	if _, err := e.DeleteMessage("c2", sent.Message.ID); err != domain.ErrForbidden {
		t.Errorf("DeleteMessage(non-author) error = %v, want %v", err, domain.ErrForbidden)
	}
	if _, err := e.DeleteMessage("c1", "no-such-id"); err != domain.ErrMessageNotFound {
		t.Errorf("DeleteMessage(unknown id) error = %v, want %v", err, domain.ErrMessageNotFound)
	}

	out, err := e.DeleteMessage("c1", sent.Message.ID)
	if err != nil {
		t.Fatalf("DeleteMessage(author) error: %v", err)
	}
	if out.ID != sent.Message.ID {
		t.Errorf("DeleteMessage() id = %s, want %s", out.ID, sent.Message.ID)
	}
	if history := e.History("password123"); len(history) != 0 {
		t.Errorf("History() length after delete = %d, want 0", len(history))
	}

	// The admin identity may delete anyone's message.
	sent, err = e.SendMessage("c2", "admin target")
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if _, err := e.DeleteMessage("c3", sent.Message.ID); err != nil {
		t.Errorf("DeleteMessage(admin) error: %v", err)
	}
}

func TestEngine_DeleteRoom(t *testing.T) {
	e := newTestEngine()
	if err := e.CreateRoom("Doomed", "p1", 0); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if _, err := e.Join("c1", "Alice", "p1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if _, err := e.DeleteRoom("password123"); err != domain.ErrRoomProtected {
		t.Errorf("DeleteRoom(seed) error = %v, want %v", err, domain.ErrRoomProtected)
	}
	// The protected room survives the attempt.
	if _, err := e.Join("c2", "Bob", "password123"); err != nil {
		t.Errorf("Join(seed) after delete attempt error: %v", err)
	}

	if _, err := e.DeleteRoom("missing"); err != domain.ErrRoomNotFound {
		t.Errorf("DeleteRoom(missing) error = %v, want %v", err, domain.ErrRoomNotFound)
	}

	out, err := e.DeleteRoom("p1")
	if err != nil {
		t.Fatalf("DeleteRoom() error: %v", err)
	}
	if len(out.Evicted) != 1 || out.Evicted[0] != "c1" {
		t.Errorf("DeleteRoom() evicted = %v, want [c1]", out.Evicted)
	}
	// Evicted members lost their association.
	if _, err := e.SendMessage("c1", "hello?"); err != domain.ErrNotInRoom {
		t.Errorf("SendMessage() after room delete error = %v, want %v", err, domain.ErrNotInRoom)
	}
	if _, err := e.Join("c3", "Carol", "p1"); err != domain.ErrInvalidPassword {
		t.Errorf("Join(deleted room) error = %v, want %v", err, domain.ErrInvalidPassword)
	}
}

func TestEngine_Stats(t *testing.T) {
	e := newTestEngine()
	if err := e.CreateRoom("Test", "p1", 5); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if _, err := e.Join("c1", "Alice", "p1"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := e.SendMessage("c1", "hello"); err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}

	stats := e.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats() length = %d, want 2", len(stats))
	}

	var test *RoomStats
	for i := range stats {
		if stats[i].Secret == "p1" {
			test = &stats[i]
		}
	}
	if test == nil {
		t.Fatal("Stats() missing room p1")
	}
	if test.MemberCount != 1 {
		t.Errorf("Stats() memberCount = %d, want 1", test.MemberCount)
	}
	if len(test.MemberNames) != 1 || test.MemberNames[0] != "Alice" {
		t.Errorf("Stats() memberNames = %v, want [Alice]", test.MemberNames)
	}
	if test.MaxUsers != 5 {
		t.Errorf("Stats() maxUsers = %d, want 5", test.MaxUsers)
	}
	if test.Protected {
		t.Error("Stats() created room should not be protected")
	}
	if test.MessageCount != 1 {
		t.Errorf("Stats() messageCount = %d, want 1", test.MessageCount)
	}
	if test.CreatedAt.IsZero() || test.LastActivity.IsZero() {
		t.Error("Stats() timestamps should be set")
	}
}

func TestEngine_Typing(t *testing.T) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if _, err := e.Join("c2", "Bob", "password123"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	out, ok := e.Typing("c1")
	if !ok {
		t.Fatal("Typing() should resolve for a member")
	}
	if out.Username != "Alice" {
		t.Errorf("Typing() username = %q, want Alice", out.Username)
	}
	if len(out.Others) != 1 || out.Others[0] != "c2" {
		t.Errorf("Typing() others = %v, want [c2]", out.Others)
	}

	if _, ok := e.Typing("ghost"); ok {
		t.Error("Typing() should not resolve without an association")
	}
}

func TestEngine_SweepIdle(t *testing.T) {
	current := time.Now()
	e := NewEngine(Options{
		SeedRoomSecret: "password123",
		Clock:          func() time.Time { return current },
	})
	if err := e.CreateRoom("Stale", "stale", 0); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if err := e.CreateRoom("Busy", "busy", 0); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if _, err := e.Join("c1", "Alice", "busy"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	// Two hours pass with no activity anywhere.
	current = current.Add(2 * time.Hour)

	removed := e.SweepIdle(time.Hour)
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("SweepIdle() removed = %v, want [stale]", removed)
	}
	// Occupied and protected rooms survive regardless of age.
	if _, err := e.Join("c2", "Bob", "busy"); err != nil {
		t.Errorf("Join(busy) after sweep error: %v", err)
	}
	if _, err := e.Join("c3", "Carol", "password123"); err != nil {
		t.Errorf("Join(seed) after sweep error: %v", err)
	}

	// A fresh empty room is not reclaimed.
	if err := e.CreateRoom("Fresh", "fresh", 0); err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if removed := e.SweepIdle(time.Hour); len(removed) != 0 {
		t.Errorf("SweepIdle() removed = %v, want none", removed)
	}
}

func BenchmarkEngine_SendMessage(b *testing.B) {
	e := newTestEngine()
	if _, err := e.Join("c1", "Alice", "password123"); err != nil {
		b.Fatalf("Join() error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.SendMessage("c1", "benchmark message")
	}
}
