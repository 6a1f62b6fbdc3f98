package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/items"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

type fakeController struct {
	mu         sync.Mutex
	session    orchestration.Session
	profiles   []realtime.Profile
	calls      []string
	profileIDs []string
}

func (c *fakeController) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeController) Session() orchestration.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *fakeController) Transcript() conversation.Snapshot { return conversation.Snapshot{} }
func (c *fakeController) Profiles() []realtime.Profile       { return c.profiles }
func (c *fakeController) Subscribe(func(conversation.Snapshot)) func() {
	return func() {}
}

func (c *fakeController) Connect(context.Context) error {
	c.record("connect")
	c.mu.Lock()
	c.session = orchestration.Session{State: orchestration.StateConnected, Connected: true}
	c.mu.Unlock()
	return nil
}

func (c *fakeController) Disconnect(context.Context) { c.record("disconnect") }

func (c *fakeController) ToggleMute(context.Context) error {
	c.record("mute")
	return nil
}

func (c *fakeController) ToggleRecording(context.Context) error {
	c.record("record")
	return orchestration.ErrInvalidState
}

func (c *fakeController) SetProfile(_ context.Context, id string) error {
	c.record("profile")
	c.profileIDs = append(c.profileIDs, id)
	return nil
}

func press(t *testing.T, m Model, key string) (Model, tea.Msg) {
	t.Helper()

	var msg tea.KeyMsg
	switch key {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}

	updated, cmd := m.Update(msg)
	model := updated.(Model)
	if cmd == nil {
		return model, nil
	}
	return model, cmd()
}

func TestConnectKeyConnectsThenDisconnects(t *testing.T) {
	controller := &fakeController{}
	m := NewModel(context.Background(), controller, ModelInfo{})

	m, msg := press(t, m, "c")
	if m.busy != "connecting" {
		t.Fatalf("expected busy connecting, got %q", m.busy)
	}
	updated, _ := m.Update(msg)
	m = updated.(Model)
	if m.busy != "" || !m.session.Connected {
		t.Fatalf("expected connected idle model, got busy=%q session=%+v", m.busy, m.session)
	}

	m, msg = press(t, m, "c")
	updated, _ = m.Update(msg)
	m = updated.(Model)

	if len(controller.calls) != 2 || controller.calls[0] != "connect" || controller.calls[1] != "disconnect" {
		t.Fatalf("expected connect then disconnect, got %v", controller.calls)
	}
}

func TestOperationErrorsAreShown(t *testing.T) {
	controller := &fakeController{}
	m := NewModel(context.Background(), controller, ModelInfo{})

	m, msg := press(t, m, " ")
	updated, _ := m.Update(msg)
	m = updated.(Model)

	if m.err == nil {
		t.Fatalf("expected the toggle error to be kept for display")
	}
	if len(controller.calls) != 1 || controller.calls[0] != "record" {
		t.Fatalf("expected one record toggle, got %v", controller.calls)
	}
}

func TestNumberKeysSelectProfiles(t *testing.T) {
	controller := &fakeController{profiles: []realtime.Profile{{ID: "assistant"}, {ID: "tutor"}}}
	m := NewModel(context.Background(), controller, ModelInfo{})

	m, _ = press(t, m, "2")
	_, msg := press(t, m, "3")
	if msg != nil {
		t.Fatalf("expected no operation for a missing profile, got %v", msg)
	}

	if len(controller.profileIDs) != 1 || controller.profileIDs[0] != "tutor" {
		t.Fatalf("expected tutor to be selected, got %v", controller.profileIDs)
	}
}

func TestOlderSnapshotsAreDropped(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, ModelInfo{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	newer := conversation.Snapshot{Version: 5, Items: []items.Item{{ID: "a1"}, {ID: "a2"}}}
	older := conversation.Snapshot{Version: 4, Items: []items.Item{{ID: "a1"}}}

	updated, _ = m.Update(snapshotMsg(newer))
	updated, _ = updated.(Model).Update(snapshotMsg(older))
	m = updated.(Model)

	if m.snapshot.Version != 5 || len(m.snapshot.Items) != 2 {
		t.Fatalf("expected newest snapshot to be kept, got version %d", m.snapshot.Version)
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel(context.Background(), &fakeController{}, ModelInfo{})

	_, msg := press(t, m, "q")
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message, got %T", msg)
	}
}
