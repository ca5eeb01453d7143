package chat

import (
	"sync"
	"testing"

	"github.com/avolkov/protochat/internal/wire"
)

// fakeTransport records sent frames in memory so the session state
// machine and the room can be exercised without sockets.
type fakeTransport struct {
	mu     sync.Mutex
	frames []wire.Message
	closed bool
	// set to a non-nil error to simulate a broken connection
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (f *fakeTransport) Send(m wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrTransportClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, m)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "fake" }

func (f *fakeTransport) failNextSends() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = ErrTransportClosed
}

// sent returns a copy of everything sent so far.
func (f *fakeTransport) sent() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Message, len(f.frames))
	copy(out, f.frames)
	return out
}

// chats filters the sent frames down to chat messages.
func (f *fakeTransport) chats() []wire.Chat {
	var out []wire.Chat
	for _, m := range f.sent() {
		if m.Chat != nil {
			out = append(out, *m.Chat)
		}
	}
	return out
}

// lastAuth returns the most recent auth response, failing the test if
// none was sent.
func (f *fakeTransport) lastAuth(t *testing.T) wire.Auth {
	t.Helper()
	var got *wire.Auth
	for _, m := range f.sent() {
		if m.Auth != nil {
			a := *m.Auth
			got = &a
		}
	}
	if got == nil {
		t.Fatal("no auth response sent")
	}
	return *got
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// newMember registers name through the full command path and returns
// the authenticated session with its transport.
func newMember(t *testing.T, room *Room, dir *Directory, name string) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s := NewSession(ft, room, dir, nil)
	s.HandleMessage(wire.Message{Command: &wire.Command{Cmd: "register " + name + " pw-" + name}})
	if a := ft.lastAuth(t); !a.Success {
		t.Fatalf("register %s failed: %s", name, a.Message)
	}
	if s.State() != StateAuthenticated {
		t.Fatalf("session for %s not authenticated", name)
	}
	ft.reset()
	return s, ft
}
