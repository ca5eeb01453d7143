package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/protochat/internal/wire"
)

type AuthState int

const (
	StateAwaitingAuth AuthState = iota
	StateAuthenticated
	StateClosed
)

const helpText = "Commands: /register <name> <password>, /reg <name> <password>, " +
	"/login <name> <password>, /history, /users, /help"

// Session is the server-side actor for one client connection: it owns
// the auth state machine and drives the directory and the room. The
// socket is abstracted behind Transport so the state machine runs
// against in-memory fakes in tests.
type Session struct {
	id        uuid.UUID
	transport Transport
	room      *Room
	directory *Directory
	logger    *slog.Logger

	mu    sync.Mutex
	name  string
	state AuthState

	closeOnce sync.Once
}

func NewSession(t Transport, room *Room, directory *Directory, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:        uuid.New(),
		transport: t,
		room:      room,
		directory: directory,
	}
	s.logger = logger.With("session", s.id.String())
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Session) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Alive reports whether the session has not yet closed. The room uses
// this to resolve membership entries before every delivery.
func (s *Session) Alive() bool {
	return s.State() != StateClosed
}

// Send queues one outbound frame. A transport failure closes the
// session.
func (s *Session) Send(m wire.Message) error {
	if err := s.transport.Send(m); err != nil {
		s.Close()
		return err
	}
	return nil
}

// HandleMessage dispatches one decoded inbound frame.
func (s *Session) HandleMessage(m wire.Message) {
	switch {
	case m.Heartbeat != nil:
		FramesTotal.WithLabelValues("heartbeat").Inc()
		_ = s.Send(wire.Message{Heartbeat: &wire.Heartbeat{Timestamp: nowMillis()}})
	case m.Command != nil:
		FramesTotal.WithLabelValues("command").Inc()
		s.handleCommand(m.Command.Cmd)
	case m.Chat != nil:
		FramesTotal.WithLabelValues("chat").Inc()
		s.handleChat(m.Chat)
	default:
		// Server-to-client variants arriving inbound carry nothing to act on.
		FramesTotal.WithLabelValues("unexpected").Inc()
		s.logger.Warn("unexpected inbound frame variant")
	}
}

func (s *Session) handleCommand(cmd string) {
	if cmd == "" {
		s.logger.Warn("empty command")
		return
	}
	s.logger.Info("handling command", "cmd", cmd)

	parsed := ParseRequest(cmd)
	switch parsed.Kind {
	case KindRegister:
		if len(parsed.Args) < 2 {
			s.sendAuthResponse(false, "Invalid arguments")
			return
		}
		s.handleRegister(parsed.Args[0], parsed.Args[1])
	case KindLogin:
		if len(parsed.Args) < 2 {
			s.sendAuthResponse(false, "Invalid arguments")
			return
		}
		s.handleLogin(parsed.Args[0], parsed.Args[1])
	case KindHistory:
		if !s.requireAuth() {
			return
		}
		s.room.ReplayHistory(s)
	case KindUsers:
		if !s.requireAuth() {
			return
		}
		s.sendServerChat("Active users: " + s.room.ActiveNames())
	case KindHelp:
		s.sendServerChat(helpText)
	default:
		s.logger.Warn("unsupported command", "cmd", cmd)
		s.sendAuthResponse(false, "Unsupported command "+parsed.Raw)
	}
}

func (s *Session) handleRegister(name, credential string) {
	if s.State() == StateAuthenticated {
		s.sendAuthResponse(false, "Already authenticated")
		return
	}
	if !s.directory.Register(name, credential) {
		s.sendAuthResponse(false, "User already exists")
		return
	}
	s.authenticateSuccess(name)
}

func (s *Session) handleLogin(name, credential string) {
	if s.State() == StateAuthenticated {
		s.sendAuthResponse(false, "Already authenticated")
		return
	}
	switch s.directory.Login(name, credential) {
	case LoginOK:
		s.authenticateSuccess(name)
	case LoginUnknownUser:
		s.sendAuthResponse(false, "User not registered")
	case LoginAlreadyActive:
		s.sendAuthResponse(false, "User already logged in")
	case LoginBadCredential:
		s.sendAuthResponse(false, "Invalid credentials")
	}
}

func (s *Session) authenticateSuccess(name string) {
	s.mu.Lock()
	s.name = name
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.room.Join(s)

	s.sendAuthResponse(true, "AUTH_OK")
	s.sendServerChat("Welcome " + name + "!")
	s.room.ReplayHistory(s)
}

func (s *Session) handleChat(c *wire.Chat) {
	if s.State() != StateAuthenticated {
		s.logger.Info("chat while unauthenticated dropped")
		s.sendAuthResponse(false, "Unauthorized")
		return
	}
	s.room.Broadcast(StoredMessage{
		From:      s.Name(),
		Text:      c.Text,
		Timestamp: nowMillis(),
	}, s)
}

func (s *Session) requireAuth() bool {
	if s.State() != StateAuthenticated {
		s.sendAuthResponse(false, "Unauthorized")
		return false
	}
	return true
}

func (s *Session) sendAuthResponse(success bool, message string) {
	_ = s.Send(wire.Message{Auth: &wire.Auth{Success: success, Message: message}})
}

func (s *Session) sendServerChat(text string) {
	_ = s.Send(wire.Message{Chat: &wire.Chat{
		From:      "server",
		Text:      text,
		Timestamp: nowMillis(),
	}})
}

// Close tears the session down exactly once: the directory logs the
// user out, the room drops the membership entry and the transport is
// released. Safe to call from any goroutine, including nested inside a
// broadcast whose delivery to this session failed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		name := s.name
		s.state = StateClosed
		s.mu.Unlock()

		if name != "" {
			s.directory.Logout(name)
		}
		s.room.Leave(s)
		_ = s.transport.Close()

		s.logger.Info("session closed", "user", name)
	})
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
