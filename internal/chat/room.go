package chat

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/protochat/internal/wire"
)

// Room is the shared broadcast and history component joined by
// authenticated sessions. It never owns a session: membership entries
// are resolved against liveness on every traversal, and entries whose
// connection has died are compacted lazily.
type Room struct {
	mu      sync.Mutex
	members map[uuid.UUID]*Session
	history *historyRing
	logger  *slog.Logger
}

func NewRoom(historyDepth int, logger *slog.Logger) *Room {
	if logger == nil {
		logger = slog.Default()
	}
	return &Room{
		members: make(map[uuid.UUID]*Session),
		history: newHistoryRing(historyDepth),
		logger:  logger,
	}
}

// Join adds the session to the membership set. Joining twice is a
// no-op: membership is keyed by session ID.
func (r *Room) Join(s *Session) {
	r.mu.Lock()
	r.members[s.ID()] = s
	count := len(r.members)
	r.mu.Unlock()

	RoomMembers.Set(float64(count))
}

// Leave removes the session; no-op if absent.
func (r *Room) Leave(s *Session) {
	r.mu.Lock()
	delete(r.members, s.ID())
	count := len(r.members)
	r.mu.Unlock()

	RoomMembers.Set(float64(count))
}

// Broadcast appends msg to the history ring and delivers it to every
// authenticated live member except exclude, in unspecified order.
// Delivery is best-effort: a member whose connection died is skipped
// and dropped from membership, and one failure never aborts the rest.
func (r *Room) Broadcast(msg StoredMessage, exclude *Session) {
	start := time.Now()

	r.mu.Lock()
	r.history.append(msg)
	HistorySize.Set(float64(r.history.len()))
	targets := r.liveMembersLocked()
	r.mu.Unlock()

	frame := wire.Message{Chat: &wire.Chat{
		From:      msg.From,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}}
	delivered := 0
	for _, s := range targets {
		if exclude != nil && s.ID() == exclude.ID() {
			continue
		}
		if s.State() != StateAuthenticated {
			continue
		}
		if err := s.Send(frame); err != nil {
			r.logger.Debug("broadcast delivery skipped", "session", s.ID(), "error", err)
			continue
		}
		delivered++
	}

	BroadcastFanout.Observe(time.Since(start).Seconds())
	r.logger.Debug("broadcast", "from", msg.From, "delivered", delivered)
}

// ReplayHistory sends every stored message, oldest first, to s as
// individual chat frames.
func (r *Room) ReplayHistory(s *Session) {
	r.mu.Lock()
	stored := r.history.snapshot()
	r.mu.Unlock()

	for _, m := range stored {
		if err := s.Send(wire.Message{Chat: &wire.Chat{
			From:      m.From,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		}}); err != nil {
			return
		}
	}
}

// ActiveNames returns the display names of live authenticated members,
// comma-joined; empty string when the room is empty.
func (r *Room) ActiveNames() string {
	r.mu.Lock()
	members := r.liveMembersLocked()
	r.mu.Unlock()

	names := make([]string, 0, len(members))
	for _, s := range members {
		if s.State() == StateAuthenticated {
			names = append(names, s.Name())
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// liveMembersLocked snapshots the live members and compacts dead
// entries as a side effect. Callers hold r.mu; delivery to the
// returned sessions must happen after unlocking, because a failed send
// can trigger a nested Leave.
func (r *Room) liveMembersLocked() []*Session {
	out := make([]*Session, 0, len(r.members))
	for id, s := range r.members {
		if !s.Alive() {
			delete(r.members, id)
			continue
		}
		out = append(out, s)
	}
	RoomMembers.Set(float64(len(r.members)))
	return out
}
