package chat

import (
	"strings"
	"testing"
)

func TestHistoryRingEvictsOldest(t *testing.T) {
	h := newHistoryRing(2)
	h.append(StoredMessage{From: "a", Text: "m1", Timestamp: 1})
	h.append(StoredMessage{From: "a", Text: "m2", Timestamp: 2})
	h.append(StoredMessage{From: "a", Text: "m3", Timestamp: 3})

	got := h.snapshot()
	if len(got) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(got))
	}
	if got[0].Text != "m2" || got[1].Text != "m3" {
		t.Fatalf("snapshot = %v, want [m2 m3]", got)
	}
}

func TestHistoryRingZeroDepthStoresNothing(t *testing.T) {
	h := newHistoryRing(0)
	h.append(StoredMessage{Text: "m1"})
	if h.len() != 0 {
		t.Fatalf("zero-depth ring holds %d entries", h.len())
	}
}

func TestRoomReplayAfterOverflow(t *testing.T) {
	room := NewRoom(2, nil)
	dir := NewDirectory(nil)
	alice, _ := newMember(t, room, dir, "alice")

	for _, text := range []string{"m1", "m2", "m3"} {
		room.Broadcast(StoredMessage{From: "alice", Text: text, Timestamp: nowMillis()}, alice)
	}

	bob, bobT := newMember(t, room, dir, "bob")
	bobT.reset()
	room.ReplayHistory(bob)

	chats := bobT.chats()
	if len(chats) != 2 {
		t.Fatalf("replayed %d messages, want 2", len(chats))
	}
	if chats[0].Text != "m2" || chats[1].Text != "m3" {
		t.Fatalf("replay = [%s %s], want [m2 m3]", chats[0].Text, chats[1].Text)
	}
}

func TestBroadcastExcludesSenderAndUnauthenticated(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)
	alice, aliceT := newMember(t, room, dir, "alice")
	_, bobT := newMember(t, room, dir, "bob")

	// A session that joined but never authenticated must not receive.
	lurkerT := newFakeTransport()
	lurker := NewSession(lurkerT, room, dir, nil)
	room.Join(lurker)

	room.Broadcast(StoredMessage{From: "alice", Text: "hi", Timestamp: 1}, alice)

	if len(aliceT.chats()) != 0 {
		t.Error("sender must not receive its own broadcast")
	}
	if got := bobT.chats(); len(got) != 1 || got[0].Text != "hi" || got[0].From != "alice" {
		t.Errorf("bob received %v, want one chat 'hi' from alice", got)
	}
	if len(lurkerT.chats()) != 0 {
		t.Error("unauthenticated member must not receive broadcasts")
	}
}

func TestBroadcastToEmptyRoomOnlyStoresHistory(t *testing.T) {
	room := NewRoom(10, nil)
	room.Broadcast(StoredMessage{From: "alice", Text: "hi", Timestamp: 1}, nil)

	dir := NewDirectory(nil)
	bob, bobT := newMember(t, room, dir, "bob")
	bobT.reset()
	room.ReplayHistory(bob)
	if got := bobT.chats(); len(got) != 1 || got[0].Text != "hi" {
		t.Fatalf("history after empty-room broadcast = %v", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)
	alice, _ := newMember(t, room, dir, "alice")

	room.Join(alice)
	room.Join(alice)

	if got := room.ActiveNames(); got != "alice" {
		t.Fatalf("ActiveNames = %q, want %q", got, "alice")
	}

	room.Leave(alice)
	if got := room.ActiveNames(); got != "" {
		t.Fatalf("ActiveNames after leave = %q, want empty", got)
	}
}

func TestActiveNamesFormatting(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)

	if got := room.ActiveNames(); got != "" {
		t.Fatalf("empty room ActiveNames = %q", got)
	}

	newMember(t, room, dir, "alice")
	newMember(t, room, dir, "bob")

	got := room.ActiveNames()
	if got != "alice, bob" {
		t.Fatalf("ActiveNames = %q, want %q", got, "alice, bob")
	}
	if strings.HasSuffix(got, ",") || strings.HasSuffix(got, " ") {
		t.Fatalf("ActiveNames has a trailing separator: %q", got)
	}
}

func TestDisconnectMidBroadcastCompactsMembership(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)
	alice, _ := newMember(t, room, dir, "alice")
	_, bobT := newMember(t, room, dir, "bob")
	_, carolT := newMember(t, room, dir, "carol")

	// Bob's connection breaks; the next delivery to him fails and his
	// session closes itself, nested inside the broadcast traversal.
	bobT.failNextSends()

	room.Broadcast(StoredMessage{From: "alice", Text: "hi", Timestamp: 1}, alice)

	if got := carolT.chats(); len(got) != 1 {
		t.Fatalf("carol received %d chats, want 1: one failure must not abort the rest", len(got))
	}
	if got := room.ActiveNames(); got != "alice, carol" {
		t.Fatalf("ActiveNames after dead member = %q, want %q", got, "alice, carol")
	}
	if dir.IsActive("bob") {
		t.Error("bob should be logged out after his session closed")
	}
}

func TestReplayStopsWhenReceiverDies(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)
	for _, text := range []string{"m1", "m2"} {
		room.Broadcast(StoredMessage{From: "x", Text: text, Timestamp: 1}, nil)
	}
	bob, bobT := newMember(t, room, dir, "bob")
	bobT.reset()
	bobT.failNextSends()

	// Must not panic; the dead receiver is simply dropped.
	room.ReplayHistory(bob)
	if bob.Alive() {
		t.Error("session should close after a failed replay delivery")
	}
}

func TestBroadcastSkipsClosedSessions(t *testing.T) {
	room := NewRoom(10, nil)
	dir := NewDirectory(nil)
	alice, _ := newMember(t, room, dir, "alice")
	bob, bobT := newMember(t, room, dir, "bob")

	bob.Close()
	room.Broadcast(StoredMessage{From: "alice", Text: "hi", Timestamp: 1}, alice)

	if len(bobT.chats()) != 0 {
		t.Error("closed session must not receive broadcasts")
	}
	if got := room.ActiveNames(); got != "alice" {
		t.Fatalf("ActiveNames = %q, want %q", got, "alice")
	}
}
