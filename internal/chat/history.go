package chat

// StoredMessage is one history entry, immutable once created.
// Timestamp is milliseconds since epoch.
type StoredMessage struct {
	From      string
	Text      string
	Timestamp int64
}

// historyRing is a fixed-capacity FIFO of stored messages. Appending
// beyond capacity evicts the oldest entry.
type historyRing struct {
	buf  []StoredMessage
	head int
	size int
}

func newHistoryRing(capacity int) *historyRing {
	if capacity < 0 {
		capacity = 0
	}
	return &historyRing{buf: make([]StoredMessage, capacity)}
}

func (h *historyRing) append(m StoredMessage) {
	if len(h.buf) == 0 {
		return
	}
	tail := (h.head + h.size) % len(h.buf)
	h.buf[tail] = m
	if h.size < len(h.buf) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
}

// snapshot returns the stored messages oldest first.
func (h *historyRing) snapshot() []StoredMessage {
	out := make([]StoredMessage, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.buf[(h.head+i)%len(h.buf)])
	}
	return out
}

func (h *historyRing) len() int { return h.size }
