// Package wire implements the chat protocol's binary frame format: a
// 4-byte big-endian length prefix followed by one proto-wire encoded
// message. Exactly one union variant is populated per frame.
package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Union field numbers. One top-level field per frame.
const (
	fieldCommand   = 1
	fieldChat      = 2
	fieldAuth      = 3
	fieldUsers     = 4
	fieldHistory   = 5
	fieldHeartbeat = 6
)

var (
	ErrMalformed     = errorString("malformed message")
	ErrFrameTooLarge = errorString("frame length exceeds limit")
	ErrEmptyMessage  = errorString("no message variant set")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// Command carries the raw text of a slash-free command line.
type Command struct {
	Cmd string
}

// Chat is a chat message. Clients send only Text; the server fills From
// and Timestamp (milliseconds since epoch) before fan-out.
type Chat struct {
	From      string
	Text      string
	Timestamp int64
}

// Auth reports the outcome of a register/login attempt or an
// authorization failure.
type Auth struct {
	Success bool
	Message string
}

// Users lists display names of active users.
type Users struct {
	Names []string
}

// History carries stored chat messages, oldest first.
type History struct {
	Messages []Chat
}

// Heartbeat is echoed by the server with its own timestamp.
type Heartbeat struct {
	Timestamp int64
}

// Message is the frame payload: a tagged union with exactly one variant
// non-nil.
type Message struct {
	Command   *Command
	Chat      *Chat
	Auth      *Auth
	Users     *Users
	History   *History
	Heartbeat *Heartbeat
}

// Marshal encodes the populated variant as a proto-wire body.
// It fails with ErrEmptyMessage if no variant is set.
func Marshal(m Message) ([]byte, error) {
	switch {
	case m.Command != nil:
		return wrap(fieldCommand, appendCommand(nil, m.Command)), nil
	case m.Chat != nil:
		return wrap(fieldChat, appendChat(nil, m.Chat)), nil
	case m.Auth != nil:
		return wrap(fieldAuth, appendAuth(nil, m.Auth)), nil
	case m.Users != nil:
		return wrap(fieldUsers, appendUsers(nil, m.Users)), nil
	case m.History != nil:
		return wrap(fieldHistory, appendHistory(nil, m.History)), nil
	case m.Heartbeat != nil:
		return wrap(fieldHeartbeat, appendHeartbeat(nil, m.Heartbeat)), nil
	}
	return nil, ErrEmptyMessage
}

func wrap(num protowire.Number, body []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// Unmarshal decodes a frame body. It fails with ErrMalformed on
// undecodable bytes, an unknown union tag, or an empty union. When a
// peer repeats union fields the last one wins, matching proto oneof
// semantics.
func Unmarshal(b []byte) (Message, error) {
	var m Message
	seen := false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 || typ != protowire.BytesType {
			return Message{}, ErrMalformed
		}
		b = b[n:]
		body, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return Message{}, ErrMalformed
		}
		b = b[n:]

		var err error
		m = Message{}
		switch num {
		case fieldCommand:
			m.Command, err = parseCommand(body)
		case fieldChat:
			m.Chat, err = parseChat(body)
		case fieldAuth:
			m.Auth, err = parseAuth(body)
		case fieldUsers:
			m.Users, err = parseUsers(body)
		case fieldHistory:
			m.History, err = parseHistory(body)
		case fieldHeartbeat:
			m.Heartbeat, err = parseHeartbeat(body)
		default:
			return Message{}, ErrMalformed
		}
		if err != nil {
			return Message{}, err
		}
		seen = true
	}
	if !seen {
		return Message{}, ErrMalformed
	}
	return m, nil
}

func appendCommand(b []byte, c *Command) []byte {
	if c.Cmd != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, c.Cmd)
	}
	return b
}

func appendChat(b []byte, c *Chat) []byte {
	if c.From != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, c.From)
	}
	if c.Text != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, c.Text)
	}
	if c.Timestamp != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.Timestamp))
	}
	return b
}

func appendAuth(b []byte, a *Auth) []byte {
	if a.Success {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if a.Message != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, a.Message)
	}
	return b
}

func appendUsers(b []byte, u *Users) []byte {
	for _, name := range u.Names {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	return b
}

func appendHistory(b []byte, h *History) []byte {
	for i := range h.Messages {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, appendChat(nil, &h.Messages[i]))
	}
	return b
}

func appendHeartbeat(b []byte, h *Heartbeat) []byte {
	if h.Timestamp != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(h.Timestamp))
	}
	return b
}

// fieldIter walks the fields of one embedded message, handing each
// recognized field to fn and skipping the rest.
func fieldIter(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ErrMalformed
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ErrMalformed
			}
		}
		b = b[n:]
	}
	return nil
}

func parseCommand(b []byte) (*Command, error) {
	c := &Command{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			c.Cmd = s
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parseChat(b []byte) (*Chat, error) {
	c := &Chat{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			c.From = s
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			c.Text = s
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			c.Timestamp = int64(v)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parseAuth(b []byte) (*Auth, error) {
	a := &Auth{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			a.Success = v != 0
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			a.Message = s
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func parseUsers(b []byte) (*Users, error) {
	u := &Users{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			u.Names = append(u.Names, s)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func parseHistory(b []byte) (*History, error) {
	h := &History{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			c, err := parseChat(body)
			if err != nil {
				return 0, err
			}
			h.Messages = append(h.Messages, *c)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func parseHeartbeat(b []byte) (*Heartbeat, error) {
	h := &Heartbeat{}
	err := fieldIter(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, ErrMalformed
			}
			h.Timestamp = int64(v)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}
