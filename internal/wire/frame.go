package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameBody caps the declared body length so a hostile or corrupted
// peer cannot force an unbounded allocation.
const MaxFrameBody = 10 << 20

// Encode marshals m with its 4-byte big-endian length prefix.
func Encode(m Message) ([]byte, error) {
	body, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	packet := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(packet, uint32(len(body)))
	copy(packet[4:], body)
	return packet, nil
}

// WriteFrame writes one encoded frame to w.
func WriteFrame(w io.Writer, m Message) error {
	packet, err := Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(packet); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Reader decodes consecutive frames from a stream.
type Reader struct {
	r      io.Reader
	header [4]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFrame blocks until one full frame is available and decodes it.
// A declared length of zero or above MaxFrameBody is rejected before
// any body allocation.
func (r *Reader) ReadFrame() (Message, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(r.header[:])
	if length == 0 {
		return Message{}, ErrMalformed
	}
	if length > MaxFrameBody {
		return Message{}, ErrFrameTooLarge
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return Message{}, fmt.Errorf("read frame body: %w", err)
	}
	return Unmarshal(body)
}
