package chat

import "bufio"

// writeLoop drains the outbound queue through a buffered writer,
// flushing once the queue runs dry. The first write error closes the
// transport, which in turn surfaces as a read error on the session's
// loop and drives teardown.
func (t *connTransport) writeLoop() {
	w := bufio.NewWriter(t.conn)
	for {
		select {
		case packet := <-t.out:
			if _, err := w.Write(packet); err != nil {
				t.Close()
				return
			}
			if len(t.out) == 0 {
				if err := w.Flush(); err != nil {
					t.Close()
					return
				}
			}
		case <-t.done:
			return
		}
	}
}
