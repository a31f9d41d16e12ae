package mailbox

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// FetchedMessage is one complete raw message delivered by the fetch stream.
// The fetch loop owns it exclusively until handed off for parsing; Raw is a
// private copy, safe to process without reference to the connection.
type FetchedMessage struct {
	SeqNum uint32
	Raw    []byte
}

// FetchCursor iterates a single long-lived fetch stream. Messages may
// arrive in any order relative to the requested sequence numbers; each
// carries its own SeqNum for traceability.
type FetchCursor struct {
	cmd     *imapclient.FetchCommand
	section *imap.FetchItemBodySection
}

// Fetch requests the full bodies of the given messages. An empty set
// yields a cursor that is immediately exhausted.
func (s *Session) Fetch(seqNums []uint32) *FetchCursor {
	if len(seqNums) == 0 {
		return &FetchCursor{}
	}
	section := &imap.FetchItemBodySection{Peek: true}
	opts := &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{section},
	}
	cmd := s.client.Fetch(imap.SeqSetNum(seqNums...), opts)
	return &FetchCursor{cmd: cmd, section: section}
}

// Next blocks until the next complete message body has been accumulated,
// returning nil when the stream ends. Partial chunks are concatenated
// internally; callers only ever see whole messages.
func (c *FetchCursor) Next() (*FetchedMessage, error) {
	if c.cmd == nil {
		return nil, nil
	}
	for {
		msg := c.cmd.Next()
		if msg == nil {
			return nil, nil
		}
		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("collecting message %d: %w", msg.SeqNum, err)
		}
		raw := buf.FindBodySection(c.section)
		if raw == nil {
			// Server answered without the requested section; skip.
			continue
		}
		return &FetchedMessage{SeqNum: buf.SeqNum, Raw: raw}, nil
	}
}

// Close releases the fetch command. Must be called once iteration is done.
func (c *FetchCursor) Close() error {
	if c.cmd == nil {
		return nil
	}
	return c.cmd.Close()
}
