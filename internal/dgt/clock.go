package dgt

import (
	"context"
	"math"
	"time"

	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
	"github.com/danmuck/dgtctl/internal/protocol/session"
)

const (
	beepInterval = 64 * time.Millisecond
	maxBeep      = 10 * time.Second

	xlDisplay    = 6
	d3000Display = 8
)

// GetClockVersion asks the attached clock for its firmware version. The
// answer is cached until the board disconnects.
func (c *Connection) GetClockVersion(ctx context.Context) (protocol.Version, error) {
	sess, err := c.live()
	if err != nil {
		return protocol.Version{}, err
	}
	msg, err := sess.Query(ctx, frame.ClockCommand(protocol.ClockSendVersion), protocol.TagClockVersion)
	if err != nil {
		return protocol.Version{}, err
	}
	ack, ok := msg.(protocol.ClockAck)
	if !ok {
		return protocol.Version{}, unexpected(msg)
	}
	c.cacheClockVersion(sess, ack.Version)
	return ack.Version, nil
}

// ClockBeep sounds the clock for d, at most 10s, in 64ms steps, and waits
// for the clock to acknowledge.
func (c *Connection) ClockBeep(ctx context.Context, d time.Duration) error {
	sess, err := c.live()
	if err != nil {
		return err
	}
	intervals := beepIntervals(d)

	c.clockMu.Lock()
	defer c.clockMu.Unlock()
	wait := time.Duration(intervals)*beepInterval + c.opts.cfg.QueryTimeout
	msg, err := sess.QueryWithin(ctx, frame.ClockCommand(protocol.ClockBeep, intervals), protocol.TagClockAck, wait)
	if err != nil {
		return err
	}
	if _, ok := msg.(protocol.ClockAck); !ok {
		return unexpected(msg)
	}
	return nil
}

// ClockText shows text on the clock. xl is used on a DGT XL (6 characters);
// d3000 on a DGT 3000 (8 characters) and defaults to xl when empty.
func (c *Connection) ClockText(ctx context.Context, xl, d3000 string) error {
	if d3000 == "" {
		d3000 = xl
	}
	if !printable(xl) || !printable(d3000) {
		return ErrClockText
	}
	sess, err := c.live()
	if err != nil {
		return err
	}
	version, ok := c.cachedClockVersion(sess)
	if !ok {
		if version, err = c.GetClockVersion(ctx); err != nil {
			return err
		}
	}

	c.clockMu.Lock()
	defer c.clockMu.Unlock()
	return sess.Send(ctx, clockTextCommand(version, xl, d3000))
}

func clockTextCommand(version protocol.Version, xl, d3000 string) []byte {
	if version.Major == 2 {
		t := centerText(d3000, d3000Display)
		body := append([]byte{protocol.ClockASCII}, t...)
		body = append(body, 0x01)
		return frame.ClockCommand(body...)
	}
	t := centerText(xl, xlDisplay)
	return frame.ClockCommand(
		protocol.ClockDisplay,
		t[2], t[1], t[0], t[5], t[4], t[3],
		0x00, 0x01,
	)
}

// centerText pads text to size with the extra space on the left when the
// padding is odd, then cuts it to size.
func centerText(text string, size int) []byte {
	b := []byte(text)
	if half := (len(b) + size) / 2; len(b) < half {
		b = append(b, spaces(half-len(b))...)
	}
	if len(b) < size {
		b = append(spaces(size-len(b)), b...)
	}
	return b[:size]
}

func spaces(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	return out
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func beepIntervals(d time.Duration) byte {
	if d > maxBeep {
		d = maxBeep
	}
	n := int(math.Round(float64(d) / float64(beepInterval)))
	if n < 1 {
		n = 1
	}
	return byte(n)
}

func (c *Connection) cachedClockVersion(sess *session.Session) (protocol.Version, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.clockVersion == nil || c.sess != sess {
		return protocol.Version{}, false
	}
	return *c.clockVersion, true
}

// cacheClockVersion stores v for sess, or for the live session when sess is nil.
func (c *Connection) cacheClockVersion(sess *session.Session, v protocol.Version) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || (sess != nil && c.sess != sess) {
		return
	}
	c.clockVersion = &v
}
