package frame

import "errors"

// Decoder splits a raw board byte stream into frames. It keeps unconsumed
// bytes between Feed calls, so reads may be split anywhere.
type Decoder struct {
	limits  Limits
	buf     []byte
	dropped int64
	// offset of buf[0] in the stream
	offset int64
}

func NewDecoder(limits Limits) *Decoder {
	if limits.MaxPayloadBytes <= 0 {
		limits.MaxPayloadBytes = DefaultLimits().MaxPayloadBytes
	}
	return &Decoder{limits: limits}
}

// Feed appends p and returns every frame it completes. A non-nil error joins
// the ProtocolErrors for bytes dropped during resync; the returned frames are
// still valid.
func (d *Decoder) Feed(p []byte) ([]Frame, error) {
	d.buf = append(d.buf, p...)

	var (
		frames []Frame
		errs   []error
	)
	for len(d.buf) >= HeaderLen {
		payloadLen, err := d.checkHeader(d.buf[0], d.buf[1], d.buf[2])
		if err != nil {
			errs = append(errs, &ProtocolError{Offset: d.offset, Byte: d.buf[0], Err: err})
			d.consume(1)
			d.dropped++
			continue
		}
		total := HeaderLen + payloadLen
		if len(d.buf) < total {
			break
		}
		payload := make([]byte, payloadLen)
		copy(payload, d.buf[HeaderLen:total])
		frames = append(frames, Frame{Type: d.buf[0], Payload: payload})
		d.consume(total)
	}

	// A lone leading byte that can never start a frame is dropped right away.
	if len(d.buf) > 0 && d.buf[0]&MessageBit == 0 {
		for len(d.buf) > 0 && d.buf[0]&MessageBit == 0 {
			errs = append(errs, &ProtocolError{Offset: d.offset, Byte: d.buf[0], Err: ErrInvalidType})
			d.consume(1)
			d.dropped++
		}
	}
	return frames, errors.Join(errs...)
}

// Buffered reports how many bytes are held waiting for the rest of a frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Dropped reports how many bytes have been discarded for resync.
func (d *Decoder) Dropped() int64 {
	return d.dropped
}

func (d *Decoder) checkHeader(msgType, hi, lo byte) (int, error) {
	if msgType&MessageBit == 0 {
		return 0, ErrInvalidType
	}
	if hi&0x80 != 0 || lo&0x80 != 0 {
		return 0, ErrInvalidLength
	}
	total := DeclaredLen(hi, lo)
	if total < HeaderLen {
		return 0, ErrLengthTooSmall
	}
	payloadLen := total - HeaderLen
	if payloadLen > d.limits.MaxPayloadBytes {
		return 0, ErrPayloadTooLarge
	}
	if d.limits.Expected != nil {
		if want, ok := d.limits.Expected(msgType); ok && want != payloadLen {
			return 0, ErrLengthMismatch
		}
	}
	return payloadLen, nil
}

func (d *Decoder) consume(n int) {
	d.offset += int64(n)
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}
