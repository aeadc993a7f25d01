package dgt

import (
	"context"
	"fmt"

	"github.com/danmuck/dgtctl/internal/board"
	"github.com/danmuck/dgtctl/internal/protocol"
	"github.com/danmuck/dgtctl/internal/protocol/frame"
	"github.com/danmuck/dgtctl/internal/protocol/session"
)

func (c *Connection) live() (*session.Session, error) {
	if c.ctx.Err() != nil {
		return nil, ErrClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil, ErrNotConnected
	}
	return c.sess, nil
}

// Query sends cmd to the connected board and waits for the reply tagged tag.
func (c *Connection) Query(ctx context.Context, cmd []byte, tag protocol.ReplyTag) (protocol.Message, error) {
	sess, err := c.live()
	if err != nil {
		return nil, err
	}
	return sess.Query(ctx, cmd, tag)
}

// Send writes cmd without waiting for a reply.
func (c *Connection) Send(ctx context.Context, cmd []byte) error {
	sess, err := c.live()
	if err != nil {
		return err
	}
	return sess.Send(ctx, cmd)
}

func (c *Connection) GetVersion(ctx context.Context) (protocol.Version, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdSendVersion), protocol.TagVersion)
	if err != nil {
		return protocol.Version{}, err
	}
	v, ok := msg.(protocol.VersionReply)
	if !ok {
		return protocol.Version{}, unexpected(msg)
	}
	return v.Version, nil
}

// GetBoard asks for a fresh board dump.
func (c *Connection) GetBoard(ctx context.Context) (board.Board, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdSendBoard), protocol.TagBoard)
	if err != nil {
		return board.Board{}, err
	}
	d, ok := msg.(protocol.BoardDump)
	if !ok {
		return board.Board{}, unexpected(msg)
	}
	return d.Board, nil
}

func (c *Connection) GetSerialNumber(ctx context.Context) (string, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdReturnSerialNr), protocol.TagSerialNumber)
	if err != nil {
		return "", err
	}
	v, ok := msg.(protocol.SerialNumber)
	if !ok {
		return "", unexpected(msg)
	}
	return v.Value, nil
}

func (c *Connection) GetLongSerialNumber(ctx context.Context) (string, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdReturnLongSerialNr), protocol.TagLongSerialNumber)
	if err != nil {
		return "", err
	}
	v, ok := msg.(protocol.LongSerialNumber)
	if !ok {
		return "", unexpected(msg)
	}
	return v.Value, nil
}

func (c *Connection) GetBatteryStatus(ctx context.Context) (string, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdSendBatteryStatus), protocol.TagBatteryStatus)
	if err != nil {
		return "", err
	}
	v, ok := msg.(protocol.BatteryStatus)
	if !ok {
		return "", unexpected(msg)
	}
	return v.Value, nil
}

func (c *Connection) GetTrademark(ctx context.Context) (string, error) {
	msg, err := c.Query(ctx, frame.Command(protocol.CmdSendTrademark), protocol.TagTrademark)
	if err != nil {
		return "", err
	}
	v, ok := msg.(protocol.Trademark)
	if !ok {
		return "", unexpected(msg)
	}
	return v.Value, nil
}

func unexpected(msg protocol.Message) error {
	return fmt.Errorf("%w: %T", ErrUnexpected, msg)
}
