package feedback

import (
	"context"
	"fmt"
	"time"
)

// Command opcodes for the outgoing direction of the controller connection.
// They share the frame layout with feedback statuses but live in a separate
// byte range so the two directions cannot be confused.
const (
	CmdStart  = 0x10
	CmdPause  = 0x11
	CmdResume = 0x12
	CmdAbort  = 0x13
)

// WriteCommand sends a command frame to the controller. The payload is
// opaque to the transport; Start carries the serialized trajectory.
func (c *Client) WriteCommand(cmd uint8, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	frame := &Frame{
		Sequence: c.cmdSeq,
		Status:   cmd,
		Payload:  payload,
	}
	c.cmdSeq++

	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}

	if _, err := c.conn.Write(frame.Encode()); err != nil {
		return fmt.Errorf("command write failed: %w", err)
	}
	return nil
}

// Link exposes the command direction of a controller connection to the
// motion layer.
type Link struct {
	client *Client
}

func NewLink(client *Client) *Link {
	return &Link{client: client}
}

// StartMotion asks the controller to begin executing the given serialized
// trajectory definition.
func (l *Link) StartMotion(ctx context.Context, definition []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.client.WriteCommand(CmdStart, definition)
}

// RequestPause asks the controller to bring the motion group to a controlled
// stop. Confirmation arrives on the feedback stream.
func (l *Link) RequestPause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.client.WriteCommand(CmdPause, nil)
}

// RequestResume asks the controller to continue a paused trajectory.
func (l *Link) RequestResume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.client.WriteCommand(CmdResume, nil)
}

// Abort tells the controller to discard the active trajectory.
func (l *Link) Abort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.client.WriteCommand(CmdAbort, nil)
}
