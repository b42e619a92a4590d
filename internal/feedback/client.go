package feedback

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Client reads the feedback channel of a motion controller. One connection
// carries the event stream for one motion group.
type Client struct {
	address   string
	timeout   time.Duration
	mu        sync.Mutex
	conn      net.Conn
	connected bool
	cmdSeq    uint32
}

func NewClient(address string, timeout time.Duration) *Client {
	return &Client{
		address: address,
		timeout: timeout,
	}
}

// Connect dials the controller's feedback port.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	conn, err := net.DialTimeout("tcp", c.address, c.timeout)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.conn = conn
	c.connected = true

	return nil
}

// Close terminates the connection. A closed client cannot be reused; the
// feedback stream is not restartable.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	err := c.conn.Close()
	c.connected = false
	c.conn = nil

	return err
}

// ReadFrame blocks until the next complete frame arrives and verifies its
// checksum. The controller decides cadence; no read deadline is applied
// between frames.
func (c *Client) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil, fmt.Errorf("not connected")
	}

	return readFrame(conn)
}

// readFrame decodes one frame from the wire: fixed header, then the payload
// length the header announced, then the CRC trailer.
func readFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	frame, length, err := DecodeHeader(header)
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	if length > 0 {
		frame.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, frame.Payload); err != nil {
			return nil, fmt.Errorf("payload read failed: %w", err)
		}
	}

	trailer := make([]byte, crcSize)
	if _, err := io.ReadFull(r, trailer); err != nil {
		return nil, fmt.Errorf("crc read failed: %w", err)
	}

	if err := frame.VerifyCRC(binary.BigEndian.Uint32(trailer)); err != nil {
		return nil, err
	}

	return frame, nil
}
