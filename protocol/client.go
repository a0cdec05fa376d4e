package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultAckTimeout bounds how long Send waits for the firmware's ACK
const DefaultAckTimeout = 2 * time.Second

// ErrClosed is returned once the client has been closed
var ErrClosed = errors.New("client closed")

// Response is a decoded firmware-to-host message
type Response struct {
	ID   uint16
	Args []byte
}

// Client is the host end of the link. It sends one command frame at a
// time, waits for its ACK, and queues response frames for Receive.
type Client struct {
	port io.ReadWriteCloser

	sendMu sync.Mutex
	seq    uint8

	acks      chan uint8
	responses chan Response

	stop     chan struct{}
	done     chan struct{}
	closeErr error
	once     sync.Once

	AckTimeout time.Duration
}

// NewClient starts reading from port
func NewClient(port io.ReadWriteCloser) *Client {
	c := &Client{
		port:       port,
		seq:        SeqDest,
		acks:       make(chan uint8, 4),
		responses:  make(chan Response, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		AckTimeout: DefaultAckTimeout,
	}
	go c.readLoop()
	return c
}

// Send frames one command and waits for it to be acknowledged. A NAK
// carrying a different sequence makes the client adopt it and resend once.
func (c *Client) Send(cmdID uint16, args func(output OutputBuffer)) error {
	payload := NewScratchOutput()
	EncodeVLQUint(payload, uint32(cmdID))
	if args != nil {
		args(payload)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	for attempt := 0; ; attempt++ {
		frame, err := AppendFrame(nil, c.seq, payload.Result())
		if err != nil {
			return err
		}
		if _, err := c.port.Write(frame); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		ackSeq, err := c.waitAck()
		if err != nil {
			return err
		}
		if ackSeq == NextSeq(c.seq) {
			c.seq = ackSeq
			return nil
		}
		if attempt > 0 {
			return fmt.Errorf("sequence mismatch: sent 0x%02x, firmware expects 0x%02x", c.seq, ackSeq)
		}
		c.seq = ackSeq
	}
}

func (c *Client) waitAck() (uint8, error) {
	timer := time.NewTimer(c.AckTimeout)
	defer timer.Stop()
	select {
	case seq := <-c.acks:
		return seq, nil
	case <-timer.C:
		return 0, fmt.Errorf("no ACK after %v", c.AckTimeout)
	case <-c.stop:
		return 0, ErrClosed
	}
}

// Receive returns the next response frame
func (c *Client) Receive(timeout time.Duration) (Response, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-c.responses:
		return r, nil
	case <-timer.C:
		return Response{}, fmt.Errorf("no response after %v", timeout)
	case <-c.stop:
		return Response{}, ErrClosed
	}
}

// ReceiveID returns the next response with the given ID, discarding others
func (c *Client) ReceiveID(id uint16, timeout time.Duration) (Response, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Response{}, fmt.Errorf("no response %d after %v", id, timeout)
		}
		r, err := c.Receive(remaining)
		if err != nil {
			return Response{}, err
		}
		if r.ID == id {
			return r, nil
		}
	}
}

// Close stops the reader and closes the port
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.stop)
		c.closeErr = c.port.Close()
		<-c.done
	})
	return c.closeErr
}

func (c *Client) readLoop() {
	defer close(c.done)
	fifo := NewFifoBuffer(4 * FrameMax)
	buf := make([]byte, FrameMax)
	for {
		n, err := c.port.Read(buf[:min(len(buf), fifo.Free())])
		if n > 0 {
			fifo.Write(buf[:n])
			c.drain(fifo)
		}
		if err != nil {
			select {
			case <-c.stop:
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (c *Client) drain(fifo *FifoBuffer) {
	for !fifo.IsEmpty() {
		f, n, err := ScanFrame(fifo.Data())
		if err == ErrNeedMore {
			fifo.Pop(n)
			if fifo.Free() == 0 {
				// cannot complete; drop to the next frame boundary
				fifo.Pop(Resync(fifo.Data()))
			}
			return
		}
		if err != nil {
			fifo.Pop(Resync(fifo.Data()))
			continue
		}
		fifo.Pop(n)
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f Frame) {
	if len(f.Payload) == 0 {
		select {
		case c.acks <- f.Seq:
		default:
		}
		return
	}
	payload := append([]byte(nil), f.Payload...)
	id, err := DecodeVLQUint(&payload)
	if err != nil {
		return
	}
	r := Response{ID: uint16(id), Args: payload}
	select {
	case c.responses <- r:
	default:
		// full: drop the oldest
		select {
		case <-c.responses:
		default:
		}
		c.responses <- r
	}
}
