package feedback

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/motionforge/motioncore/internal/execution"
	"go.uber.org/zap"
)

// FrameReader is the connection-level surface the stream drains. *Client
// implements it; tests substitute an in-memory reader.
type FrameReader interface {
	ReadFrame() (*Frame, error)
	Close() error
}

// Stream turns the framed feedback connection into an ordered, lazy sequence
// of motion events. Events are delivered in wire order; the channel closes
// when the connection ends or Stop is called. A stopped or exhausted stream
// cannot be restarted.
type Stream struct {
	reader FrameReader
	logger *zap.Logger

	events   chan execution.MotionEvent
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	lastSeq uint32
	started bool
}

func NewStream(reader FrameReader, logger *zap.Logger) *Stream {
	return &Stream{
		reader:  reader,
		logger:  logger,
		events:  make(chan execution.MotionEvent),
		stopped: make(chan struct{}),
	}
}

// Events returns the event channel. The first call starts the read loop.
func (s *Stream) Events() <-chan execution.MotionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		s.started = true
		s.wg.Add(1)
		go s.readLoop()
	}

	return s.events
}

// Stop terminates the read loop and closes the underlying connection. Safe
// to call more than once.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.reader.Close()
	})
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		s.wg.Wait()
	}
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		frame, err := s.reader.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !isStopped(s.stopped) {
				s.logger.Error("Feedback read failed", zap.Error(err))
			}
			return
		}

		s.mu.Lock()
		if s.lastSeq != 0 && frame.Sequence != s.lastSeq+1 {
			s.logger.Warn("Feedback frames dropped",
				zap.Uint32("expected", s.lastSeq+1),
				zap.Uint32("received", frame.Sequence))
		}
		s.lastSeq = frame.Sequence
		s.mu.Unlock()

		event, err := frame.Event()
		if err != nil {
			// A malformed frame is a controller anomaly, not an abort.
			s.logger.Warn("Discarding malformed feedback frame",
				zap.Uint32("sequence", frame.Sequence),
				zap.Error(err))
			continue
		}

		select {
		case s.events <- event:
		case <-s.stopped:
			return
		}
	}
}

func isStopped(stopped <-chan struct{}) bool {
	select {
	case <-stopped:
		return true
	default:
		return false
	}
}
