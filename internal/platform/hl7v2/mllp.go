package hl7v2

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MLLPStartBlock is the MLLP start-of-message byte (VT / vertical tab).
	MLLPStartBlock = 0x0B

	// MLLPEndBlock is the MLLP end-of-message byte (FS / file separator).
	MLLPEndBlock = 0x1C

	// MLLPCarriageReturn is the trailing CR after the end block.
	MLLPCarriageReturn = 0x0D

	mllpMaxMessageSize = 1 << 20
	mllpReadTimeout    = 30 * time.Second
	mllpWriteTimeout   = 10 * time.Second
)

// Handler processes one inbound message and returns the acknowledgement to
// send back, or nil to send nothing.
type Handler interface {
	HandleMessage(msg *Message) *Message
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg *Message) *Message

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg *Message) *Message {
	return f(msg)
}

// ListenerStats counts messages seen by a Listener.
type ListenerStats struct {
	Received uint64
	Answered uint64
	Rejected uint64 // frames that did not parse as HL7
}

// Listener accepts MLLP-framed HL7v2 messages over TCP.
type Listener struct {
	addr     string
	handler  Handler
	logger   zerolog.Logger
	listener net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	received atomic.Uint64
	answered atomic.Uint64
	rejected atomic.Uint64
}

// NewListener creates a listener for addr dispatching messages to h.
func NewListener(addr string, h Handler, logger zerolog.Logger) *Listener {
	return &Listener{
		addr:    addr,
		handler: h,
		logger:  logger.With().Str("component", "mllp").Logger(),
		conns:   make(map[net.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

// Start binds the address and accepts connections in the background.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("mllp: listen on %s: %w", l.addr, err)
	}
	l.listener = ln
	l.logger.Info().Str("addr", ln.Addr().String()).Msg("mllp listener started")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop()
	}()
	return nil
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines to exit.
func (l *Listener) Stop() error {
	close(l.done)

	var err error
	if l.listener != nil {
		err = l.listener.Close()
	}

	l.mu.Lock()
	for conn := range l.conns {
		conn.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info().
		Uint64("received", l.received.Load()).
		Uint64("rejected", l.rejected.Load()).
		Msg("mllp listener stopped")
	return err
}

// Addr returns the bound address, useful when started on port 0.
func (l *Listener) Addr() string {
	if l.listener != nil {
		return l.listener.Addr().String()
	}
	return l.addr
}

// Stats returns a snapshot of the message counters.
func (l *Listener) Stats() ListenerStats {
	return ListenerStats{
		Received: l.received.Load(),
		Answered: l.answered.Load(),
		Rejected: l.rejected.Load(),
	}
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			l.logger.Error().Err(err).Msg("accept failed")
			return
		}

		l.track(conn, true)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.track(conn, false)
			defer conn.Close()
			l.serve(conn)
		}()
	}
}

func (l *Listener) track(conn net.Conn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if add {
		l.conns[conn] = struct{}{}
	} else {
		delete(l.conns, conn)
	}
}

// serve reads frames from conn until it closes, idles out, or exceeds the
// size limit.
func (l *Listener) serve(conn net.Conn) {
	log := l.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)

	for {
		select {
		case <-l.done:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(mllpReadTimeout))
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if len(buf) > mllpMaxMessageSize {
				log.Warn().Int("bytes", len(buf)).Msg("frame exceeds size limit, closing connection")
				return
			}
			for {
				frame, rest, found := UnframeMessage(buf)
				if !found {
					break
				}
				buf = rest
				l.dispatch(conn, frame, log)
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && len(buf) > 0 {
				continue
			}
			return
		}
	}
}

func (l *Listener) dispatch(conn net.Conn, frame []byte, log zerolog.Logger) {
	l.received.Add(1)

	msg, err := Parse(frame)
	if err != nil {
		l.rejected.Add(1)
		log.Warn().Err(err).Msg("discarding unparseable frame")
		return
	}

	resp := l.handler.HandleMessage(msg)
	if resp == nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(mllpWriteTimeout))
	if _, err := conn.Write(FrameMessage(SerializeMessage(resp))); err != nil {
		log.Error().Err(err).Str("control_id", msg.ControlID).Msg("write ack failed")
		return
	}
	l.answered.Add(1)
}

// FrameMessage wraps raw HL7v2 bytes in MLLP framing:
//
//	<0x0B> + message + <0x1C><0x0D>
func FrameMessage(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, MLLPStartBlock)
	frame = append(frame, data...)
	frame = append(frame, MLLPEndBlock, MLLPCarriageReturn)
	return frame
}

// UnframeMessage extracts the first complete MLLP frame from data. It
// returns the payload, the bytes after the frame, and whether a complete
// frame was found.
func UnframeMessage(data []byte) (message []byte, rest []byte, found bool) {
	start := bytes.IndexByte(data, MLLPStartBlock)
	if start == -1 {
		return nil, data, false
	}

	end := bytes.Index(data[start+1:], []byte{MLLPEndBlock, MLLPCarriageReturn})
	if end == -1 {
		return nil, data, false
	}
	end += start + 1

	return data[start+1 : end], data[end+2:], true
}
