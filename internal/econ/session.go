// Package econ implements the Console Session and Console Supervisor: a
// stateful TCP session against a line-oriented game server admin console
// (the "external console" / ECON), and the reconnect/pending-queue logic
// layered over it.
package econ

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/teeworlds-nats/bridge/internal/otel"
	"go.opentelemetry.io/otel/trace"
)

// State is one of the Console Session's lifecycle states. There is no
// Ready->Authenticating edge; a new Session is constructed on reconnect.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultAuthMessage is the literal required to appear as a substring
// of a server line to mark authentication success, unless the config
// overrides it.
const DefaultAuthMessage = "Authentication successful"

// dialer is satisfied by net.Dialer; overridable in tests.
type dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Session owns exactly one TCP connection to an external console and
// exposes recv_line/send_line against the authenticated connection.
type Session struct {
	conn  net.Conn
	r     *bufio.Reader
	state State
	dial  dialer

	lineTerminator byte

	// Tracer instruments Connect/TryAuth with client spans when set by
	// the role wiring; a nil Tracer is treated as a no-op.
	Tracer trace.Tracer
}

// NewSession constructs a Session in StateDisconnected. Tests may inject
// a custom dialer; production callers should leave it nil to use
// net.Dialer with a 30s connection timeout, the same budget the broker
// connect path uses.
func NewSession(d dialer) *Session {
	if d == nil {
		d = &net.Dialer{Timeout: 30 * time.Second}
	}
	return &Session{state: StateDisconnected, dial: d, lineTerminator: '\n'}
}

// State reports the Session's current state.
func (s *Session) State() State { return s.state }

// Connect resolves addr (already templated by the caller) and opens a TCP
// socket. It transitions Disconnected -> Connecting -> Authenticating once
// the socket is open; it does not itself wait for the server's auth prompt
// (TryAuth does, since not all consoles prompt before accepting the
// password).
func (s *Session) Connect(ctx context.Context, addr string) error {
	ctx, span := otel.StartClientSpan(ctx, s.Tracer, "econ.connect", otel.AttrConsoleAddr.String(addr))
	defer span.End()

	s.state = StateConnecting
	conn, err := s.dial.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.state = StateFailed
		span.RecordError(err)
		return &TransportError{Op: "connect", Err: err}
	}
	s.conn = conn
	s.r = bufio.NewReader(conn)
	s.state = StateAuthenticating
	return nil
}

// TryAuth writes password+terminator, then reads lines until either
// authMessage is observed as a substring of a server line (-> Ready,
// true), the server closes (-> Failed, false), or a transport error
// arises (-> Failed, err). An empty authMessage defaults to
// DefaultAuthMessage.
func (s *Session) TryAuth(ctx context.Context, password, authMessage string) (bool, error) {
	_, span := otel.StartClientSpan(ctx, s.Tracer, "econ.try_auth")
	defer span.End()

	if authMessage == "" {
		authMessage = DefaultAuthMessage
	}
	if err := s.writeLine(password); err != nil {
		s.state = StateFailed
		span.RecordError(err)
		return false, err
	}
	for {
		line, err := s.readLine()
		if err != nil {
			s.state = StateFailed
			if errors.Is(err, io.EOF) {
				// Server closed without ever sending authMessage: rejected,
				// not a transport failure.
				return false, nil
			}
			span.RecordError(err)
			return false, err
		}
		if strings.Contains(*line, authMessage) {
			s.state = StateReady
			return true, nil
		}
	}
}

// RecvLine returns the next complete console line with its terminator
// stripped. When blocking is false and no line is currently buffered, it
// returns (nil, nil) promptly rather than waiting on the socket. Any
// transport error, including a clean close encountered while blocked on
// the socket, transitions the Session to StateFailed.
func (s *Session) RecvLine(blocking bool) (*string, error) {
	if !blocking && s.r.Buffered() == 0 {
		return nil, nil
	}
	line, err := s.readLine()
	if err != nil {
		s.state = StateFailed
	}
	return line, err
}

// SendLine writes cmd+terminator. Only valid in StateReady; this method
// does not itself gate on state — the Supervisor is responsible for only
// calling it on a Ready Session.
func (s *Session) SendLine(cmd string) error {
	if err := s.writeLine(cmd); err != nil {
		s.state = StateFailed
		return err
	}
	return nil
}

// Close releases the underlying socket.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Session) writeLine(line string) error {
	if s.conn == nil {
		return &TransportError{Op: "write", Err: fmt.Errorf("no connection")}
	}
	if _, err := s.conn.Write([]byte(line + string(s.lineTerminator))); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (s *Session) readLine() (*string, error) {
	line, err := s.r.ReadString(s.lineTerminator)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}
	line = strings.TrimRight(line, "\r\n")
	return &line, nil
}
