package irc

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/proxy"

	"streambot/internal/app/domain/message"
	"streambot/internal/app/ports"
	"streambot/pkg/logger"
)

const (
	DefaultAddr = "irc.chat.twitch.tv:443"

	readBufferSize = 4096
	maxPending     = 64 * 1024
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Dialer opens the raw connection to the chat server.
type Dialer func(ctx context.Context) (net.Conn, error)

// TLSDialer dials addr over TLS, through forward when it is not nil (e.g. a SOCKS5 proxy).
func TLSDialer(addr string, forward proxy.ContextDialer) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		d := &tls.Dialer{Config: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}}
		if forward == nil {
			return d.DialContext(ctx, "tcp", addr)
		}

		raw, err := forward.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		conn := tls.Client(raw, d.Config)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, err
		}
		return conn, nil
	}
}

type Credentials struct {
	OAuth   string
	Nick    string
	Channel string
}

// Session is one chat connection: Disconnected -> Connecting -> Connected -> Disconnected.
// Reconnecting is left to the caller.
type Session struct {
	log     logger.Logger
	dial    Dialer
	creds   Credentials
	handler ports.MessageHandlerPort
	onState func(State)

	state atomic.Int32

	mu   sync.Mutex
	conn net.Conn
}

type Option func(*Session)

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

func NewSession(log logger.Logger, dial Dialer, creds Credentials, handler ports.MessageHandlerPort, opts ...Option) *Session {
	creds.OAuth = strings.TrimPrefix(creds.OAuth, "oauth:")
	creds.Nick = strings.ToLower(creds.Nick)
	creds.Channel = "#" + strings.ToLower(strings.TrimPrefix(creds.Channel, "#"))

	s := &Session{
		log:     log,
		dial:    dial,
		creds:   creds,
		handler: handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	if s.onState != nil {
		s.onState(st)
	}
}

// Connect dials the server and sends the handshake. Any failure leaves the session Disconnected.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return errors.New("session already active")
	}
	if s.onState != nil {
		s.onState(Connecting)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		s.setState(Disconnected)
		s.log.Error("Failed to connect to chat", err)
		return fmt.Errorf("dial chat: %w", err)
	}

	handshake := []string{
		"PASS oauth:" + s.creds.OAuth,
		"NICK " + s.creds.Nick,
		"JOIN " + s.creds.Channel,
		"CAP REQ :twitch.tv/commands",
		"CAP REQ :twitch.tv/tags",
	}
	for _, line := range handshake {
		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			_ = conn.Close()
			s.setState(Disconnected)
			s.log.Error("Failed to send chat handshake", err)
			return fmt.Errorf("handshake: %w", err)
		}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.setState(Connected)
	s.log.Info("Connected to chat", slog.String("channel", s.creds.Channel), slog.String("nick", s.creds.Nick))
	return nil
}

// Run consumes the connection until a read fails or returns nothing, then marks the session
// Disconnected. It never panics out to the caller.
func (s *Session) Run() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	defer s.closeConn(conn)

	buf := make([]byte, readBufferSize)
	var pending []byte

	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			if err != nil && s.State() == Connected {
				s.log.Warn("Chat connection closed", slog.String("error", err.Error()))
			}
			return
		}

		pending = append(pending, buf[:n]...)
		for {
			idx := bytes.IndexByte(pending, '\n')
			if idx == -1 {
				break
			}
			line := strings.TrimRight(string(pending[:idx]), "\r")
			pending = pending[idx+1:]
			s.handleLine(conn, line)
		}

		if len(pending) > maxPending {
			s.log.Warn("Dropping oversized partial line", slog.Int("bytes", len(pending)))
			pending = nil
		}
	}
}

func (s *Session) handleLine(conn net.Conn, line string) {
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "PING") {
		if _, err := conn.Write([]byte("PONG :tmi.twitch.tv\r\n")); err != nil {
			s.log.Warn("Failed to answer keepalive", slog.String("error", err.Error()))
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic while handling chat line", nil,
				slog.Any("panic", r), slog.String("line", line))
		}
	}()

	switch {
	case strings.Contains(line, "Login authentication failed"):
		s.log.Error("Chat login authentication failed", nil, slog.String("line", line))
	case strings.Contains(line, "Improperly formatted auth"):
		s.log.Error("Improperly formatted chat auth", nil, slog.String("line", line))
	case strings.Contains(line, "PRIVMSG"):
		msg, ok := message.ParseLine(line)
		if !ok {
			s.log.Trace("Skipping unparsable line", slog.String("line", line))
			return
		}
		message.ResolvePermissions(msg, s.creds.Channel)
		s.handler.Handle(msg)
	default:
		s.log.Trace("Chat line", slog.String("line", line))
	}
}

// Send writes one PRIVMSG to the joined channel. It is a logged no-op while not connected.
func (s *Session) Send(text string) {
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r", " "), "\n", " ")
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.State() != Connected {
		s.log.Warn("Dropping chat message, not connected", slog.String("text", text))
		return
	}

	if _, err := s.conn.Write([]byte("PRIVMSG " + s.creds.Channel + " :" + text + "\r\n")); err != nil {
		s.log.Error("Failed to send chat message", err)
	}
}

// Stop closes the connection. It is idempotent and safe to call from the handler; the receive
// loop observes the closure on its next read.
func (s *Session) Stop() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.setState(Disconnected)
}

func (s *Session) closeConn(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()

	_ = conn.Close()
	s.setState(Disconnected)
}
