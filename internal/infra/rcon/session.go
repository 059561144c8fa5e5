// Package rcon manages the persistent authenticated command session to the
// game server.
//
// Session lifecycle:
//  1. Dial TCP and send the password as a single auth line
//  2. Read one status line — "OK" means authenticated
//  3. Each command is one line write; response lines are logged, not parsed
//  4. On transport drop → reconnect after a fixed delay, forever
//
// Send is fail-fast: while the session is connecting or waiting to
// reconnect, callers get ErrNotAuthenticated immediately. The fulfillment
// coordinator treats any Send error as "delivery not confirmed" and
// compensates; the session never buffers commands on its behalf.
package rcon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/quartermaster-shop/quartermaster/internal/domain"
	"github.com/quartermaster-shop/quartermaster/internal/infra/observability"
)

// authOK is the status line the server sends on successful authentication.
const authOK = "OK"

// Config controls the session's connection behavior.
type Config struct {
	Enabled        bool          // feature toggle; false pins the session to Disabled
	Addr           string        // host:port of the game server's rcon listener
	Password       string        // auth secret, sent as the first line
	ReconnectDelay time.Duration // fixed backoff between connect attempts (default: 3s)
	DialTimeout    time.Duration // TCP dial timeout (default: 5s)
	AuthTimeout    time.Duration // handshake response timeout (default: 5s)
	WriteTimeout   time.Duration // per-command write timeout (default: 5s)
}

// DefaultConfig returns conservative session defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay: 3 * time.Second,
		DialTimeout:    5 * time.Second,
		AuthTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Dialer opens the transport. Injected so tests can use net.Pipe.
type Dialer func(addr string, timeout time.Duration) (net.Conn, error)

func netDialer(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

// Session is the process-wide remote command session. All accounts share
// one session; Send calls from concurrent fulfillments interleave safely
// because each is a single locked line write.
type Session struct {
	mu         sync.Mutex
	config     Config
	dial       Dialer
	state      domain.SessionState
	conn       net.Conn
	dropped    chan struct{} // closed by the reader when the transport dies
	reconnects int64
}

// New creates a session. It starts Disabled when the feature is off and
// Disconnected otherwise; call Start to begin connecting.
func New(cfg Config) *Session {
	s := &Session{
		config: cfg,
		dial:   netDialer,
		state:  domain.SessionDisconnected,
	}
	if !cfg.Enabled {
		s.state = domain.SessionDisabled
	}
	observability.SessionState.Set(float64(s.state))
	return s
}

// SetDialer overrides the transport dialer. Must be called before Start.
func (s *Session) SetDialer(d Dialer) { s.dial = d }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reconnects returns the number of connect attempts after the first.
func (s *Session) Reconnects() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// Start runs the connect/reconnect loop. Blocks until ctx is cancelled.
// Disabled sessions return immediately; Disabled is terminal.
func (s *Session) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Printf("rcon: disabled, remote delivery unavailable")
		return nil
	}

	first := true
	for {
		select {
		case <-ctx.Done():
			s.teardown(domain.SessionDisconnected)
			return nil
		default:
		}

		if !first {
			s.mu.Lock()
			s.reconnects++
			s.mu.Unlock()
			observability.SessionReconnects.Inc()
		}
		first = false

		dropped, err := s.connect()
		if err != nil {
			log.Printf("rcon: connect %s failed: %v (retrying in %s)", s.config.Addr, err, s.config.ReconnectDelay)
			s.setState(domain.SessionReconnectPending)
			if !sleepCtx(ctx, s.config.ReconnectDelay) {
				s.teardown(domain.SessionDisconnected)
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			s.teardown(domain.SessionDisconnected)
			return nil
		case <-dropped:
			log.Printf("rcon: connection lost, reconnecting in %s", s.config.ReconnectDelay)
			s.teardown(domain.SessionReconnectPending)
			if !sleepCtx(ctx, s.config.ReconnectDelay) {
				s.teardown(domain.SessionDisconnected)
				return nil
			}
		}
	}
}

// connect performs one dial + auth handshake. At most one attempt is in
// flight at a time: only the Start loop calls it, and a request while
// already Connecting or Authenticated is a no-op.
func (s *Session) connect() (<-chan struct{}, error) {
	s.mu.Lock()
	if s.state == domain.SessionConnecting || s.state == domain.SessionAuthenticated {
		dropped := s.dropped
		s.mu.Unlock()
		return dropped, nil
	}
	s.state = domain.SessionConnecting
	s.mu.Unlock()
	observability.SessionState.Set(float64(domain.SessionConnecting))

	conn, err := s.dial(s.config.Addr, s.config.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	if err := authenticate(conn, s.config.Password, s.config.AuthTimeout); err != nil {
		conn.Close()
		return nil, err
	}

	dropped := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.dropped = dropped
	s.state = domain.SessionAuthenticated
	s.mu.Unlock()
	observability.SessionState.Set(float64(domain.SessionAuthenticated))
	log.Printf("rcon: authenticated to %s", s.config.Addr)

	go s.readLoop(conn, dropped)
	return dropped, nil
}

// authenticate sends the password line and checks the status reply.
func authenticate(conn net.Conn, password string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	conn.SetDeadline(deadline)
	defer conn.SetDeadline(time.Time{})

	if _, err := fmt.Fprintf(conn, "%s\n", password); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read auth reply: %w", err)
	}
	if strings.TrimSpace(line) != authOK {
		return fmt.Errorf("auth rejected: %q", strings.TrimSpace(line))
	}
	return nil
}

// readLoop logs server response lines and signals when the transport dies.
// Responses carry no business meaning; they exist for the operator log.
func (s *Session) readLoop(conn net.Conn, dropped chan struct{}) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		log.Printf("rcon: response: %s", scanner.Text())
	}
	close(dropped)
}

// Send transmits one command line. Fails immediately with
// ErrNotAuthenticated unless the session is currently Authenticated —
// no queuing, no waiting for reconnection.
func (s *Session) Send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionAuthenticated || s.conn == nil {
		observability.Sends.WithLabelValues("not_authenticated").Inc()
		return domain.ErrNotAuthenticated
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	_, err := fmt.Fprintf(s.conn, "%s\n", command)
	s.conn.SetWriteDeadline(time.Time{})
	if err != nil {
		// A failed write means the transport is gone. Drop the connection
		// so the Start loop schedules a reconnect; the caller compensates.
		s.conn.Close()
		s.conn = nil
		s.state = domain.SessionReconnectPending
		observability.SessionState.Set(float64(domain.SessionReconnectPending))
		observability.Sends.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("rcon send: %w", err)
	}
	observability.Sends.WithLabelValues("ok").Inc()
	return nil
}

// teardown closes the transport and records the given state.
func (s *Session) teardown(state domain.SessionState) {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.state = state
	s.mu.Unlock()
	observability.SessionState.Set(float64(state))
}

func (s *Session) setState(state domain.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	observability.SessionState.Set(float64(state))
}

// sleepCtx waits for d or context cancellation; reports false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
