package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tOgg1/matchchat/internal/logging"
)

const (
	defaultDialTimeout       = 10 * time.Second
	defaultReconnectInterval = time.Second
	defaultReconnectMax      = 30 * time.Second
	writeTimeout             = 10 * time.Second
)

// SocketConfig configures a SocketChannel.
type SocketConfig struct {
	URL               string
	Jar               http.CookieJar
	Header            http.Header
	DialTimeout       time.Duration
	ReconnectInterval time.Duration
	ReconnectMax      time.Duration
	Logger            *zerolog.Logger
}

// SocketChannel is a Channel backed by a gorilla websocket that reconnects
// with exponential backoff until closed.
type SocketChannel struct {
	cfg      SocketConfig
	dialer   *websocket.Dialer
	registry *Registry
	logger   zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}

	writeMu sync.Mutex
}

// NewSocketChannel creates an unconnected channel.
func NewSocketChannel(cfg SocketConfig) (*SocketChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("transport: socket url required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.ReconnectMax < cfg.ReconnectInterval {
		cfg.ReconnectMax = defaultReconnectMax
		if cfg.ReconnectMax < cfg.ReconnectInterval {
			cfg.ReconnectMax = cfg.ReconnectInterval
		}
	}
	if cfg.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		cfg.Jar = jar
	}

	logger := logging.Component("transport")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "transport").Logger()
	}

	return &SocketChannel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
			Jar:              cfg.Jar,
		},
		registry: NewRegistry(),
		logger:   logger,
	}, nil
}

// Connect dials once and starts the supervisor. The first dial's error is
// returned, but the supervisor keeps retrying in the background either way.
func (s *SocketChannel) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.done != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	conn, err := s.dial(runCtx)
	if err == nil {
		s.attach(conn)
	} else {
		s.logger.Warn().Err(err).Str("url", logging.RedactURL(s.cfg.URL)).Msg("initial dial failed")
	}

	go s.supervise(runCtx, conn)
	return err
}

func (s *SocketChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(dialCtx, s.cfg.URL, s.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: %w (status %d)", logging.RedactURL(s.cfg.URL), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", logging.RedactURL(s.cfg.URL), err)
	}
	return conn, nil
}

func (s *SocketChannel) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.logger.Info().Msg("connected")
	s.registry.Emit(Event{Name: EventConnect})
}

func (s *SocketChannel) detach(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	wasCurrent := s.conn == conn
	if wasCurrent {
		s.conn = nil
		s.connected = false
	}
	s.mu.Unlock()

	_ = conn.Close()
	if !wasCurrent {
		return
	}
	if cause != nil {
		s.logger.Warn().Err(cause).Msg("disconnected")
	} else {
		s.logger.Info().Msg("disconnected")
	}
	s.registry.Emit(Event{Name: EventDisconnect})
}

// supervise runs the read loop and reconnects until ctx ends.
func (s *SocketChannel) supervise(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)

	backoff := s.cfg.ReconnectInterval
	for {
		if conn != nil {
			backoff = s.cfg.ReconnectInterval
			s.readLoop(ctx, conn)
			conn = nil
		}
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		next, err := s.dial(ctx)
		if err != nil {
			s.logger.Debug().Err(err).Dur("backoff", backoff).Msg("reconnect failed")
			backoff *= 2
			if backoff > s.cfg.ReconnectMax {
				backoff = s.cfg.ReconnectMax
			}
			continue
		}
		s.attach(next)
		conn = next
	}
}

func (s *SocketChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			s.detach(conn, err)
			return
		}
		ev, err := decodeFrame(raw)
		if err != nil {
			s.logger.Debug().Err(err).Msg("dropping frame")
			continue
		}
		if ev.Name == EventConnect || ev.Name == EventDisconnect {
			continue
		}
		s.registry.Emit(ev)
	}
}

// JoinRoom emits join_room for identity.
func (s *SocketChannel) JoinRoom(identity string) error {
	if identity == "" {
		return fmt.Errorf("transport: identity required")
	}
	return s.Send(EventJoinRoom, identity)
}

// Send writes one frame. It fails with ErrNotConnected while disconnected.
func (s *SocketChannel) Send(event string, payload any) error {
	raw, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("transport: send %s: %w", event, err)
	}
	return nil
}

// On registers a handler.
func (s *SocketChannel) On(event string, handler Handler) string {
	return s.registry.On(event, handler)
}

// Off removes a handler.
func (s *SocketChannel) Off(id string) error {
	return s.registry.Off(id)
}

// Connected reports whether a socket is attached.
func (s *SocketChannel) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close stops the supervisor and closes the socket.
func (s *SocketChannel) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	done := s.done
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.registry.Clear()
	return nil
}

var _ Channel = (*SocketChannel)(nil)
