package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/middleware"
	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/portal"
	"github.com/vango-dev/linkportal/pkg/routepath"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// Portal is what a connection drives once attached.
type Portal interface {
	Navigate(path string, replace bool)
	PopState(url string)
	Action(ctx context.Context, name string, form map[string]string) error
	Close()
}

// Session is one WebSocket connection. It is the portal's host: mounting,
// titles, history changes and toasts become frames to the thin client.
//
// All writes happen on the write loop; everything else only queues frames.
type Session struct {
	id      string
	conn    *websocket.Conn
	config  *Config
	metrics *middleware.Metrics
	logger  *slog.Logger

	out       chan ServerFrame
	done      chan struct{}
	writerEnd chan struct{}
	closeOnce sync.Once
	actions   sync.WaitGroup

	mu       sync.Mutex
	location string
	listener func(url string)
	current  mount.Component
}

func newSession(id string, conn *websocket.Conn, location string, config *Config, metrics *middleware.Metrics, logger *slog.Logger) *Session {
	return &Session{
		id:        id,
		conn:      conn,
		config:    config,
		metrics:   metrics,
		logger:    logger.With("session_id", id),
		out:       make(chan ServerFrame, config.SendQueue),
		done:      make(chan struct{}),
		writerEnd: make(chan struct{}),
		location:  location,
	}
}

// ID implements portal.Host.
func (s *Session) ID() string {
	return s.id
}

// Mount implements mount.Surface. It disposes the component it replaces.
func (s *Session) Mount(c mount.Component) error {
	if s.IsClosed() {
		return ErrSessionClosed
	}
	html := c.Render()
	s.mu.Lock()
	prev := s.current
	s.current = c
	s.mu.Unlock()
	if prev != nil && prev != c {
		mount.Dispose(prev)
	}
	s.send(ServerFrame{Type: FrameMount, HTML: html})
	return nil
}

// Refresh implements portal.Refresher.
func (s *Session) Refresh(c mount.Component) {
	s.mu.Lock()
	mounted := s.current == c
	s.mu.Unlock()
	if mounted {
		s.send(ServerFrame{Type: FrameMount, HTML: c.Render()})
	}
}

// ShowError implements mount.Surface.
func (s *Session) ShowError(v mount.ErrorView) {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	if prev != nil {
		mount.Dispose(prev)
	}
	s.send(errorFrame(v))
}

// SetTitle implements mount.Surface.
func (s *Session) SetTitle(title string) {
	s.send(ServerFrame{Type: FrameTitle, Title: title})
}

// Push implements router.History.
func (s *Session) Push(url string) {
	s.setLocation(url)
	s.send(ServerFrame{Type: FrameNav, URL: url})
}

// Replace implements router.History.
func (s *Session) Replace(url string) {
	s.setLocation(url)
	s.send(ServerFrame{Type: FrameNav, URL: url, Replace: true})
}

// Location implements router.History.
func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Listen implements router.HistoryListener.
func (s *Session) Listen(fn func(url string)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// Show implements toast.Sink.
func (s *Session) Show(t toast.Toast) {
	s.send(toastFrame(t))
}

// IsClosed reports whether the session was closed.
func (s *Session) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close ends the session. The write loop says goodbye and closes the
// connection, which ends the read loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) setLocation(url string) {
	s.mu.Lock()
	s.location = url
	s.mu.Unlock()
}

// send queues a frame. It blocks while the queue is full and gives up
// once the session is closed.
func (s *Session) send(f ServerFrame) bool {
	if s.IsClosed() {
		return false
	}
	select {
	case s.out <- f:
		return true
	case <-s.done:
		return false
	}
}

// WriteLoop sends queued frames and heartbeat pings until the session is
// closed or a write fails.
func (s *Session) WriteLoop() {
	defer close(s.writerEnd)
	defer s.conn.Close()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteJSON(f); err != nil {
				s.logger.Debug("write failed", "type", f.Type, "error", err)
				s.metrics.WebSocketError("write")
				s.Close()
				return
			}
			s.metrics.FrameSent(f.Type)

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("heartbeat failed", "error", err)
				s.metrics.WebSocketError("heartbeat")
				s.Close()
				return
			}

		case <-s.done:
			deadline := time.Now().Add(s.config.WriteTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		}
	}
}

// ReadLoop decodes client frames and hands them to p. It blocks until the
// connection fails or the session is closed.
func (s *Session) ReadLoop(p Portal) {
	defer s.Close()

	extend := func() {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}
	extend()
	s.conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.IsClosed() {
				s.logger.Warn("read error", "error", err)
				s.metrics.WebSocketError("read")
			}
			return
		}
		extend()

		var f ClientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.metrics.WebSocketError("decode")
			continue
		}
		if err := s.handle(p, f); err != nil {
			s.logger.Warn("frame rejected", "type", f.Type, "error", err)
		}
	}
}

func (s *Session) handle(p Portal, f ClientFrame) error {
	switch f.Type {
	case FrameNavigate:
		path, err := routepath.ValidateLocation(f.Path)
		if err != nil {
			return err
		}
		p.Navigate(path, f.Replace)

	case FramePopState:
		url, err := routepath.ValidateLocation(f.URL)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.location = url
		listener := s.listener
		s.mu.Unlock()
		if listener != nil {
			listener(url)
		} else {
			p.PopState(url)
		}

	case FrameAction:
		if f.Name == "" {
			return errors.New("action without name")
		}
		s.actions.Add(1)
		go s.runAction(p, f.Name, f.Form)

	case FramePing:
		s.send(ServerFrame{Type: FramePong, Time: f.Time})

	case FrameHello:
		return errors.New("duplicate hello")

	default:
		return ErrUnknownFrame
	}
	return nil
}

// runAction runs one user action off the read loop, so navigation keeps
// flowing while the backend answers.
func (s *Session) runAction(p Portal, name string, form map[string]string) {
	defer s.actions.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ActionTimeout)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := p.Action(ctx, name, form)
	switch {
	case err == nil:
	case errors.Is(err, portal.ErrUnknownAction):
		s.logger.Warn("unknown action", "name", name)
	default:
		s.logger.Error("action failed", "name", name, "error", NewSessionError(s.id, "action", err))
		toast.Error(s, auth.MessageGeneric)
	}
}

// wait blocks until the write loop and running actions finished.
func (s *Session) wait() {
	<-s.writerEnd
	s.actions.Wait()
}
